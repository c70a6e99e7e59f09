// Package update orchestrates one run of the tool: for every credential
// in the manifest, locate the matching vault item, select its updatable
// field, and write the new value. Strictly sequential; the first failing
// credential halts the run.
package update

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	operrors "github.com/systmms/opcredsync/internal/errors"
	"github.com/systmms/opcredsync/internal/logging"
	"github.com/systmms/opcredsync/internal/manifest"
	"github.com/systmms/opcredsync/internal/opcli"
)

// Runner processes a manifest against one vault.
type Runner struct {
	Client *opcli.Client
	Logger *logging.Logger

	// DryRun skips the op item edit call but runs everything else,
	// including field selection.
	DryRun bool

	// Out receives the per-credential placement lines. Defaults to
	// stdout; diagnostics go through Logger to stderr.
	Out io.Writer
}

// NewRunner creates a runner writing placement lines to stdout.
func NewRunner(client *opcli.Client, logger *logging.Logger) *Runner {
	return &Runner{
		Client: client,
		Logger: logger,
		Out:    os.Stdout,
	}
}

// Run processes every credential of every issuer in document order. One
// vault listing is fetched up front and reused for every lookup. Returns
// nil only when all credentials were updated.
func (r *Runner) Run(ctx context.Context, m *manifest.Manifest, vault string) error {
	if len(m.Issuers) == 0 {
		r.Logger.Warn("manifest contains no issuers; nothing to update")
		return nil
	}

	items, err := r.Client.ListItems(ctx, vault)
	if err != nil {
		return operrors.UserError{
			Message:    fmt.Sprintf("Failed to list items in vault %q", vault),
			Details:    err.Error(),
			Suggestion: operrors.OnePasswordSuggestion(err),
			Err:        err,
		}
	}

	for _, issuer := range m.Issuers {
		fmt.Fprintf(r.Out, "Issuer: %s\n", strings.ToLower(issuer.Name))
		for _, cred := range issuer.Credentials {
			if err := r.processCredential(ctx, items, issuer.Name, cred, vault); err != nil {
				return err
			}
		}
	}

	return nil
}

// processCredential walks one credential through the linear sequence
// locate -> select field -> update. Any failure is terminal for the run.
func (r *Runner) processCredential(ctx context.Context, items []opcli.ListItem, issuer string, cred manifest.Credential, vault string) error {
	key := manifest.SearchKey(issuer, cred.Name)
	r.Logger.Debug("searching vault %q for %q", vault, key)

	listed, ok := Locate(items, key)
	if !ok {
		return r.fail(issuer, cred.Name, key, opcli.ItemNotFoundError{Vault: vault, Query: key})
	}

	item, err := r.Client.GetItem(ctx, listed.ID)
	if err != nil {
		return r.fail(issuer, cred.Name, key, err)
	}

	field, err := SelectField(item)
	if err != nil {
		return r.fail(issuer, cred.Name, key, err)
	}

	locked, err := cred.Value.Open()
	if err != nil {
		return r.fail(issuer, cred.Name, key, err)
	}
	defer locked.Destroy()

	if r.DryRun {
		r.Logger.Debug("dry-run: skipping op item edit for item %s", item.ID)
	} else if err := r.Client.EditItem(ctx, item, field.ID, locked.String()); err != nil {
		return r.fail(issuer, cred.Name, key, err)
	}

	fmt.Fprintf(r.Out, "placed credential %q into field %q of vault item %s\n",
		cred.Name, field.DisplayName(), item)
	return nil
}

// fail wraps a step failure with the context an operator needs to fix the
// manifest or the vault: issuer, credential name, search key, and cause.
func (r *Runner) fail(issuer, credential, key string, err error) error {
	return operrors.UserError{
		Message:    fmt.Sprintf("Failed to update credential %q from issuer %q", credential, issuer),
		Details:    fmt.Sprintf("search key %q: %v", key, err),
		Suggestion: operrors.OnePasswordSuggestion(err),
		Err:        err,
	}
}
