// Package opcli drives the 1Password CLI. It provides the two vault
// operations this tool depends on, item lookup and field update, plus
// session validation. All invocations go through an injectable
// CommandExecutor so tests can run against scripted op output.
package opcli

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/systmms/opcredsync/internal/logging"
)

// Client wraps the op CLI.
type Client struct {
	// Account is forwarded as --account on every invocation when set.
	Account string

	exec   CommandExecutor
	logger *logging.Logger
}

// NewClient creates a client backed by the real op binary.
func NewClient(logger *logging.Logger) *Client {
	return NewClientWithExecutor(logger, &RealCommandExecutor{})
}

// NewClientWithExecutor creates a client with a custom executor. Tests use
// this to substitute a mock.
func NewClientWithExecutor(logger *logging.Logger, executor CommandExecutor) *Client {
	return &Client{
		exec:   executor,
		logger: logger,
	}
}

// args appends the --account flag when an account is configured.
func (c *Client) args(base ...string) []string {
	if c.Account != "" {
		return append(base, "--account", c.Account)
	}
	return base
}

// Validate checks that the op CLI is installed and has an active session.
// It must pass before any vault work starts.
func (c *Client) Validate(ctx context.Context) error {
	if _, err := exec.LookPath("op"); err != nil {
		return fmt.Errorf("1Password CLI not found in PATH: %w", err)
	}

	_, stderr, err := c.exec.Execute(ctx, "op", c.args("account", "get")...)
	if err != nil {
		msg := strings.TrimSpace(string(stderr))
		if msg == "" {
			msg = "run 'op signin' to start a session"
		}
		return AuthError{Message: msg}
	}

	return nil
}

// ListItems returns the items of the named vault in op's own order, with
// titles lowercased for substring matching against search keys.
func (c *Client) ListItems(ctx context.Context, vault string) ([]ListItem, error) {
	stdout, stderr, err := c.exec.Execute(ctx, "op",
		c.args("item", "list", "--vault", vault, "--format", "json")...)
	if err != nil {
		msg := strings.TrimSpace(string(stderr))
		if strings.Contains(msg, "isn't a vault") {
			return nil, VaultNotFoundError{Vault: vault}
		}
		if isAuthFailure(msg) {
			return nil, AuthError{Message: msg}
		}
		return nil, fmt.Errorf("failed to list items in vault %q: %s", vault, cliCause(msg, err))
	}

	var items []ListItem
	if err := json.Unmarshal(stdout, &items); err != nil {
		return nil, fmt.Errorf("failed to parse op item list output: %w", err)
	}

	for i := range items {
		items[i].Title = strings.ToLower(items[i].Title)
	}

	c.logger.Debug("vault %q has %d items", vault, len(items))
	return items, nil
}

// GetItem fetches the full template of one item by id.
func (c *Client) GetItem(ctx context.Context, id string) (*Item, error) {
	stdout, stderr, err := c.exec.Execute(ctx, "op",
		c.args("item", "get", id, "--format", "json")...)
	if err != nil {
		msg := strings.TrimSpace(string(stderr))
		if isAuthFailure(msg) {
			return nil, AuthError{Message: msg}
		}
		return nil, fmt.Errorf("failed to get item %s: %s", id, cliCause(msg, err))
	}

	var item Item
	if err := json.Unmarshal(stdout, &item); err != nil {
		return nil, fmt.Errorf("failed to parse item %s: %w", id, err)
	}
	item.raw = stdout

	return &item, nil
}

// EditItem overwrites one field's value by piping the updated item
// template to `op item edit` stdin. The write is atomic at the level of
// this single call, per op's own guarantee.
func (c *Client) EditItem(ctx context.Context, item *Item, fieldID, value string) error {
	payload, err := item.payloadWithFieldValue(fieldID, value)
	if err != nil {
		return UpdateError{ItemID: item.ID, Err: err}
	}

	_, stderr, err := c.exec.ExecuteInput(ctx, payload, "op",
		c.args("item", "edit", item.ID)...)
	if err != nil {
		return UpdateError{
			ItemID: item.ID,
			Stderr: strings.TrimSpace(string(stderr)),
			Err:    err,
		}
	}

	c.logger.Debug("edited field %q of item %s", fieldID, item.ID)
	return nil
}

// isAuthFailure sniffs op stderr for a missing or expired session.
func isAuthFailure(stderr string) bool {
	return strings.Contains(stderr, "not currently signed in") ||
		strings.Contains(stderr, "not signed in") ||
		strings.Contains(stderr, "session expired")
}

// cliCause prefers op's stderr text over Go's exec error.
func cliCause(stderr string, err error) string {
	if stderr != "" {
		return stderr
	}
	return err.Error()
}
