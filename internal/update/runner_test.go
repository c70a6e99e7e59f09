package update_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/opcredsync/internal/logging"
	"github.com/systmms/opcredsync/internal/manifest"
	"github.com/systmms/opcredsync/internal/opcli"
	"github.com/systmms/opcredsync/internal/secure"
	"github.com/systmms/opcredsync/internal/update"
	"github.com/systmms/opcredsync/tests/testutil"
)

func singleCredManifest(issuer, name, value string) *manifest.Manifest {
	return &manifest.Manifest{
		Issuers: []manifest.Issuer{
			{
				Name: issuer,
				Credentials: []manifest.Credential{
					{Name: name, Value: secure.NewBufferFromString(value)},
				},
			},
		},
	}
}

func newRunner(mockExec *testutil.MockCommandExecutor, out *bytes.Buffer) *update.Runner {
	logger := logging.New(false, true)
	r := update.NewRunner(opcli.NewClientWithExecutor(logger, mockExec), logger)
	r.Out = out
	return r
}

// editedFieldValue digs the named field's value out of the template piped
// to op item edit.
func editedFieldValue(t *testing.T, stdin []byte, fieldID string) string {
	t.Helper()

	var tpl map[string]interface{}
	require.NoError(t, json.Unmarshal(stdin, &tpl))

	fields, ok := tpl["fields"].([]interface{})
	require.True(t, ok)
	for _, f := range fields {
		fm := f.(map[string]interface{})
		if fm["id"] == fieldID {
			value, _ := fm["value"].(string)
			return value
		}
	}
	t.Fatalf("field %q not found in edit payload", fieldID)
	return ""
}

func TestRunner_RoundTrip(t *testing.T) {
	t.Parallel()

	mockExec := testutil.NewMockCommandExecutor()
	mockExec.AddResponse("op item list", testutil.OpMockResponses{}.ItemList(
		"item-9", "Fastmail App Password",
		"item-1", "GitLab CLI PAT",
	))
	mockExec.AddResponse("op item get item-1", testutil.OpMockResponses{}.APICredentialItem(
		"item-1", "GitLab CLI PAT", "old-token"))

	var out bytes.Buffer
	r := newRunner(mockExec, &out)

	m := singleCredManifest("GitLab", "cli PAT", "XYZ")
	require.NoError(t, r.Run(context.Background(), m, "Work"))

	// the listing was fetched once, scoped to the vault
	lists := mockExec.GetCallsWithArgPrefix("op item list")
	require.Len(t, lists, 1)
	assert.Contains(t, lists[0].Args, "Work")

	// the selected field is the top-level concealed "credential" field
	edits := mockExec.GetCallsWithArgPrefix("op item edit item-1")
	require.Len(t, edits, 1)
	assert.Equal(t, "XYZ", editedFieldValue(t, edits[0].Stdin, "credential"))

	assert.Contains(t, out.String(), "Issuer: gitlab")
	assert.Contains(t, out.String(), `placed credential "cli PAT" into field "credential" of vault item GitLab CLI PAT (id: item-1)`)
}

func TestRunner_FallsBackToUnsectionedConcealed(t *testing.T) {
	t.Parallel()

	mockExec := testutil.NewMockCommandExecutor()
	mockExec.AddResponse("op item list", testutil.OpMockResponses{}.ItemList(
		"item-2", "Example Login"))
	mockExec.AddJSONResponse("op item get item-2", `{
		"id": "item-2",
		"title": "Example Login",
		"category": "LOGIN",
		"fields": [
			{"id": "username", "type": "STRING", "value": "user"},
			{"id": "password", "type": "CONCEALED", "section": {"id": "s1", "label": "Login"}, "value": "pw"},
			{"id": "otp", "type": "CONCEALED", "value": "otp-secret"}
		]
	}`)

	var out bytes.Buffer
	r := newRunner(mockExec, &out)

	m := singleCredManifest("Example", "login", "NEW")
	require.NoError(t, r.Run(context.Background(), m, "Work"))

	edits := mockExec.GetCallsWithArgPrefix("op item edit item-2")
	require.Len(t, edits, 1)
	// tier 1 fails (no "credential" id), tier 2 picks "otp" (top-level
	// concealed), never the sectioned "password"
	assert.Equal(t, "NEW", editedFieldValue(t, edits[0].Stdin, "otp"))
	assert.Equal(t, "pw", editedFieldValue(t, edits[0].Stdin, "password"))
}

func TestRunner_NoConcealedFields(t *testing.T) {
	t.Parallel()

	mockExec := testutil.NewMockCommandExecutor()
	mockExec.AddResponse("op item list", testutil.OpMockResponses{}.ItemList(
		"item-3", "Example Note"))
	mockExec.AddJSONResponse("op item get item-3", `{
		"id": "item-3",
		"title": "Example Note",
		"category": "SECURE_NOTE",
		"fields": [
			{"id": "notes", "type": "STRING", "value": "hello"}
		]
	}`)

	var out bytes.Buffer
	r := newRunner(mockExec, &out)

	m := singleCredManifest("Example", "note", "NEW")
	err := r.Run(context.Background(), m, "Work")
	require.Error(t, err)

	var noField update.NoUpdatableFieldError
	assert.ErrorAs(t, err, &noField)

	// no update call may be made
	mockExec.AssertNotCalledWithPrefix(t, "op item edit")
}

func TestRunner_VaultNotFound(t *testing.T) {
	t.Parallel()

	mockExec := testutil.NewMockCommandExecutor()
	mockExec.AddErrorResponse("op item list", `[ERROR] "Wrok" isn't a vault in this account`, 1)

	var out bytes.Buffer
	r := newRunner(mockExec, &out)

	m := singleCredManifest("GitLab", "cli PAT", "XYZ")
	err := r.Run(context.Background(), m, "Wrok")
	require.Error(t, err)

	var vaultErr opcli.VaultNotFoundError
	assert.ErrorAs(t, err, &vaultErr)

	// fails before any item is fetched or edited
	mockExec.AssertNotCalledWithPrefix(t, "op item get")
	mockExec.AssertNotCalledWithPrefix(t, "op item edit")
}

func TestRunner_ItemNotFoundHaltsRun(t *testing.T) {
	t.Parallel()

	mockExec := testutil.NewMockCommandExecutor()
	mockExec.AddResponse("op item list", testutil.OpMockResponses{}.ItemList(
		"item-1", "GitLab CLI PAT"))

	var out bytes.Buffer
	r := newRunner(mockExec, &out)

	m := &manifest.Manifest{
		Issuers: []manifest.Issuer{
			{
				Name: "GitHub",
				Credentials: []manifest.Credential{
					{Name: "deploy key", Value: secure.NewBufferFromString("A")},
				},
			},
			{
				Name: "GitLab",
				Credentials: []manifest.Credential{
					{Name: "cli PAT", Value: secure.NewBufferFromString("B")},
				},
			},
		},
	}

	err := r.Run(context.Background(), m, "Work")
	require.Error(t, err)

	var notFound opcli.ItemNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "github deploy key", notFound.Query)

	// the error message carries issuer, credential, and search key context
	assert.Contains(t, err.Error(), "GitHub")
	assert.Contains(t, err.Error(), "deploy key")
	assert.Contains(t, err.Error(), "github deploy key")

	// the second credential is never processed
	mockExec.AssertNotCalledWithPrefix(t, "op item get")
	mockExec.AssertNotCalledWithPrefix(t, "op item edit")
}

func TestRunner_EmptyManifest(t *testing.T) {
	t.Parallel()

	mockExec := testutil.NewMockCommandExecutor()

	var out bytes.Buffer
	r := newRunner(mockExec, &out)

	require.NoError(t, r.Run(context.Background(), &manifest.Manifest{}, "Work"))
	assert.Zero(t, mockExec.CallCount())
}

func TestRunner_IssuerWithoutCredentials(t *testing.T) {
	t.Parallel()

	mockExec := testutil.NewMockCommandExecutor()
	mockExec.AddResponse("op item list", testutil.OpMockResponses{}.ItemList())

	var out bytes.Buffer
	r := newRunner(mockExec, &out)

	m := &manifest.Manifest{Issuers: []manifest.Issuer{{Name: "GitLab"}}}
	require.NoError(t, r.Run(context.Background(), m, "Work"))

	assert.Contains(t, out.String(), "Issuer: gitlab")
	mockExec.AssertNotCalledWithPrefix(t, "op item edit")
}

func TestRunner_DryRun(t *testing.T) {
	t.Parallel()

	mockExec := testutil.NewMockCommandExecutor()
	mockExec.AddResponse("op item list", testutil.OpMockResponses{}.ItemList(
		"item-1", "GitLab CLI PAT"))
	mockExec.AddResponse("op item get item-1", testutil.OpMockResponses{}.APICredentialItem(
		"item-1", "GitLab CLI PAT", "old-token"))

	var out bytes.Buffer
	r := newRunner(mockExec, &out)
	r.DryRun = true

	m := singleCredManifest("GitLab", "cli PAT", "XYZ")
	require.NoError(t, r.Run(context.Background(), m, "Work"))

	// everything except the edit runs, and the placement line still prints
	mockExec.AssertNotCalledWithPrefix(t, "op item edit")
	assert.Contains(t, out.String(), `placed credential "cli PAT"`)
}

func TestRunner_MultipleCredentialsSequential(t *testing.T) {
	t.Parallel()

	mockExec := testutil.NewMockCommandExecutor()
	mockExec.AddResponse("op item list", testutil.OpMockResponses{}.ItemList(
		"item-1", "GitLab CLI PAT",
		"item-2", "GitLab registry token",
	))
	mockExec.AddResponse("op item get item-1", testutil.OpMockResponses{}.APICredentialItem(
		"item-1", "GitLab CLI PAT", "old-1"))
	mockExec.AddResponse("op item get item-2", testutil.OpMockResponses{}.APICredentialItem(
		"item-2", "GitLab registry token", "old-2"))

	var out bytes.Buffer
	r := newRunner(mockExec, &out)

	m := &manifest.Manifest{
		Issuers: []manifest.Issuer{
			{
				Name: "GitLab",
				Credentials: []manifest.Credential{
					{Name: "cli PAT", Value: secure.NewBufferFromString("NEW-1")},
					{Name: "registry token", Value: secure.NewBufferFromString("NEW-2")},
				},
			},
		},
	}

	require.NoError(t, r.Run(context.Background(), m, "Work"))

	edits1 := mockExec.GetCallsWithArgPrefix("op item edit item-1")
	require.Len(t, edits1, 1)
	assert.Equal(t, "NEW-1", editedFieldValue(t, edits1[0].Stdin, "credential"))

	edits2 := mockExec.GetCallsWithArgPrefix("op item edit item-2")
	require.Len(t, edits2, 1)
	assert.Equal(t, "NEW-2", editedFieldValue(t, edits2[0].Stdin, "credential"))

	// one listing serves both lookups
	assert.Len(t, mockExec.GetCallsWithArgPrefix("op item list"), 1)
}

func TestRunner_UpdateErrorCarriesCause(t *testing.T) {
	t.Parallel()

	mockExec := testutil.NewMockCommandExecutor()
	mockExec.AddResponse("op item list", testutil.OpMockResponses{}.ItemList(
		"item-1", "GitLab CLI PAT"))
	mockExec.AddResponse("op item get item-1", testutil.OpMockResponses{}.APICredentialItem(
		"item-1", "GitLab CLI PAT", "old-token"))
	mockExec.AddErrorResponse("op item edit", "[ERROR] item is locked", 1)

	var out bytes.Buffer
	r := newRunner(mockExec, &out)

	m := singleCredManifest("GitLab", "cli PAT", "XYZ")
	err := r.Run(context.Background(), m, "Work")
	require.Error(t, err)

	var updateErr opcli.UpdateError
	require.ErrorAs(t, err, &updateErr)
	assert.Contains(t, updateErr.Stderr, "item is locked")
}
