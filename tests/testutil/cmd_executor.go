// Package testutil provides testing utilities for update_op_creds.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockCommandExecutor provides a configurable mock for testing code that
// drives the op CLI. It implements opcli.CommandExecutor.
type MockCommandExecutor struct {
	mu sync.Mutex

	// Responses maps command patterns to their mock responses.
	// Key format: "command arg1 arg2" (space-separated command and args).
	// Patterns match by prefix, so "op item get" matches any get call.
	Responses map[string]MockResponse

	// DefaultResponse is used when no matching pattern is found.
	DefaultResponse *MockResponse

	// RecordedCalls stores all calls made to Execute for verification.
	RecordedCalls []RecordedCall

	// StrictMode causes Execute to fail if no matching response is found.
	StrictMode bool
}

// MockResponse defines the expected output for a mocked command.
type MockResponse struct {
	Stdout   []byte
	Stderr   []byte
	Err      error
	ExitCode int
}

// RecordedCall stores information about a command execution, including
// any bytes piped to stdin.
type RecordedCall struct {
	Command string
	Args    []string
	Stdin   []byte
}

// NewMockCommandExecutor creates a new mock executor with empty responses.
func NewMockCommandExecutor() *MockCommandExecutor {
	return &MockCommandExecutor{
		Responses:     make(map[string]MockResponse),
		RecordedCalls: make([]RecordedCall, 0),
	}
}

// Execute returns the mocked response for the given command.
func (m *MockCommandExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	return m.ExecuteInput(ctx, nil, name, args...)
}

// ExecuteInput returns the mocked response and records the stdin payload.
func (m *MockCommandExecutor) ExecuteInput(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.RecordedCalls = append(m.RecordedCalls, RecordedCall{
		Command: name,
		Args:    args,
		Stdin:   stdin,
	})

	key := m.buildKey(name, args)

	if resp, ok := m.Responses[key]; ok {
		return resp.Stdout, resp.Stderr, resp.Err
	}

	for pattern, resp := range m.Responses {
		if strings.HasPrefix(key, pattern) {
			return resp.Stdout, resp.Stderr, resp.Err
		}
	}

	if m.DefaultResponse != nil {
		return m.DefaultResponse.Stdout, m.DefaultResponse.Stderr, m.DefaultResponse.Err
	}

	if m.StrictMode {
		return nil, nil, fmt.Errorf("mock: no response configured for command: %s", key)
	}

	return []byte{}, []byte{}, nil
}

func (m *MockCommandExecutor) buildKey(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}

// AddResponse registers a mock response for a command prefix.
func (m *MockCommandExecutor) AddResponse(commandPattern string, response MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses[commandPattern] = response
}

// AddJSONResponse is a convenience method to add a JSON stdout response.
func (m *MockCommandExecutor) AddJSONResponse(commandPattern string, jsonData string) {
	m.AddResponse(commandPattern, MockResponse{
		Stdout: []byte(jsonData),
		Stderr: []byte{},
	})
}

// AddErrorResponse adds a failing response for a command prefix.
func (m *MockCommandExecutor) AddErrorResponse(commandPattern string, errMsg string, exitCode int) {
	m.AddResponse(commandPattern, MockResponse{
		Stdout:   []byte{},
		Stderr:   []byte(errMsg),
		Err:      fmt.Errorf("exit status %d", exitCode),
		ExitCode: exitCode,
	})
}

// GetCalls returns all recorded calls matching the given command name.
func (m *MockCommandExecutor) GetCalls(commandName string) []RecordedCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matches []RecordedCall
	for _, call := range m.RecordedCalls {
		if call.Command == commandName {
			matches = append(matches, call)
		}
	}
	return matches
}

// GetCallsWithArgPrefix returns recorded calls whose command plus args
// start with the given pattern, e.g. "op item edit".
func (m *MockCommandExecutor) GetCallsWithArgPrefix(pattern string) []RecordedCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matches []RecordedCall
	for _, call := range m.RecordedCalls {
		if strings.HasPrefix(m.buildKey(call.Command, call.Args), pattern) {
			matches = append(matches, call)
		}
	}
	return matches
}

// CallCount returns the number of times Execute was called.
func (m *MockCommandExecutor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.RecordedCalls)
}

// AssertCalled verifies that a specific command was called at least once.
func (m *MockCommandExecutor) AssertCalled(t interface{ Error(args ...interface{}) }, commandName string) bool {
	calls := m.GetCalls(commandName)
	if len(calls) == 0 {
		t.Error("expected command", commandName, "to be called, but it was not")
		return false
	}
	return true
}

// AssertNotCalledWithPrefix verifies that no call matched the pattern.
func (m *MockCommandExecutor) AssertNotCalledWithPrefix(t interface{ Error(args ...interface{}) }, pattern string) bool {
	calls := m.GetCallsWithArgPrefix(pattern)
	if len(calls) > 0 {
		t.Error("expected no call matching", pattern, "but got", len(calls))
		return false
	}
	return true
}

// OpMockResponses provides pre-configured responses for the op CLI.
type OpMockResponses struct{}

// AccountGet returns a mock response for `op account get`.
func (OpMockResponses) AccountGet() MockResponse {
	return MockResponse{
		Stdout: []byte(`{
			"id": "ABCD123",
			"name": "Personal",
			"domain": "my.1password.com",
			"type": "Individual",
			"state": "active"
		}`),
	}
}

// ItemList returns a mock `op item list` response with the given
// id/title pairs.
func (OpMockResponses) ItemList(idTitlePairs ...string) MockResponse {
	var rows []string
	for i := 0; i+1 < len(idTitlePairs); i += 2 {
		rows = append(rows, fmt.Sprintf(`{"id": %q, "title": %q}`, idTitlePairs[i], idTitlePairs[i+1]))
	}
	return MockResponse{
		Stdout: []byte("[" + strings.Join(rows, ",") + "]"),
	}
}

// APICredentialItem returns a mock `op item get` response shaped like an
// API Credential template, with the primary secret in the top-level
// concealed field named "credential".
func (OpMockResponses) APICredentialItem(id, title, currentValue string) MockResponse {
	return MockResponse{
		Stdout: []byte(fmt.Sprintf(`{
			"id": %q,
			"title": %q,
			"category": "API_CREDENTIAL",
			"sections": [],
			"fields": [
				{"id": "username", "type": "STRING", "label": "username", "value": "svc-account", "reference": "op://Work/%s/username"},
				{"id": "credential", "type": "CONCEALED", "label": "credential", "value": %q, "reference": "op://Work/%s/credential"},
				{"id": "type", "type": "MENU", "label": "type", "value": "bearer", "reference": "op://Work/%s/type"}
			]
		}`, id, title, id, currentValue, id, id)),
	}
}
