// Package errors defines the user-facing error types for update_op_creds.
// Errors carry a suggestion line so an operator can fix the manifest or
// vault state without digging through op CLI documentation.
package errors

import (
	"fmt"
	"strings"
)

// UserError is an error shown to the user with helpful context.
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError reports a problem in the credential manifest.
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Manifest error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// CommandError reports a failed external command invocation.
type CommandError struct {
	Command    string
	ExitCode   int
	Message    string
	Suggestion string
}

func (e CommandError) Error() string {
	msg := fmt.Sprintf("Command '%s' failed", e.Command)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit code: %d)", e.ExitCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// OnePasswordSuggestion returns a remediation hint for a 1Password CLI
// error, or an empty string when none applies.
func OnePasswordSuggestion(err error) string {
	if err == nil {
		return ""
	}
	errStr := err.Error()

	if strings.Contains(errStr, "not signed in") || strings.Contains(errStr, "not currently signed in") {
		return "Run 'op signin' to authenticate with 1Password"
	}
	if strings.Contains(errStr, "session expired") {
		return "Your 1Password session has expired. Run 'op signin' again"
	}
	if strings.Contains(errStr, "isn't a vault") {
		return "Check the vault name. Use 'op vault list' to see available vaults"
	}
	if strings.Contains(errStr, "not found") {
		return "Verify the item exists. Use 'op item list' to see available items"
	}
	if strings.Contains(errStr, "executable file not found") || strings.Contains(errStr, "command not found") {
		return "Install 1Password CLI: https://developer.1password.com/docs/cli/get-started/"
	}
	if strings.Contains(errStr, "timeout") {
		return "The operation timed out. Check your network connection and try again"
	}

	return ""
}
