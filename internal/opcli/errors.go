package opcli

import "fmt"

// ItemNotFoundError indicates no vault item title matched a search key.
type ItemNotFoundError struct {
	Vault string
	Query string
}

func (e ItemNotFoundError) Error() string {
	return fmt.Sprintf("item matching %q not found in vault %q", e.Query, e.Vault)
}

// VaultNotFoundError indicates the vault name did not resolve.
type VaultNotFoundError struct {
	Vault string
}

func (e VaultNotFoundError) Error() string {
	return fmt.Sprintf("vault %q not found: %q isn't a vault in this account", e.Vault, e.Vault)
}

// AuthError indicates the op CLI has no usable session.
type AuthError struct {
	Message string
}

func (e AuthError) Error() string {
	return "1Password authentication failed: " + e.Message
}

// UpdateError indicates `op item edit` failed. Stderr carries the CLI's
// reported cause (permission denied, item locked, session failure).
type UpdateError struct {
	ItemID string
	Stderr string
	Err    error
}

func (e UpdateError) Error() string {
	msg := fmt.Sprintf("failed to update item %s", e.ItemID)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e UpdateError) Unwrap() error {
	return e.Err
}
