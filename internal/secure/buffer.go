// Package secure holds new credential values in protected memory between
// manifest parse and vault write.
//
// It wraps the memguard library: values are encrypted at rest in memory
// (XSalsa20Poly1305), mlocked where the platform allows it, and wiped when
// the unlocked view is destroyed. Call memguard.Purge() at process exit for
// full cleanup.
package secure

import (
	"sync"

	"github.com/awnumar/memguard"
)

// Buffer stores one secret value in an encrypted memguard enclave.
type Buffer struct {
	enclave *memguard.Enclave
	mu      sync.RWMutex
	// destroyed makes Destroy idempotent and blocks use after destroy
	destroyed bool
}

// NewBuffer copies data into a protected enclave. The caller still owns
// the input slice and should zero it if it came from a sensitive source.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{
		enclave: memguard.NewEnclave(data),
	}
}

// NewBufferFromString copies a string value into a protected enclave.
func NewBufferFromString(value string) *Buffer {
	return NewBuffer([]byte(value))
}

// Open decrypts the value into a locked buffer. The caller MUST call
// Destroy() on the returned LockedBuffer to wipe the plaintext.
//
//	locked, err := buf.Open()
//	if err != nil {
//	    return err
//	}
//	defer locked.Destroy()
//	value := locked.String()
func (b *Buffer) Open() (*memguard.LockedBuffer, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.destroyed {
		return memguard.NewBufferFromBytes([]byte{}), nil
	}

	return b.enclave.Open()
}

// Destroy marks the buffer as unusable. Idempotent; after Destroy, Open
// returns an empty locked buffer. The enclave's encrypted contents are
// left to memguard.Purge() at exit.
func (b *Buffer) Destroy() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.destroyed {
		return
	}

	b.enclave = nil
	b.destroyed = true
}
