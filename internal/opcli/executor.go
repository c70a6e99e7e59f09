package opcli

import (
	"bytes"
	"context"
	"os/exec"
)

// CommandExecutor runs external commands. The abstraction exists so tests
// can script op CLI behavior without a real vault or session.
type CommandExecutor interface {
	// Execute runs a command and returns its stdout and stderr.
	Execute(ctx context.Context, name string, args ...string) (stdout []byte, stderr []byte, err error)

	// ExecuteInput runs a command with the given bytes piped to stdin.
	// op item edit consumes the updated item template this way; passing
	// the value as an argument would expose it in the process table.
	ExecuteInput(ctx context.Context, stdin []byte, name string, args ...string) (stdout []byte, stderr []byte, err error)
}

// RealCommandExecutor executes actual commands using os/exec. This is the
// production implementation.
type RealCommandExecutor struct{}

// Execute runs an actual command.
func (r *RealCommandExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	return r.ExecuteInput(ctx, nil, name, args...)
}

// ExecuteInput runs an actual command with stdin attached.
func (r *RealCommandExecutor) ExecuteInput(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}
