package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/vvka-141/tabsync/pkg/tabsync"
)

// InteractiveApprover implements the Approver interface for console-based
// interactive confirmation. It prompts the user to answer yes before an
// existing file is overwritten.
type InteractiveApprover struct {
	verbose bool
	input   io.Reader
	output  io.Writer
}

// NewInteractiveApprover creates a new InteractiveApprover.
func NewInteractiveApprover(verbose bool) tabsync.Approver {
	return &InteractiveApprover{
		verbose: verbose,
		input:   os.Stdin,
		output:  os.Stderr,
	}
}

// RequestApproval prompts the user to confirm the overwrite. Anything other
// than yes keeps the existing file.
func (a *InteractiveApprover) RequestApproval(ctx context.Context, target string) (bool, error) {
	fmt.Fprintf(a.output, "\nWARNING: '%s' already exists and will be overwritten.\n", target)
	fmt.Fprint(a.output, "Overwrite? [y/N]: ")

	// Read user input with context cancellation support
	inputChan := make(chan string, 1)
	errChan := make(chan error, 1)

	go func() {
		reader := bufio.NewReader(a.input)
		line, err := reader.ReadString('\n')
		if err != nil {
			errChan <- err
			return
		}
		inputChan <- strings.TrimSpace(line)
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case err := <-errChan:
		return false, fmt.Errorf("failed to read input: %w", err)
	case answer := <-inputChan:
		switch strings.ToLower(answer) {
		case "y", "yes":
			fmt.Fprintln(a.output, "✓ Confirmed. Overwriting...")
			return true, nil
		default:
			fmt.Fprintf(a.output, "✗ Keeping '%s'. Overwrite cancelled.\n", target)
			return false, nil
		}
	}
}

// Verify InteractiveApprover implements the Approver interface at compile time
var _ tabsync.Approver = (*InteractiveApprover)(nil)
