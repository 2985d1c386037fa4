package tabsync

import "context"

// Approver handles user interaction for approval workflows, particularly
// for overwriting files that already exist on disk.
//
// Implementations:
//   - ForcedApprover: Shows a countdown and automatically approves
//   - InteractiveApprover: Prompts the user to confirm the overwrite
type Approver interface {
	// RequestApproval prompts for confirmation before overwriting target.
	//
	// Parameters:
	//   - ctx: Context for cancellation
	//   - target: Path of the file about to be overwritten
	//
	// Returns:
	//   - bool: true if approved, false if denied
	//   - error: Any error that occurred during the approval process
	RequestApproval(ctx context.Context, target string) (bool, error)
}
