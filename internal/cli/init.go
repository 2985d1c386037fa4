package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vvka-141/tabsync/internal/logging"
	"github.com/vvka-141/tabsync/internal/render"
	"github.com/vvka-141/tabsync/internal/scaffold"
	"github.com/vvka-141/tabsync/internal/ui"
	"github.com/vvka-141/tabsync/pkg/tabsync"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Scaffold a tabsync project",
	Long: `Initialize a tabsync project in the given directory (default: current
directory).

The init command writes:
- tabsync.yaml   project configuration with commented defaults
- .env.example   credential template (copy to .env and fill it in)

Existing files are kept unless you confirm the overwrite or pass --force.

Examples:
  tabsync init                # Initialize in the current directory
  tabsync init ./reports      # Initialize in ./reports
  tabsync init --force        # Overwrite existing files after a countdown`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

var initForce bool

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&initForce, "force", false,
		"Overwrite existing files without prompting (short countdown)")
}

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}
	verbose := getVerboseFlag(cmd)
	logger := logging.NewConsoleLogger(verbose)

	// Overwrites need an explicit go-ahead: --force counts down, a terminal
	// asks, and a non-interactive run without --force refuses.
	var approver tabsync.Approver
	switch {
	case initForce:
		approver = ui.NewForcedApprover(verbose)
	case render.IsInteractive():
		approver = ui.NewInteractiveApprover(verbose)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	scaffolder := scaffold.NewScaffolder(logger, approver)
	written, err := scaffolder.Init(ctx, targetDir)
	if err != nil {
		return fmt.Errorf("init failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "\n✓ Project initialized in '%s' (%d file(s) written)\n\n", targetDir, len(written))
	if tree, treeErr := scaffold.BuildFileTree(targetDir); treeErr == nil {
		fmt.Fprintln(os.Stderr, "Created structure:")
		fmt.Fprint(os.Stderr, tree)
	}

	fmt.Fprintln(os.Stderr, "\nNext steps:")
	if targetDir != "." {
		fmt.Fprintf(os.Stderr, "  cd %s\n", targetDir)
	}
	fmt.Fprintln(os.Stderr, "  cp .env.example .env   # then set DB_USER and DB_PASSWORD")
	fmt.Fprintln(os.Stderr, "  tabsync -f data/users.csv")

	return nil
}
