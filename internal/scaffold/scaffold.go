// Package scaffold writes the starter files for tabsync init: a tabsync.yaml
// project file and a .env.example documenting the required environment.
// Templates are embedded; nothing is fetched at runtime.
package scaffold

import (
	"context"
	"embed"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/vvka-141/tabsync/pkg/tabsync"
)

//go:embed all:templates
var templatesFS embed.FS

// GetTemplatesFS returns the embedded templates filesystem for testing purposes.
// This allows tests to access embedded templates without filesystem I/O.
func GetTemplatesFS() embed.FS {
	return templatesFS
}

// Files returns the names of the files Init writes, relative to the target
// directory, in write order.
func Files() ([]string, error) {
	entries, err := templatesFS.ReadDir("templates")
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// Scaffolder writes the embedded starter files into a target directory.
//
// Panics on a nil logger: that is a programmer error, not a runtime
// condition. A nil approver is valid and means existing files are never
// overwritten.
type Scaffolder struct {
	logger   tabsync.Logger
	approver tabsync.Approver
}

// NewScaffolder creates a new Scaffolder.
func NewScaffolder(logger tabsync.Logger, approver tabsync.Approver) *Scaffolder {
	if logger == nil {
		panic("logger is required")
	}
	return &Scaffolder{
		logger:   logger,
		approver: approver,
	}
}

// Init writes the starter files into targetDir, creating the directory when
// missing. Existing files are only replaced after approval; a declined
// approval skips the file and continues. Returns the names of the files
// actually written.
func (s *Scaffolder) Init(ctx context.Context, targetDir string) ([]string, error) {
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create target directory: %w", err)
	}

	names, err := Files()
	if err != nil {
		return nil, fmt.Errorf("failed to list embedded templates: %w", err)
	}

	var written []string
	for _, name := range names {
		content, err := templatesFS.ReadFile(path.Join("templates", name))
		if err != nil {
			return written, fmt.Errorf("failed to read template %s: %w", name, err)
		}

		target := filepath.Join(targetDir, name)
		if _, err := os.Stat(target); err == nil {
			approved, err := s.confirmOverwrite(ctx, target)
			if err != nil {
				return written, err
			}
			if !approved {
				s.logger.Info("Skipped %s", name)
				continue
			}
		} else if !os.IsNotExist(err) {
			return written, fmt.Errorf("failed to check %s: %w", target, err)
		}

		if err := os.WriteFile(target, content, 0644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", target, err)
		}
		s.logger.Verbose("Created file: %s", name)
		written = append(written, name)
	}

	return written, nil
}

func (s *Scaffolder) confirmOverwrite(ctx context.Context, target string) (bool, error) {
	if s.approver == nil {
		return false, fmt.Errorf("%w: %s already exists (rerun with --force to overwrite)",
			tabsync.ErrConfiguration, target)
	}
	return s.approver.RequestApproval(ctx, target)
}

// BuildFileTree creates a visual tree representation of the directory
// structure, used to show the result of an init run.
func BuildFileTree(rootPath string) (string, error) {
	var sb strings.Builder

	// Get absolute path for display
	absPath, err := filepath.Abs(rootPath)
	if err != nil {
		absPath = rootPath
	}

	sb.WriteString(absPath + "/\n")

	// Walk the directory tree
	err = filepath.Walk(rootPath, func(walkPath string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Skip root directory itself
		if walkPath == rootPath {
			return nil
		}

		// Calculate relative path and depth
		relPath, err := filepath.Rel(rootPath, walkPath)
		if err != nil {
			return err
		}

		depth := strings.Count(relPath, string(os.PathSeparator))

		// Build indentation
		indent := ""
		for i := 0; i < depth; i++ {
			indent += "│   "
		}

		// Determine if this is the last item in its directory
		parentDir := filepath.Dir(walkPath)
		entries, err := os.ReadDir(parentDir)
		if err != nil {
			return err
		}

		isLast := false
		baseName := filepath.Base(walkPath)
		for i, entry := range entries {
			if entry.Name() == baseName && i == len(entries)-1 {
				isLast = true
				break
			}
		}

		// Choose branch character
		branch := "├── "
		if isLast {
			branch = "└── "
			if depth > 0 {
				indent = indent[:len(indent)-4] + "    "
			}
		}

		// Format name (add / for directories)
		name := info.Name()
		if info.IsDir() {
			name += "/"
		}

		sb.WriteString(indent + branch + name + "\n")

		return nil
	})

	if err != nil {
		return "", fmt.Errorf("failed to build file tree: %w", err)
	}

	return sb.String(), nil
}
