//go:build !windows

package fsutil

import (
	"fmt"
	"io"

	"github.com/google/renameio/v2"
)

// WriteFile streams the output of write into a temporary file next to path
// and renames it over path once write succeeds. Existing permissions are
// kept.
func WriteFile(path string, write func(io.Writer) error) error {
	pendingFile, err := renameio.NewPendingFile(path,
		renameio.WithPermissions(0o644),
		renameio.WithExistingPermissions(),
	)
	if err != nil {
		return fmt.Errorf("create pending file: %w", err)
	}
	defer pendingFile.Cleanup()

	if err := write(pendingFile); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace %s: %w", path, err)
	}

	return nil
}
