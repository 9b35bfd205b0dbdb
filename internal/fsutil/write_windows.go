//go:build windows

package fsutil

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// WriteFile renders the output of write in memory and writes it to path.
// renameio has no Windows implementation.
func WriteFile(path string, write func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
