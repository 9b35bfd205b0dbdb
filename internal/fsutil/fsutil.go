// Package fsutil writes output files so that a failed write never leaves a
// truncated catalog or bundle behind.
package fsutil

import (
	"bytes"
	"io"
)

// WriteBytes atomically replaces path with data.
func WriteBytes(path string, data []byte) error {
	return WriteFile(path, func(w io.Writer) error {
		_, err := io.Copy(w, bytes.NewReader(data))
		return err
	})
}
