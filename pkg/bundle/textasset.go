package bundle

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/catalogtool/internal/fsutil"
)

// TextAsset is a decoded TextAsset object. Fields after m_Script are kept
// verbatim.
type TextAsset struct {
	Name   []byte
	Script []byte
	Rest   []byte
}

func parseTextAsset(data []byte, order byteOrder) (*TextAsset, error) {
	s := newStream(data, order)

	name, err := s.alignedString()
	if err != nil {
		return nil, fmt.Errorf("failed to read m_Name: %w", err)
	}
	script, err := s.alignedString()
	if err != nil {
		return nil, fmt.Errorf("failed to read m_Script: %w", err)
	}

	return &TextAsset{
		Name:   name,
		Script: script,
		Rest:   append([]byte(nil), data[s.pos:]...),
	}, nil
}

func (t *TextAsset) bytes(order byteOrder) []byte {
	b := appendAlignedString(nil, order, t.Name)
	b = appendAlignedString(b, order, t.Script)
	return append(b, t.Rest...)
}

// TextBundle is a bundle whose first TextAsset can be read and replaced.
// Catalog.bundle stores catalog.json this way.
type TextBundle struct {
	bundle *Bundle
	node   int
	file   *SerializedFile
	object int
	asset  *TextAsset
}

// LoadText reads a bundle from disk and locates its TextAsset.
func LoadText(path string) (*TextBundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle: %w", err)
	}
	return ReadText(data)
}

// ReadText decodes a bundle and locates its TextAsset. Nodes flagged as
// serialized files are searched first.
func ReadText(data []byte) (*TextBundle, error) {
	b, err := Read(data)
	if err != nil {
		return nil, err
	}
	return FindText(b)
}

// FindText locates the first TextAsset of a decoded bundle.
func FindText(b *Bundle) (*TextBundle, error) {
	order := make([]int, 0, len(b.Nodes))
	for i := range b.Nodes {
		if b.Nodes[i].IsSerializedFile() {
			order = append(order, i)
		}
	}
	for i := range b.Nodes {
		if !b.Nodes[i].IsSerializedFile() {
			order = append(order, i)
		}
	}

	errs := []error{ErrNoSerializedFile}
	for _, i := range order {
		file, err := ParseSerializedFile(b.Nodes[i].Data)
		if err != nil {
			errs = append(errs, fmt.Errorf("node %s: %w", b.Nodes[i].Path, err))
			continue
		}
		errs[0] = ErrNoTextAsset

		obj, ok := file.FindObject(ClassTextAsset)
		if !ok {
			continue
		}
		asset, err := parseTextAsset(file.ObjectData(obj), file.order)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", b.Nodes[i].Path, err)
		}

		return &TextBundle{
			bundle: b,
			node:   i,
			file:   file,
			object: obj,
			asset:  asset,
		}, nil
	}

	return nil, errors.Join(errs...)
}

// Bundle returns the underlying archive.
func (t *TextBundle) Bundle() *Bundle {
	return t.bundle
}

// File returns the serialized file holding the TextAsset.
func (t *TextBundle) File() *SerializedFile {
	return t.file
}

// Name returns m_Name of the TextAsset.
func (t *TextBundle) Name() string {
	return string(t.asset.Name)
}

// Text returns m_Script of the TextAsset.
func (t *TextBundle) Text() []byte {
	return t.asset.Script
}

// SetText replaces m_Script and re-lays the serialized file around it.
func (t *TextBundle) SetText(text []byte) error {
	asset := *t.asset
	asset.Script = text

	if err := t.file.ReplaceObject(t.object, asset.bytes(t.file.order)); err != nil {
		return fmt.Errorf("failed to replace TextAsset: %w", err)
	}

	t.asset = &asset
	t.bundle.Nodes[t.node].Data = t.file.Bytes()
	return nil
}

// Write encodes the bundle to w.
func (t *TextBundle) Write(w io.Writer, opts WriteOptions) error {
	return t.bundle.Write(w, opts)
}

// Save atomically writes the bundle to path.
func (t *TextBundle) Save(path string, opts WriteOptions) error {
	return fsutil.WriteFile(path, func(w io.Writer) error {
		return t.bundle.Write(w, opts)
	})
}
