// Package archive assembles retrieved documents into a single ZIP
// payload, built entirely in memory.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"sort"
)

// Build writes the entries into a DEFLATE-compressed ZIP archive and
// returns its bytes. Entries are written in sorted name order so the
// same inputs always produce the same archive layout. An empty entry
// set yields nil: no documents means no archive, not an empty one.
func Build(entries map[string][]byte) ([]byte, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	for _, name := range names {
		f, err := w.CreateHeader(&zip.FileHeader{
			Name:   name,
			Method: zip.Deflate,
		})
		if err != nil {
			w.Close()
			return nil, fmt.Errorf("create archive entry %q: %w", name, err)
		}
		if _, err := f.Write(entries[name]); err != nil {
			w.Close()
			return nil, fmt.Errorf("write archive entry %q: %w", name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}
