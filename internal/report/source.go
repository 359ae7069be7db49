package report

import (
	"bufio"
	"bytes"
	"errors"
	"os"
	"path/filepath"

	"panicmap/internal/panics"
)

// SourcePath resolves where the text of a reported file lives. Relative
// names are taken against the compilation directory, then root.
func SourcePath(rep *panics.FileReport, root string) string {
	name := filepath.FromSlash(rep.Filename)
	switch {
	case filepath.IsAbs(name):
		return name
	case rep.Directory != "":
		return filepath.Join(filepath.FromSlash(rep.Directory), name)
	case root != "":
		return filepath.Join(root, name)
	default:
		return name
	}
}

// readSource returns the lines of a file; a missing file yields nil.
// Files of the standard library are usually not on disk.
func readSource(p string) ([]string, error) {
	// #nosec G304 -- paths come from debug info of the analysed binary
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
			return nil, nil
		}
		return nil, err
	}
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 4096), 16<<20)
	for sc.Scan() {
		lines = append(lines, string(bytes.TrimSuffix(sc.Bytes(), []byte{'\r'})))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
