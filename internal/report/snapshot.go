package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"panicmap/internal/panics"
)

// snapshotSchemaVersion is bumped when Snapshot changes incompatibly.
const snapshotSchemaVersion uint16 = 1

// ErrSnapshotVersion is returned for snapshots of another schema.
var ErrSnapshotVersion = errors.New("unsupported snapshot version")

// Snapshot is the persisted outcome of one analysis.
type Snapshot struct {
	Schema uint16         `msgpack:"schema"`
	Meta   Meta           `msgpack:"meta"`
	Files  []SnapshotFile `msgpack:"files"`
}

// SnapshotFile stores line statuses as bytes.
type SnapshotFile struct {
	Filename  string `msgpack:"filename"`
	Directory string `msgpack:"directory"`
	Lines     []byte `msgpack:"lines"`
}

// NewSnapshot captures a line table.
func NewSnapshot(meta Meta, table *panics.LineTable) *Snapshot {
	s := &Snapshot{Schema: snapshotSchemaVersion, Meta: meta}
	for _, r := range table.Files() {
		lines := make([]byte, len(r.Lines))
		for i, st := range r.Lines {
			lines[i] = byte(st)
		}
		s.Files = append(s.Files, SnapshotFile{Filename: r.Filename, Directory: r.Directory, Lines: lines})
	}
	return s
}

// Table rebuilds the line table.
func (s *Snapshot) Table() (*panics.LineTable, error) {
	t := panics.NewLineTable()
	for _, f := range s.Files {
		lines := make([]panics.LineStatus, len(f.Lines))
		for i, b := range f.Lines {
			st := panics.LineStatus(b)
			if st > panics.Panic {
				return nil, fmt.Errorf("%s: invalid status %d at line %d", f.Filename, b, i)
			}
			if i == 0 && st != panics.NotInBinary {
				return nil, fmt.Errorf("%s: line 0 is set", f.Filename)
			}
			lines[i] = st
		}
		t.Restore(&panics.FileReport{Filename: f.Filename, Directory: f.Directory, Lines: lines})
	}
	return t, nil
}

// WriteSnapshot stores s at path atomically.
func WriteSnapshot(path string, s *Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		// после Rename файла уже нет
		_ = os.Remove(tmp)
	}()

	enc := msgpack.NewEncoder(f)
	if err := enc.Encode(s); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	// Атомарная замена
	return os.Rename(tmp, path)
}

// ReadSnapshot loads a snapshot written by WriteSnapshot.
func ReadSnapshot(path string) (*Snapshot, error) {
	// #nosec G304 -- path is given by the user
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	var s Snapshot
	if err := msgpack.NewDecoder(f).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", path, err)
	}
	if s.Schema != snapshotSchemaVersion {
		return nil, fmt.Errorf("%w: %d (expected %d)", ErrSnapshotVersion, s.Schema, snapshotSchemaVersion)
	}
	return &s, nil
}
