package cargo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ManifestName is the cargo package manifest.
const ManifestName = "Cargo.toml"

type manifest struct {
	Package struct {
		Name string `toml:"name"`
	} `toml:"package"`
}

// PackageName reads [package].name from dir/Cargo.toml. ok is false when
// there is no manifest or it is a virtual workspace manifest.
func PackageName(dir string) (name string, ok bool, err error) {
	p := filepath.Join(dir, ManifestName)
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to stat %q: %w", p, err)
	}
	var m manifest
	if _, err := toml.DecodeFile(p, &m); err != nil {
		return "", false, fmt.Errorf("%s: failed to parse TOML: %w", p, err)
	}
	if m.Package.Name == "" {
		return "", false, nil
	}
	return m.Package.Name, true, nil
}
