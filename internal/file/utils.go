package file

import (
	"path/filepath"
	"strings"
)

// path resolves name inside the assets directory and refuses anything that
// would escape it.
func (d *DefaultService) path(name string) (string, error) {
	clean := filepath.Clean(name)
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", ErrAssetNotFound
	}
	return filepath.Join(d.dir, clean), nil
}
