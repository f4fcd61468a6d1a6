package file

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"sync"
)

// Service serves static files shipped with the bot and remembers the
// Telegram file id of each one once it has been uploaded.
type Service interface {
	Open(name string) (io.ReadCloser, error)
	CachedID(name string) (string, bool)
	Remember(name, fileID string)
	Forget(name string)
	Missing(names ...string) ([]string, error)
}

type DefaultService struct {
	dir string
	ids map[string]string
	mu  sync.RWMutex
}

func NewDefaultService(dir string) *DefaultService {
	return &DefaultService{
		dir: dir,
		ids: make(map[string]string),
	}
}

func (d *DefaultService) Open(name string) (io.ReadCloser, error) {
	path, err := d.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrAssetNotFound
		}
		return nil, &ErrOpenFile{Err: err}
	}
	return f, nil
}

func (d *DefaultService) CachedID(name string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	id, ok := d.ids[name]
	return id, ok
}

func (d *DefaultService) Remember(name, fileID string) {
	if fileID == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	d.ids[name] = fileID
}

// Forget drops a cached id, e.g. after Telegram rejected it.
func (d *DefaultService) Forget(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.ids, name)
}

// Missing reports which of names are absent from the assets directory.
func (d *DefaultService) Missing(names ...string) ([]string, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, &ErrReadDir{Err: err}
	}
	present := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			present[e.Name()] = struct{}{}
		}
	}

	var missing []string
	for _, name := range names {
		if _, ok := present[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing, nil
}
