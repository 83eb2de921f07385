package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Manager places downloaded assets under <root>/<folder...>/<filename> and
// remembers which files are already on disk.
type Manager struct {
	root  string
	known map[string]bool
	mu    sync.RWMutex
}

// NewManager creates root if needed
func NewManager(root string) (*Manager, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &Manager{root: root, known: make(map[string]bool)}, nil
}

// Path returns the on-disk location of an asset. Path components are
// sanitized so a hostile filename cannot escape root.
func (m *Manager) Path(folder []string, filename string) string {
	parts := make([]string, 0, len(folder)+2)
	parts = append(parts, m.root)
	for _, f := range folder {
		parts = append(parts, sanitize(f))
	}
	parts = append(parts, sanitize(filename))
	return filepath.Join(parts...)
}

func sanitize(component string) string {
	c := strings.NewReplacer("/", "_", "\\", "_", "\x00", "").Replace(component)
	c = strings.TrimSpace(c)
	if c == "" || c == "." || c == ".." {
		return "_"
	}
	return c
}

// Exists reports whether the asset is already on disk
func (m *Manager) Exists(folder []string, filename string) bool {
	p := m.Path(folder, filename)

	m.mu.RLock()
	known := m.known[p]
	m.mu.RUnlock()
	if known {
		return true
	}

	if info, err := os.Stat(p); err == nil && !info.IsDir() {
		m.mu.Lock()
		m.known[p] = true
		m.mu.Unlock()
		return true
	}
	return false
}

// Save writes r to the asset path atomically. A partially written file is
// never visible under the final name.
func (m *Manager) Save(r io.Reader, folder []string, filename string) error {
	p := m.Path(folder, filename)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("failed to create asset directory: %w", err)
	}

	if err := writeAtomic(p, func(w io.Writer) error {
		_, err := io.Copy(w, r)
		return err
	}); err != nil {
		return err
	}

	m.mu.Lock()
	m.known[p] = true
	m.mu.Unlock()
	return nil
}

// Root returns the output directory
func (m *Manager) Root() string {
	return m.root
}

// Count walks root and returns the number of asset files on disk
func (m *Manager) Count() (int, error) {
	n := 0
	err := filepath.WalkDir(m.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && !strings.HasSuffix(d.Name(), ".tmp") {
			n++
		}
		return nil
	})
	return n, err
}

// WriteFileAtomic replaces path with data via a synced temp file and rename
func WriteFileAtomic(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	return writeAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

func writeAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}
