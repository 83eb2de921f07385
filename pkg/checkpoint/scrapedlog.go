package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	errs "catalogscraper/pkg/errors"
	"catalogscraper/pkg/logger"
	"catalogscraper/pkg/storage"
)

// LogBackend persists the scraped log
type LogBackend interface {
	// Load returns every recorded URL, or nil when nothing is persisted
	Load(ctx context.Context) ([]string, error)
	// Append persists url; all is the full log including url
	Append(ctx context.Context, url string, all []string) error
	Describe() string
}

// ScrapedLog is the durable set of product URLs whose download was attempted
type ScrapedLog struct {
	mu      sync.Mutex
	seen    map[string]bool
	order   []string
	backend LogBackend
	log     logger.Logger
}

// OpenScrapedLog loads the log. Corrupt state starts an empty log with a warning.
func OpenScrapedLog(ctx context.Context, backend LogBackend, log logger.Logger) (*ScrapedLog, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	l := &ScrapedLog{
		seen:    make(map[string]bool),
		backend: backend,
		log:     log.WithField("scraped_log", backend.Describe()),
	}

	urls, err := backend.Load(ctx)
	switch {
	case errors.Is(err, ErrCorrupt):
		l.log.WithError(err).Warn("Discarding unreadable scraped log, starting empty")
		return l, nil
	case err != nil:
		return nil, errs.Wrap(errs.ErrorTypeCheckpoint, "", err)
	}

	for _, u := range urls {
		if !l.seen[u] {
			l.seen[u] = true
			l.order = append(l.order, u)
		}
	}
	l.log.WithField("urls", len(l.order)).Debug("Scraped log loaded")
	return l, nil
}

// Contains reports whether url was already attempted
func (l *ScrapedLog) Contains(url string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seen[url]
}

// Add records url and persists the log. Adding a known URL is a no-op.
func (l *ScrapedLog) Add(ctx context.Context, url string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.seen[url] {
		return nil
	}
	l.seen[url] = true
	l.order = append(l.order, url)

	if err := l.backend.Append(ctx, url, l.order); err != nil {
		delete(l.seen, url)
		l.order = l.order[:len(l.order)-1]
		return errs.Wrap(errs.ErrorTypeCheckpoint, url, err)
	}
	return nil
}

func (l *ScrapedLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order)
}

// FileLog stores the scraped log as a JSON list, rewritten on every add
type FileLog struct {
	path string
}

func NewFileLog(path string) *FileLog {
	return &FileLog{path: path}
}

func (f *FileLog) Describe() string { return f.path }

func (f *FileLog) Load(ctx context.Context) ([]string, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}

	var urls []string
	if err := json.Unmarshal(data, &urls); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, f.path, err)
	}
	return urls, nil
}

func (f *FileLog) Append(ctx context.Context, url string, all []string) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}
	return storage.WriteFileAtomic(f.path, append(data, '\n'))
}
