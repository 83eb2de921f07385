package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	errs "catalogscraper/pkg/errors"
	"catalogscraper/pkg/logger"
	"catalogscraper/pkg/models"
)

// ErrCorrupt marks persisted state that exists but cannot be decoded
var ErrCorrupt = errors.New("checkpoint state is corrupt")

// State is the persisted form of a Store
type State struct {
	// Results maps group -> subgroup -> record values (URLs or filenames)
	Results map[string]map[string][]string
	// Completed maps group -> subgroups whose results are final
	Completed map[string][]string
	UpdatedAt time.Time
}

// Backend persists whole-store snapshots
type Backend interface {
	// Load returns (nil, nil) when nothing has been persisted yet
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, state *State) error
	Describe() string
}

// Store maps work-item keys to result sets and tracks which keys are
// complete. Every mutation is persisted before Record returns.
type Store struct {
	mu        sync.Mutex
	kind      models.Kind
	results   map[models.Key]*models.ResultSet
	completed map[models.Key]bool
	backend   Backend
	log       logger.Logger
}

// Open loads prior state from backend. Corrupt state is discarded with a
// warning and the store starts empty; other load failures are returned.
func Open(ctx context.Context, backend Backend, kind models.Kind, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	s := &Store{
		kind:      kind,
		results:   make(map[models.Key]*models.ResultSet),
		completed: make(map[models.Key]bool),
		backend:   backend,
		log:       log.WithField("checkpoint", backend.Describe()),
	}

	state, err := backend.Load(ctx)
	switch {
	case errors.Is(err, ErrCorrupt):
		s.log.WithError(err).Warn("Discarding unreadable checkpoint, starting empty")
		return s, nil
	case err != nil:
		return nil, errs.Wrap(errs.ErrorTypeCheckpoint, "", err)
	case state == nil:
		s.log.Info("No checkpoint found, starting empty")
		return s, nil
	}

	for group, subs := range state.Results {
		for sub, values := range subs {
			s.results[models.Key{Group: group, Subgroup: sub}] = models.ResultSetFromValues(kind, values)
		}
	}
	for group, subs := range state.Completed {
		for _, sub := range subs {
			key := models.Key{Group: group, Subgroup: sub}
			if s.results[key].Len() > 0 {
				s.completed[key] = true
			}
		}
	}

	s.log.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"keys":      len(s.results),
		"completed": len(s.completed),
	})
	return s, nil
}

// Record upserts the result set for key and persists the whole store. The key
// is marked complete only when complete is set and rs is non-empty; otherwise
// any earlier completion is cleared. If persisting fails the in-memory change
// is rolled back.
func (s *Store) Record(ctx context.Context, key models.Key, rs *models.ResultSet, complete bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, hadPrev := s.results[key]
	prevDone := s.completed[key]

	if rs == nil {
		rs = models.NewResultSet()
	}
	s.results[key] = rs
	if complete && rs.Len() > 0 {
		s.completed[key] = true
	} else {
		delete(s.completed, key)
	}

	if err := s.backend.Save(ctx, s.stateLocked()); err != nil {
		if hadPrev {
			s.results[key] = prev
		} else {
			delete(s.results, key)
		}
		if prevDone {
			s.completed[key] = true
		} else {
			delete(s.completed, key)
		}
		return errs.Wrap(errs.ErrorTypeCheckpoint, "", fmt.Errorf("persist %s: %w", key, err))
	}

	s.log.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"group":    key.Group,
		"subgroup": key.Subgroup,
		"records":  rs.Len(),
		"complete": s.completed[key],
	})
	return nil
}

// IsComplete reports whether key is complete with a non-empty result set
func (s *Store) IsComplete(key models.Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed[key] && s.results[key].Len() > 0
}

// Get returns the recorded result set for key
func (s *Store) Get(key models.Key) (*models.ResultSet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, ok := s.results[key]
	return rs, ok
}

// Stats returns the number of recorded and completed keys
func (s *Store) Stats() (keys, completed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results), len(s.completed)
}

// Keys returns every recorded key in sorted order
func (s *Store) Keys() []models.Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]models.Key, 0, len(s.results))
	for k := range s.results {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Group != keys[j].Group {
			return keys[i].Group < keys[j].Group
		}
		return keys[i].Subgroup < keys[j].Subgroup
	})
	return keys
}

func (s *Store) stateLocked() *State {
	state := &State{
		Results:   make(map[string]map[string][]string),
		Completed: make(map[string][]string),
		UpdatedAt: time.Now().UTC(),
	}
	for key, rs := range s.results {
		subs, ok := state.Results[key.Group]
		if !ok {
			subs = make(map[string][]string)
			state.Results[key.Group] = subs
		}
		values := rs.Values()
		if values == nil {
			values = []string{}
		}
		subs[key.Subgroup] = values
	}
	for key := range s.completed {
		state.Completed[key.Group] = append(state.Completed[key.Group], key.Subgroup)
	}
	for group := range state.Completed {
		sort.Strings(state.Completed[group])
	}
	return state
}
