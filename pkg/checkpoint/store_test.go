package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	errs "catalogscraper/pkg/errors"
	"catalogscraper/pkg/logger"
	"catalogscraper/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func links(urls ...string) *models.ResultSet {
	return models.ResultSetFromValues(models.KindLink, urls)
}

func openFileStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(context.Background(), NewFileBackend(path), models.KindLink, logger.NewNopLogger())
	require.NoError(t, err)
	return s
}

// flakyBackend delegates to a real backend and fails every save after the first okSaves
type flakyBackend struct {
	Backend
	mu      sync.Mutex
	okSaves int
	saves   int
}

func (f *flakyBackend) Save(ctx context.Context, state *State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saves > f.okSaves {
		return errors.New("disk full")
	}
	return f.Backend.Save(ctx, state)
}

func TestStoreRecordAndReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "links.json")
	key := models.Key{Group: "woman", Subgroup: "dresses"}

	s := openFileStore(t, path)
	require.NoError(t, s.Record(ctx, key, links("http://x/p0a", "http://x/p0b"), true))
	assert.True(t, s.IsComplete(key))

	reopened := openFileStore(t, path)
	assert.True(t, reopened.IsComplete(key))
	rs, ok := reopened.Get(key)
	require.True(t, ok)
	assert.Equal(t, []string{"http://x/p0a", "http://x/p0b"}, rs.Values())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"woman":{"dresses":["http://x/p0a","http://x/p0b"]}}`, string(raw))

	done, err := os.ReadFile(filepath.Join(filepath.Dir(path), "links.completed.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"woman":["dresses"]}`, string(done))
}

func TestStoreCompletionRequiresRecords(t *testing.T) {
	ctx := context.Background()
	s := openFileStore(t, filepath.Join(t.TempDir(), "links.json"))
	key := models.Key{Group: "man", Subgroup: "shirts"}

	require.NoError(t, s.Record(ctx, key, models.NewResultSet(), true))
	assert.False(t, s.IsComplete(key), "empty result set never completes")

	rs, ok := s.Get(key)
	require.True(t, ok)
	assert.Equal(t, 0, rs.Len())

	require.NoError(t, s.Record(ctx, key, links("http://x/p01"), false))
	assert.False(t, s.IsComplete(key), "partial results are not completion")

	require.NoError(t, s.Record(ctx, key, links("http://x/p01"), true))
	assert.True(t, s.IsComplete(key))

	require.NoError(t, s.Record(ctx, key, links("http://x/p01", "http://x/p02"), false))
	assert.False(t, s.IsComplete(key), "a later incomplete record clears completion")

	keys, completed := s.Stats()
	assert.Equal(t, 1, keys)
	assert.Equal(t, 0, completed)
}

func TestStoreRollbackOnPersistFailure(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "links.json")
	backend := &flakyBackend{Backend: NewFileBackend(path), okSaves: 1}

	s, err := Open(ctx, backend, models.KindLink, nil)
	require.NoError(t, err)

	first := models.Key{Group: "woman", Subgroup: "dresses"}
	second := models.Key{Group: "woman", Subgroup: "coats"}

	require.NoError(t, s.Record(ctx, first, links("http://x/p0a"), true))

	err = s.Record(ctx, second, links("http://x/p0c"), true)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeCheckpoint))
	assert.False(t, s.IsComplete(second))
	_, ok := s.Get(second)
	assert.False(t, ok, "failed record must be rolled back")

	err = s.Record(ctx, first, links("http://x/p0z"), false)
	require.Error(t, err)
	assert.True(t, s.IsComplete(first), "previous completion restored")
	rs, _ := s.Get(first)
	assert.Equal(t, []string{"http://x/p0a"}, rs.Values())
}

func TestStoreCrashSafety(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "links.json")

	const n, k = 6, 3
	keys := make([]models.Key, n)
	for i := range keys {
		keys[i] = models.Key{Group: "woman", Subgroup: fmt.Sprintf("cat%02d", i)}
	}

	backend := &flakyBackend{Backend: NewFileBackend(path), okSaves: k}
	s, err := Open(ctx, backend, models.KindLink, nil)
	require.NoError(t, err)

	for i, key := range keys {
		err := s.Record(ctx, key, links(fmt.Sprintf("http://x/p0%d", i)), true)
		if i < k {
			require.NoError(t, err)
		} else {
			require.Error(t, err)
		}
	}

	restarted := openFileStore(t, path)
	for i, key := range keys {
		if i < k {
			assert.True(t, restarted.IsComplete(key), "item %d should be skipped", i)
		} else {
			assert.False(t, restarted.IsComplete(key), "item %d should be retried", i)
		}
	}
}

func TestStoreCorruptStateFailsSoft(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	tl := logger.NewTestLogger()
	s, err := Open(context.Background(), NewFileBackend(path), models.KindLink, tl)
	require.NoError(t, err)

	keys, _ := s.Stats()
	assert.Equal(t, 0, keys)
	assert.True(t, tl.HasMessage("Discarding unreadable checkpoint"))
}

func TestStoreCompletedWithoutResultsIgnored(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "links.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"woman":{"dresses":[]}}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "links.completed.json"), []byte(`{"woman":["dresses","coats"]}`), 0644))

	s := openFileStore(t, path)
	assert.False(t, s.IsComplete(models.Key{Group: "woman", Subgroup: "dresses"}))
	assert.False(t, s.IsComplete(models.Key{Group: "woman", Subgroup: "coats"}))
}

func TestStoreConcurrentRecords(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "links.json")
	s := openFileStore(t, path)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := models.Key{Group: fmt.Sprintf("g%d", i%3), Subgroup: fmt.Sprintf("s%d", i)}
			assert.NoError(t, s.Record(ctx, key, links(fmt.Sprintf("http://x/p0%d", i)), true))
		}(i)
	}
	wg.Wait()

	reopened := openFileStore(t, path)
	keys, completed := reopened.Stats()
	assert.Equal(t, 20, keys)
	assert.Equal(t, 20, completed)
	assert.Len(t, reopened.Keys(), 20)
}

func TestStoreImageKind(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "images.json")
	key := models.Key{Group: "woman/dresses", Subgroup: "http://x/p0a.html"}

	s, err := Open(ctx, NewFileBackend(path), models.KindImage, nil)
	require.NoError(t, err)

	rs := models.NewResultSet()
	rs.Add(models.Record{Kind: models.KindImage, URL: "http://cdn/1-ult1.jpg?w=1", Filename: "Dress_1-ult1.jpg"})
	require.NoError(t, s.Record(ctx, key, rs, true))

	reopened, err := Open(ctx, NewFileBackend(path), models.KindImage, nil)
	require.NoError(t, err)
	got, ok := reopened.Get(key)
	require.True(t, ok)
	assert.True(t, got.Contains("Dress_1-ult1.jpg"))
	assert.True(t, reopened.IsComplete(key))
}

func TestStoreKeysSortedWithIncomplete(t *testing.T) {
	ctx := context.Background()
	s := openFileStore(t, filepath.Join(t.TempDir(), "links.json"))

	coats := models.Key{Group: "woman", Subgroup: "coats"}
	shirts := models.Key{Group: "man", Subgroup: "shirts"}
	dresses := models.Key{Group: "woman", Subgroup: "dresses"}

	require.NoError(t, s.Record(ctx, dresses, links("http://x/p0a"), true))
	require.NoError(t, s.Record(ctx, coats, links(), false))
	require.NoError(t, s.Record(ctx, shirts, links("http://x/p0b"), false))

	keys := s.Keys()
	assert.Equal(t, []models.Key{shirts, coats, dresses}, keys)

	var pending []models.Key
	for _, k := range keys {
		if !s.IsComplete(k) {
			pending = append(pending, k)
		}
	}
	assert.Equal(t, []models.Key{shirts, coats}, pending)
}
