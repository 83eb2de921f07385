package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage names a pipeline pass
type Stage string

const (
	StageDiscover Stage = "discover"
	StageDownload Stage = "download"
)

// Key identifies one unit of crawl work. For discovery it is gender x
// category; for downloads it is "gender/category" x product URL.
type Key struct {
	Group    string `json:"group" bson:"group"`
	Subgroup string `json:"subgroup" bson:"subgroup"`
}

func (k Key) String() string {
	return k.Group + " / " + k.Subgroup
}

// WorkItem is one page to visit. Folder holds the asset directory
// components for the download stage and is empty for discovery.
type WorkItem struct {
	Key    Key
	URL    string
	Folder []string
}

// Kind distinguishes link records from image records
type Kind string

const (
	KindLink  Kind = "link"
	KindImage Kind = "image"
)

// Record is one extracted item. Links are unique by URL, images by Filename.
type Record struct {
	Kind     Kind
	URL      string
	Filename string
}

// UniqueKey returns the value two records must not share within a ResultSet
func (r Record) UniqueKey() string {
	if r.Kind == KindImage {
		return r.Filename
	}
	return r.URL
}

// ResultSet is an insertion-ordered set of Records keyed by UniqueKey
type ResultSet struct {
	records []Record
	index   map[string]int
}

// NewResultSet creates an empty set
func NewResultSet() *ResultSet {
	return &ResultSet{index: make(map[string]int)}
}

// Add inserts r unless a record with the same key is present. It reports
// whether r was added.
func (rs *ResultSet) Add(r Record) bool {
	if rs.index == nil {
		rs.index = make(map[string]int)
	}
	key := r.UniqueKey()
	if _, ok := rs.index[key]; ok {
		return false
	}
	rs.index[key] = len(rs.records)
	rs.records = append(rs.records, r)
	return true
}

// Contains reports whether a record with the given unique key is present
func (rs *ResultSet) Contains(key string) bool {
	if rs == nil {
		return false
	}
	_, ok := rs.index[key]
	return ok
}

func (rs *ResultSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.records)
}

// Records returns a copy of the records in insertion order
func (rs *ResultSet) Records() []Record {
	if rs == nil {
		return nil
	}
	out := make([]Record, len(rs.records))
	copy(out, rs.records)
	return out
}

// Values returns the unique keys in insertion order. This is what gets persisted.
func (rs *ResultSet) Values() []string {
	if rs == nil {
		return nil
	}
	out := make([]string, len(rs.records))
	for i, r := range rs.records {
		out[i] = r.UniqueKey()
	}
	return out
}

// ResultSetFromValues rebuilds a persisted set. Link values become URLs and
// image values become filenames.
func ResultSetFromValues(kind Kind, values []string) *ResultSet {
	rs := NewResultSet()
	for _, v := range values {
		if kind == KindImage {
			rs.Add(Record{Kind: KindImage, Filename: v})
		} else {
			rs.Add(Record{Kind: KindLink, URL: v})
		}
	}
	return rs
}

// Outcome is how a single work item ended
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
)

// Summary aggregates one stage run
type Summary struct {
	RunID     string        `json:"run_id"`
	Stage     Stage         `json:"stage"`
	Attempted int           `json:"attempted"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Records   int           `json:"records"`
	Duration  time.Duration `json:"duration"`
	StartedAt time.Time     `json:"started_at"`
}

// NewSummary starts a summary with a fresh run ID
func NewSummary(stage Stage) *Summary {
	return &Summary{
		RunID:     uuid.NewString(),
		Stage:     stage,
		StartedAt: time.Now(),
	}
}

// Count tallies one item outcome. Skipped items are not attempted.
func (s *Summary) Count(o Outcome, records int) {
	switch o {
	case OutcomeSkipped:
		s.Skipped++
		return
	case OutcomeSucceeded:
		s.Succeeded++
	case OutcomeFailed:
		s.Failed++
	}
	s.Attempted++
	s.Records += records
}

// Finish stamps the elapsed time
func (s *Summary) Finish() {
	s.Duration = time.Since(s.StartedAt)
}

func (s *Summary) String() string {
	return fmt.Sprintf("%s run %s: %d attempted, %d succeeded, %d failed, %d skipped in %s",
		s.Stage, s.RunID, s.Attempted, s.Succeeded, s.Failed, s.Skipped, s.Duration.Round(time.Millisecond))
}
