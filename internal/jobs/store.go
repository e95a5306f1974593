package jobs

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Denis-Joly/QuickScript/internal/domain"
)

// Store is the concurrency-safe registry of job records. Records are
// guarded individually so updates to distinct ids never block each other;
// the outer lock only protects map membership.
type Store struct {
	mu      sync.RWMutex
	records map[string]*record
}

type record struct {
	mu  sync.Mutex
	job domain.Job
}

// NewStore creates an empty registry.
func NewStore() *Store {
	return &Store{records: make(map[string]*record)}
}

// Create allocates a fresh id and inserts a queued record.
func (s *Store) Create(source domain.Source, opts domain.Options) domain.Job {
	job := domain.Job{
		ID:        uuid.NewString(),
		Source:    source,
		Stage:     domain.StageQueued,
		Progress:  0,
		Message:   "Job queued",
		Options:   opts,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.records[job.ID] = &record{job: job}
	s.mu.Unlock()

	return job.Clone()
}

// Get returns a snapshot of one record.
func (s *Store) Get(id string) (domain.Job, error) {
	rec, err := s.lookup(id)
	if err != nil {
		return domain.Job{}, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.job.Clone(), nil
}

// Update applies a mutation atomically and returns the resulting snapshot.
func (s *Store) Update(id string, mutate func(*domain.Job)) (domain.Job, error) {
	rec, err := s.lookup(id)
	if err != nil {
		return domain.Job{}, err
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	mutate(&rec.job)
	return rec.job.Clone(), nil
}

// Delete removes a record from the registry.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.records, id)
	return nil
}

// Len reports how many records are registered.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Jobs returns snapshots of all records, newest first.
func (s *Store) Jobs() []domain.Job {
	s.mu.RLock()
	recs := make([]*record, 0, len(s.records))
	for _, rec := range s.records {
		recs = append(recs, rec)
	}
	s.mu.RUnlock()

	out := make([]domain.Job, 0, len(recs))
	for _, rec := range recs {
		rec.mu.Lock()
		out = append(out, rec.job.Clone())
		rec.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *Store) lookup(id string) (*record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return rec, nil
}
