package jobs

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Denis-Joly/QuickScript/internal/domain"
)

// TestStoreCreateGet verifies creation defaults and snapshot reads.
func TestStoreCreateGet(t *testing.T) {
	s := NewStore()
	job := s.Create(domain.LocalFileSource("/tmp/sample.mp3"), domain.Options{})

	if job.ID == "" {
		t.Fatal("expected non-empty id")
	}
	if job.Stage != domain.StageQueued {
		t.Fatalf("stage = %s, want queued", job.Stage)
	}
	if job.Progress != 0 {
		t.Fatalf("progress = %v, want 0", job.Progress)
	}

	got, err := s.Get(job.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != job.ID {
		t.Fatalf("got id %s, want %s", got.ID, job.ID)
	}
}

// TestStoreGetUnknown checks the not-found error path.
func TestStoreGetUnknown(t *testing.T) {
	s := NewStore()
	if _, err := s.Get("missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if _, err := s.Update("missing", func(*domain.Job) {}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("update err = %v, want ErrNotFound", err)
	}
	if err := s.Delete("missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("delete err = %v, want ErrNotFound", err)
	}
}

// TestStoreSnapshotIsolation verifies readers cannot mutate stored state.
func TestStoreSnapshotIsolation(t *testing.T) {
	s := NewStore()
	job := s.Create(domain.LocalFileSource("/tmp/a.mp3"), domain.Options{})

	_, err := s.Update(job.ID, func(j *domain.Job) {
		j.ResultPaths = map[domain.Format]string{domain.FormatMarkdown: "/tmp/out.md"}
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	snap, _ := s.Get(job.ID)
	snap.ResultPaths[domain.FormatMarkdown] = "tampered"
	snap.Message = "tampered"

	got, _ := s.Get(job.ID)
	if got.ResultPaths[domain.FormatMarkdown] != "/tmp/out.md" {
		t.Fatalf("stored result path mutated through snapshot: %q", got.ResultPaths[domain.FormatMarkdown])
	}
	if got.Message == "tampered" {
		t.Fatal("stored message mutated through snapshot")
	}
}

// TestStoreConcurrentCreatesDistinctIDs checks id uniqueness under load.
func TestStoreConcurrentCreatesDistinctIDs(t *testing.T) {
	s := NewStore()
	const n = 64

	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- s.Create(domain.RemoteURLSource("https://example.com/a.mp3"), domain.Options{}).ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool, n)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id: %s", id)
		}
		seen[id] = true
	}
	if s.Len() != n {
		t.Fatalf("len = %d, want %d", s.Len(), n)
	}
}

// TestStoreConcurrentUpdatesSerialized checks same-id updates never tear.
func TestStoreConcurrentUpdatesSerialized(t *testing.T) {
	s := NewStore()
	job := s.Create(domain.LocalFileSource("/tmp/a.mp3"), domain.Options{})

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Update(job.ID, func(j *domain.Job) {
				j.Progress += 0.001
			})
		}()
	}
	wg.Wait()

	got, _ := s.Get(job.ID)
	want := float64(n) * 0.001
	if got.Progress < want-1e-9 || got.Progress > want+1e-9 {
		t.Fatalf("progress = %v, want %v (lost update)", got.Progress, want)
	}
}

// TestStoreJobsNewestFirst verifies list ordering.
func TestStoreJobsNewestFirst(t *testing.T) {
	s := NewStore()
	first := s.Create(domain.LocalFileSource("/tmp/a.mp3"), domain.Options{})
	time.Sleep(time.Millisecond)
	second := s.Create(domain.LocalFileSource("/tmp/b.mp3"), domain.Options{})

	all := s.Jobs()
	if len(all) != 2 {
		t.Fatalf("jobs len = %d, want 2", len(all))
	}
	if all[0].ID != second.ID || all[1].ID != first.ID {
		t.Fatalf("order = [%s %s], want newest first", all[0].ID, all[1].ID)
	}
}
