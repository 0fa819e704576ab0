package janitor

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dreamcanvas-ai/dreamcanvas-backend/internal/designs/storage"
)

const designsPrefix = "designs/"

// RecordLister exposes the metadata side of the audit.
// *repository.DesignRepo satisfies it.
type RecordLister interface {
	ListImageURLs(ctx context.Context) ([]string, error)
}

// Audit counts stored blobs that no design record references. It only
// reports: a record-write failure after upload intentionally leaves an
// orphan behind, and whether those get reclaimed is a product decision,
// not this job's.
type Audit struct {
	store storage.ObjectStore
	repo  RecordLister
}

func NewAudit(store storage.ObjectStore, repo RecordLister) *Audit {
	return &Audit{store: store, repo: repo}
}

// Report is one audit pass over the stores.
type Report struct {
	Blobs      int
	Records    int
	Orphans    []string
	DanglingAt []string // record URLs whose blob is gone
}

func (a *Audit) Run(ctx context.Context) (*Report, error) {
	paths, err := a.store.ListPrefix(ctx, designsPrefix)
	if err != nil {
		return nil, err
	}

	urls, err := a.repo.ListImageURLs(ctx)
	if err != nil {
		return nil, err
	}

	referenced := make(map[string]string, len(urls))
	for _, u := range urls {
		path, err := a.store.PathFromURL(u)
		if err != nil {
			log.Printf("[audit] cannot derive path from %s: %v", u, err)
			continue
		}
		referenced[path] = u
	}

	stored := make(map[string]bool, len(paths))
	report := &Report{Blobs: len(paths), Records: len(urls)}
	for _, p := range paths {
		stored[p] = true
		if _, ok := referenced[p]; !ok {
			report.Orphans = append(report.Orphans, p)
		}
	}
	for p, u := range referenced {
		if !stored[p] {
			report.DanglingAt = append(report.DanglingAt, u)
		}
	}

	log.Printf("[audit] blobs=%d records=%d orphans=%d dangling=%d",
		report.Blobs, report.Records, len(report.Orphans), len(report.DanglingAt))
	return report, nil
}

// Scheduler runs the audit nightly.
type Scheduler struct {
	audit *Audit
}

func NewScheduler(audit *Audit) *Scheduler {
	return &Scheduler{audit: audit}
}

// Start initializes the cron task (nightly at 12:00AM).
func (s *Scheduler) Start() {
	c := cron.New(cron.WithSeconds())

	_, err := c.AddFunc("0 0 0 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := s.audit.Run(ctx); err != nil {
			log.Printf("[audit] nightly run failed: %v", err)
		}
	})
	if err != nil {
		log.Printf("Failed to create cron job: %v", err)
		return
	}

	log.Println("Cron scheduler started (orphan audit nightly at 12:00AM)")
	c.Start()
}
