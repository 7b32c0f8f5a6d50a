// Package scheduler runs the ingestion pipeline: periodic feed sweeps through
// per-source circuit breakers into the holding queue, and periodic batches
// that deduplicate, distribute and rewrite the queued articles into briefs.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-pkgz/lgr"
	"golang.org/x/sync/errgroup"

	"github.com/briefwire/briefwire/pkg/breaker"
	"github.com/briefwire/briefwire/pkg/dedup"
	"github.com/briefwire/briefwire/pkg/domain"
	"github.com/briefwire/briefwire/pkg/queue"
	"github.com/briefwire/briefwire/pkg/quota"
)

// SourceStore is the source persistence the scheduler needs
type SourceStore interface {
	GetSources(ctx context.Context, activeOnly bool) ([]domain.Source, error)
	UpdateSourceProbe(ctx context.Context, id string, ts time.Time, errMsg string) error
}

// ArticleStore is the article persistence the scheduler needs
type ArticleStore interface {
	UpsertArticles(ctx context.Context, articles []domain.Article) (int, error)
	MarkBriefGenerated(ctx context.Context, ids []string) error
	ArticlesInWindow(ctx context.Context, start, end time.Time) ([]domain.Article, error)
	CountByCategorySince(ctx context.Context, since time.Time) (map[domain.Category]int, error)
}

// BriefStore is the brief persistence the scheduler needs
type BriefStore interface {
	UpsertBriefs(ctx context.Context, briefs []*domain.Brief) (int, error)
}

// LogStore is the processing log sink
type LogStore interface {
	Append(ctx context.Context, record *domain.ProcessingLog) error
}

// Fetcher retrieves articles from a source feed
type Fetcher interface {
	Fetch(ctx context.Context, src domain.Source) ([]domain.Article, error)
}

// Enricher upgrades stub articles with full page text
type Enricher interface {
	Enrich(ctx context.Context, article *domain.Article) bool
}

// Rewriter turns one article into a brief, or falls back deterministically
type Rewriter interface {
	Rewrite(ctx context.Context, article domain.Article) (*domain.Brief, error)
	Fallback(article domain.Article) *domain.Brief
}

// Novelty filters out articles already present in the store
type Novelty interface {
	IsNew(ctx context.Context, a domain.Article) bool
}

// Config holds scheduler configuration
type Config struct {
	SweepInterval time.Duration
	BatchInterval time.Duration
	StartupDelay  time.Duration
	BatchDeadline time.Duration
	MaxWorkers    int
	Model         string
	PromptVersion string
}

// Scheduler owns the sweep and batch loops
type Scheduler struct {
	sources  SourceStore
	articles ArticleStore
	briefs   BriefStore
	logs     LogStore

	fetcher  Fetcher
	enricher Enricher
	rewriter Rewriter
	novelty  Novelty

	breakers *breaker.Registry
	holding  *queue.Holding
	deduper  *dedup.Deduplicator
	distrib  *quota.Distributor

	cfg Config
	now func() time.Time

	processing atomic.Bool
	lastResult atomic.Pointer[domain.ProcessingResult]

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// Deps bundles the scheduler's collaborators
type Deps struct {
	Sources  SourceStore
	Articles ArticleStore
	Briefs   BriefStore
	Logs     LogStore
	Fetcher  Fetcher
	Enricher Enricher
	Rewriter Rewriter
	Novelty  Novelty
	Breakers *breaker.Registry
	Holding  *queue.Holding
	Dedup    *dedup.Deduplicator
	Quota    *quota.Distributor
}

// NewScheduler creates a scheduler from its collaborators and configuration
func NewScheduler(deps Deps, cfg Config) *Scheduler {
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = 30 * time.Second
	}
	if cfg.BatchInterval == 0 {
		cfg.BatchInterval = 30 * time.Minute
	}
	if cfg.StartupDelay == 0 {
		cfg.StartupDelay = 5 * time.Second
	}
	if cfg.BatchDeadline == 0 {
		cfg.BatchDeadline = 10 * time.Minute
	}
	if cfg.MaxWorkers == 0 {
		cfg.MaxWorkers = 8
	}

	return &Scheduler{
		sources:  deps.Sources,
		articles: deps.Articles,
		briefs:   deps.Briefs,
		logs:     deps.Logs,
		fetcher:  deps.Fetcher,
		enricher: deps.Enricher,
		rewriter: deps.Rewriter,
		novelty:  deps.Novelty,
		breakers: deps.Breakers,
		holding:  deps.Holding,
		deduper:  deps.Dedup,
		distrib:  deps.Quota,
		cfg:      cfg,
		now:      time.Now,
	}
}

// Start begins the sweep and batch loops
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.sweepWorker(ctx)

	s.wg.Add(1)
	go s.batchWorker(ctx)

	lgr.Printf("[INFO] scheduler started, sweep every %v, batch every %v", s.cfg.SweepInterval, s.cfg.BatchInterval)
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	lgr.Printf("[INFO] stopping scheduler...")
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	lgr.Printf("[INFO] scheduler stopped")
}

// sweepWorker fetches all admitted sources on every tick. The first sweep is
// delayed so a restart does not hammer the feeds immediately.
func (s *Scheduler) sweepWorker(ctx context.Context) {
	defer s.wg.Done()

	select {
	case <-ctx.Done():
		return
	case <-time.After(s.cfg.StartupDelay):
	}
	s.Sweep(ctx)

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// batchWorker triggers a batch on the interval and on breaking-news preemption
func (s *Scheduler) batchWorker(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.BatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunBatch(ctx)
		case <-s.holding.Preempt():
			lgr.Printf("[INFO] breaking news preemption, starting batch early")
			s.RunBatch(ctx)
		}
	}
}

// Sweep fetches every active source admitted by its circuit breaker and
// enqueues the novel articles
func (s *Scheduler) Sweep(ctx context.Context) {
	sources, err := s.sources.GetSources(ctx, true)
	if err != nil {
		lgr.Printf("[ERROR] failed to get sources: %v", err)
		return
	}

	workers := s.cfg.MaxWorkers
	if len(sources) < workers {
		workers = len(sources)
	}
	if workers == 0 {
		return
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, src := range sources {
		g.Go(func() error {
			s.sweepSource(ctx, src)
			return nil
		})
	}
	_ = g.Wait()
}

// sweepSource runs one source through admission, fetch and enqueue
func (s *Scheduler) sweepSource(ctx context.Context, src domain.Source) {
	if !s.breakers.Admit(src.ID) {
		lgr.Printf("[DEBUG] source %s skipped, circuit open", src.ID)
		return
	}

	articles, err := s.fetcher.Fetch(ctx, src)
	if err != nil {
		lgr.Printf("[WARN] fetch failed for %s: %v", src.ID, err)
		s.breakers.RecordFailure(src.ID)
		if perr := s.sources.UpdateSourceProbe(ctx, src.ID, s.now(), err.Error()); perr != nil {
			lgr.Printf("[WARN] failed to record probe for %s: %v", src.ID, perr)
		}
		return
	}

	s.breakers.RecordSuccess(src.ID)
	if perr := s.sources.UpdateSourceProbe(ctx, src.ID, s.now(), ""); perr != nil {
		lgr.Printf("[WARN] failed to record probe for %s: %v", src.ID, perr)
	}

	novel := make([]domain.Article, 0, len(articles))
	for _, a := range articles {
		if s.novelty.IsNew(ctx, a) {
			novel = append(novel, a)
		}
	}
	if len(novel) > 0 {
		s.holding.Enqueue(novel)
		lgr.Printf("[INFO] enqueued %d articles from %s", len(novel), src.ID)
	}
}

// Status is a point-in-time view of the pipeline for the control surface
type Status struct {
	QueueSize       int                      `json:"queue_size"`
	QueueByCategory map[domain.Category]int  `json:"queue_by_category"`
	BatchInFlight   bool                     `json:"batch_in_flight"`
	Breakers        map[string]breaker.State `json:"-"`
	BreakerStates   map[string]string        `json:"breakers"`
	LastBatch       *domain.ProcessingResult `json:"last_batch,omitempty"`
}

// Status reports queue depth, breaker states and the last batch outcome
func (s *Scheduler) Status() Status {
	snapshot := s.breakers.Snapshot()
	states := make(map[string]string, len(snapshot))
	for id, st := range snapshot {
		if st.Open {
			states[id] = "open"
		} else {
			states[id] = "closed"
		}
	}
	return Status{
		QueueSize:       s.holding.Size(),
		QueueByCategory: s.holding.ByCategory(),
		BatchInFlight:   s.processing.Load(),
		Breakers:        snapshot,
		BreakerStates:   states,
		LastBatch:       s.lastResult.Load(),
	}
}

// ResetBreaker clears the circuit state for one source
func (s *Scheduler) ResetBreaker(sourceID string) {
	s.breakers.Reset(sourceID)
	lgr.Printf("[INFO] circuit breaker reset for %s", sourceID)
}

// DailyLimits returns current quota consumption for the local day
func (s *Scheduler) DailyLimits(ctx context.Context) (domain.DailyLimits, error) {
	counts, err := s.articles.CountByCategorySince(ctx, s.dayStart())
	if err != nil {
		return domain.DailyLimits{}, err
	}
	return s.distrib.DailyLimits(counts), nil
}

// dayStart is local midnight of the current day
func (s *Scheduler) dayStart() time.Time {
	now := s.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
