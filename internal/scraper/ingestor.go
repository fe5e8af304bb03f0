package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"adluc/discovery-service/internal/db"
	"adluc/discovery-service/internal/events"
	"adluc/discovery-service/internal/metrics"
	"adluc/discovery-service/internal/model"
)

// commitTimeout bounds the seed lookups and the final insert even when the
// batch deadline has already passed, so work fetched before the deadline and
// the outage fallback are not thrown away.
const commitTimeout = 30 * time.Second

// ErrShuttingDown is returned by Trigger once Shutdown has been called.
var ErrShuttingDown = errors.New("ingestor is shutting down")

// IngestorConfig is the static configuration of an Ingestor.
type IngestorConfig struct {
	Sources      []string // processed in this order
	PerSourceCap int
	BlockedTerms []string
	BatchTimeout time.Duration
}

// SourceResult is the outcome of fetching and parsing one source.
// Err is set when the source contributed nothing.
type SourceResult struct {
	Source  string
	Entries []model.FeedEntry
	Err     error
}

// Ingestor runs ingestion cycles: fetch → parse → normalise → dedup →
// persist across every configured source, committing one batch per cycle.
type Ingestor struct {
	cfg       IngestorConfig
	fetcher   Fetcher
	parser    *FeedParser
	store     db.ListingStore
	publisher events.Publisher
	metrics   *metrics.Ingest
	logger    *zap.Logger

	flight singleflight.Group

	mu       sync.Mutex
	closing  bool
	inflight sync.WaitGroup
}

// NewIngestor constructs an Ingestor. publisher and m may be nil.
func NewIngestor(
	cfg IngestorConfig,
	fetcher Fetcher,
	store db.ListingStore,
	publisher events.Publisher,
	m *metrics.Ingest,
	logger *zap.Logger,
) *Ingestor {
	if cfg.PerSourceCap < 1 {
		cfg.PerSourceCap = 8
	}
	return &Ingestor{
		cfg:       cfg,
		fetcher:   fetcher,
		parser:    NewFeedParser(),
		store:     store,
		publisher: publisher,
		metrics:   m,
		logger:    logger.Named("ingestor"),
	}
}

// Run executes one ingestion cycle and only logs failures. It is the entry
// point used by the scheduler.
func (i *Ingestor) Run(ctx context.Context) {
	_, err := i.Trigger(ctx)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, ErrShuttingDown):
		i.logger.Debug("ingestion trigger abandoned", zap.Error(err))
	default:
		i.logger.Error("ingestion cycle failed", zap.Error(err))
	}
}

// Trigger runs one cycle, or joins the cycle already in progress. The cycle
// itself is bounded by the batch timeout and is not cancelled when ctx ends;
// a caller whose ctx ends first gets ctx.Err() while the cycle carries on.
// Shutdown waits for such cycles.
func (i *Ingestor) Trigger(ctx context.Context) (*model.IngestReport, error) {
	i.mu.Lock()
	if i.closing {
		i.mu.Unlock()
		return nil, ErrShuttingDown
	}
	i.inflight.Add(1)
	i.mu.Unlock()

	ch := i.flight.DoChan("ingest", func() (any, error) {
		runCtx := context.WithoutCancel(ctx)
		if i.cfg.BatchTimeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(runCtx, i.cfg.BatchTimeout)
			defer cancel()
		}
		return i.RunCycle(runCtx)
	})

	// The shared cycle outlives an impatient caller, so the in-flight count
	// is released when the result arrives, not when Trigger returns.
	done := make(chan singleflight.Result, 1)
	go func() {
		defer i.inflight.Done()
		done <- <-ch
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		report, _ := res.Val.(*model.IngestReport)
		if res.Shared {
			i.logger.Debug("joined in-flight ingestion cycle")
		}
		return report, res.Err
	}
}

// Shutdown refuses new triggers and waits for running cycles to finish, or
// for ctx to end.
func (i *Ingestor) Shutdown(ctx context.Context) error {
	i.mu.Lock()
	i.closing = true
	i.mu.Unlock()

	idle := make(chan struct{})
	go func() {
		i.inflight.Wait()
		close(idle)
	}()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for ingestion cycle: %w", ctx.Err())
	}
}

// RunCycle performs one full pass over every source. Per-source and
// per-entry failures are contained; only a failed commit is returned.
func (i *Ingestor) RunCycle(ctx context.Context) (*model.IngestReport, error) {
	report := &model.IngestReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Sources:   len(i.cfg.Sources),
	}
	log := i.logger.With(zap.String("runId", report.RunID))
	log.Info("ingestion cycle started", zap.Int("sources", report.Sources))

	dedup := NewDeduplicator(i.store)
	var batch []model.Listing

	for idx, src := range i.cfg.Sources {
		if err := ctx.Err(); err != nil {
			skipped := len(i.cfg.Sources) - idx
			report.SourcesFailed += skipped
			log.Warn("batch deadline reached, skipping remaining sources",
				zap.Int("skipped", skipped), zap.Error(err))
			break
		}

		res := i.collect(ctx, src)
		if res.Err != nil {
			report.SourcesFailed++
			i.metrics.SourceFailed(src)
			log.Warn("source failed, continuing", zap.String("source", src), zap.Error(res.Err))
			continue
		}

		report.RawEntries += len(res.Entries)
		batch = append(batch, i.stage(ctx, src, res.Entries, dedup, report)...)
	}

	if report.RawEntries == 0 {
		seedCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
		seeds, dupes := stageSeeds(seedCtx, dedup, log)
		cancel()
		report.FallbackUsed = true
		report.Duplicates += dupes
		batch = append(batch, seeds...)
		log.Warn("no source produced entries, using seed catalog", zap.Int("seedsStaged", len(seeds)))
	}

	report.Staged = len(batch)
	err := i.commit(ctx, batch, report)
	report.Duration = time.Since(report.StartedAt)
	i.metrics.ObserveCycle(report, err)

	if err != nil {
		log.Error("ingestion commit failed", zap.Int("staged", report.Staged), zap.Error(err))
		return report, err
	}

	log.Info("ingestion cycle complete",
		zap.Int("sourcesFailed", report.SourcesFailed),
		zap.Int("rawEntries", report.RawEntries),
		zap.Int("rejected", report.Rejected),
		zap.Int("filtered", report.Filtered),
		zap.Int("duplicates", report.Duplicates),
		zap.Int("inserted", report.Inserted),
		zap.Bool("fallbackUsed", report.FallbackUsed),
		zap.Duration("took", report.Duration),
	)
	i.publish(ctx, report)
	return report, nil
}

// collect fetches and parses one source, keeping at most PerSourceCap
// entries in feed order.
func (i *Ingestor) collect(ctx context.Context, src string) SourceResult {
	body, err := i.fetcher.Fetch(ctx, src)
	if err != nil {
		return SourceResult{Source: src, Err: err}
	}

	entries, err := i.parser.Parse(body)
	if err != nil {
		return SourceResult{Source: src, Err: err}
	}
	if len(entries) > i.cfg.PerSourceCap {
		entries = entries[:i.cfg.PerSourceCap]
	}
	return SourceResult{Source: src, Entries: entries}
}

// stage normalises, filters and dedups one source's entries and returns the
// listings to insert.
func (i *Ingestor) stage(
	ctx context.Context,
	src string,
	entries []model.FeedEntry,
	dedup *Deduplicator,
	report *model.IngestReport,
) []model.Listing {
	class := Classify(src)
	var staged []model.Listing

	for _, e := range entries {
		c, err := NormalizeEntry(e)
		if err != nil {
			report.Rejected++
			continue
		}

		if ContainsBlockedTerm(c.Title, c.Description, i.cfg.BlockedTerms) {
			report.Filtered++
			continue
		}

		unique, err := dedup.Admit(ctx, c.Link)
		if err != nil {
			i.logger.Warn("dedup lookup failed, skipping entry", zap.String("source", src), zap.Error(err))
			continue
		}
		if !unique {
			report.Duplicates++
			continue
		}

		link := c.Link
		staged = append(staged, model.Listing{
			Title:         c.Title,
			Description:   c.Description,
			Category:      model.StringPtr(class.Category),
			ListingKind:   model.StringPtr(class.Kind),
			IsExternal:    true,
			ExternalLink:  &link,
			ExternalImage: c.Image,
		})
	}
	return staged
}

// commit inserts the batch in one transaction. Rows lost to a concurrent
// writer are counted as duplicates.
func (i *Ingestor) commit(ctx context.Context, batch []model.Listing, report *model.IngestReport) error {
	if len(batch) == 0 {
		return nil
	}

	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
	defer cancel()

	n, err := i.store.InsertListings(commitCtx, batch)
	if err != nil {
		return fmt.Errorf("commit %d listing(s): %w", len(batch), err)
	}
	report.Inserted = n
	report.Duplicates += len(batch) - n
	return nil
}

func (i *Ingestor) publish(ctx context.Context, report *model.IngestReport) {
	if i.publisher == nil || report.Inserted == 0 {
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	err := i.publisher.PublishIngested(pubCtx, events.IngestEvent{
		Type:         events.ListingsIngestedChannel,
		RunID:        report.RunID,
		Inserted:     report.Inserted,
		FallbackUsed: report.FallbackUsed,
		At:           time.Now().UTC(),
	})
	if err != nil {
		i.logger.Warn("publish ingestion event failed", zap.String("runId", report.RunID), zap.Error(err))
	}
}
