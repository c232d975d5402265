package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"housing-listings/models"
	"housing-listings/scraper/zillow"
	"housing-listings/storage"
	"housing-listings/utils"
)

var tracer = otel.Tracer("services/ingest")

// Stage is a step of one ingestion run.
type Stage string

const (
	StageIdle            Stage = "Idle"
	StageFetchingCookies Stage = "FetchingCookies"
	StageQueryingSource  Stage = "QueryingSource"
	StageNormalizing     Stage = "Normalizing"
	StagePersisting      Stage = "Persisting"
	StageDone            Stage = "Done"
	StageFailed          Stage = "Failed"
)

// ListingSource returns the raw search results for a query.
type ListingSource interface {
	FetchListings(ctx context.Context, cc *zillow.CookieContext, q models.SearchQuery) ([]models.RawListing, error)
}

// RunResult describes a finished run. FailedAt is set when Stage is Failed.
type RunResult struct {
	Stage    Stage
	FailedAt Stage
	Fetched  int
	Inserted int
	Duration time.Duration
}

// StageError reports the stage an ingestion run failed in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("ingest: %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// SnapshotOpener creates the per-run snapshot sink.
type SnapshotOpener func(run time.Time) (storage.SnapshotWriter, error)

// Ingestor runs the warm-up, search, normalize and persist pipeline.
type Ingestor struct {
	warmer     zillow.Warmer
	source     ListingSource
	normalizer *Normalizer
	query      models.SearchQuery
	snapshot   SnapshotOpener
	logger     *utils.Logger
}

func NewIngestor(warmer zillow.Warmer, source ListingSource, query models.SearchQuery, logger *utils.Logger) *Ingestor {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Ingestor{
		warmer:     warmer,
		source:     source,
		normalizer: NewNormalizer(logger),
		query:      query,
		logger:     logger,
	}
}

// WithSnapshot makes every run also write its normalized listings to the
// sink returned by open. Snapshot failures are logged and never fail a run.
func (i *Ingestor) WithSnapshot(open SnapshotOpener) *Ingestor {
	i.snapshot = open
	return i
}

// Run executes one ingestion against store. The store is not closed.
// Any failing stage ends the run in StageFailed and returns a *StageError.
func (i *Ingestor) Run(ctx context.Context, store storage.ListingStore) (*RunResult, error) {
	ctx, span := tracer.Start(ctx, "Ingest")
	defer span.End()
	span.SetAttributes(attribute.String("query", i.query.Name))

	started := time.Now()
	res := &RunResult{Stage: StageIdle}
	i.logger.Info("[ingest] Starting run for query %q", i.query.Name)

	fail := func(err error) (*RunResult, error) {
		res.FailedAt = res.Stage
		res.Stage = StageFailed
		res.Duration = time.Since(started)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		i.logger.Error("[ingest] Run failed during %s after %s: %v", res.FailedAt, res.Duration, err)
		return res, &StageError{Stage: res.FailedAt, Err: err}
	}

	if err := store.EnsureSchema(ctx); err != nil {
		return fail(err)
	}

	i.advance(res, StageFetchingCookies)
	var cc *zillow.CookieContext
	err := i.stage(ctx, StageFetchingCookies, func(ctx context.Context) error {
		var err error
		cc, err = i.warmer.WarmUp(ctx)
		return err
	})
	if err != nil {
		return fail(err)
	}

	i.advance(res, StageQueryingSource)
	var raw []models.RawListing
	err = i.stage(ctx, StageQueryingSource, func(ctx context.Context) error {
		var err error
		raw, err = i.source.FetchListings(ctx, cc, i.query)
		return err
	})
	if err != nil {
		return fail(err)
	}
	res.Fetched = len(raw)

	i.advance(res, StageNormalizing)
	listings := i.normalizer.Normalize(raw)

	if len(listings) == 0 {
		i.logger.Info("[ingest] No listings returned, nothing to persist")
		return i.finish(res, started, span), nil
	}

	i.writeSnapshot(started, listings)

	i.advance(res, StagePersisting)
	err = i.stage(ctx, StagePersisting, func(ctx context.Context) error {
		var err error
		res.Inserted, err = store.InsertListings(ctx, listings)
		return err
	})
	if err != nil {
		return fail(err)
	}

	return i.finish(res, started, span), nil
}

// RunScoped opens a store, runs once and closes the store exactly once
// whatever the outcome.
func (i *Ingestor) RunScoped(ctx context.Context, open func(ctx context.Context) (storage.Store, error)) (res *RunResult, err error) {
	store, err := open(ctx)
	if err != nil {
		return &RunResult{Stage: StageFailed, FailedAt: StageIdle}, &StageError{Stage: StageIdle, Err: err}
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			i.logger.Warn("[ingest] Closing store: %v", cerr)
			err = errors.Join(err, cerr)
		}
	}()

	return i.Run(ctx, store)
}

func (i *Ingestor) advance(res *RunResult, next Stage) {
	i.logger.Info("[ingest] %s -> %s", res.Stage, next)
	res.Stage = next
}

func (i *Ingestor) stage(ctx context.Context, name Stage, fn func(ctx context.Context) error) error {
	ctx, span := tracer.Start(ctx, string(name))
	defer span.End()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (i *Ingestor) finish(res *RunResult, started time.Time, span trace.Span) *RunResult {
	i.advance(res, StageDone)
	res.Duration = time.Since(started)
	span.SetAttributes(
		attribute.Int("fetched", res.Fetched),
		attribute.Int("inserted", res.Inserted),
	)
	i.logger.Info("[ingest] Done in %s: fetched %d, inserted %d", res.Duration.Round(time.Millisecond), res.Fetched, res.Inserted)
	return res
}

func (i *Ingestor) writeSnapshot(run time.Time, listings []*models.Listing) {
	if i.snapshot == nil {
		return
	}
	w, err := i.snapshot(run)
	if err != nil {
		i.logger.Warn("[ingest] Snapshot unavailable: %v", err)
		return
	}
	defer func() {
		if err := w.Close(); err != nil {
			i.logger.Warn("[ingest] Closing snapshot: %v", err)
		}
	}()
	if err := w.WriteListings(listings); err != nil {
		i.logger.Warn("[ingest] Snapshot write failed: %v", err)
	}
}
