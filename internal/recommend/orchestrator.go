package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	defaultWorkers       = 4
	defaultBatchDeadline = 5 * time.Minute
)

// OrchestratorOptions tunes a refresh batch run.
type OrchestratorOptions struct {
	// Workers bounds how many districts are refreshed concurrently.
	Workers int
	// BatchDeadline caps one whole batch; districts not started by then are
	// recorded as timed out.
	BatchDeadline time.Duration
	Logger        *slog.Logger
}

// Orchestrator runs one refresh batch: for every tracked district it fetches
// provider data, persists the normalized reading and recomputes the score.
// All collaborators are injected so batches are deterministic under test.
type Orchestrator struct {
	districts DistrictStore
	provider  Provider
	repo      ReadingRepository
	scorer    *Scorer
	workers   int
	deadline  time.Duration
	log       *slog.Logger
}

// NewOrchestrator wires the pipeline components together.
func NewOrchestrator(districts DistrictStore, provider Provider, repo ReadingRepository, scorer *Scorer, opts OrchestratorOptions) *Orchestrator {
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	deadline := opts.BatchDeadline
	if deadline <= 0 {
		deadline = defaultBatchDeadline
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		districts: districts,
		provider:  provider,
		repo:      repo,
		scorer:    scorer,
		workers:   workers,
		deadline:  deadline,
		log:       log,
	}
}

// Run executes one batch. Only a failure to enumerate districts is fatal;
// every per-district failure is converted into a recorded outcome so the
// batch always covers all districts.
func (o *Orchestrator) Run(ctx context.Context) (BatchResult, error) {
	batch := BatchResult{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}

	districts, err := o.districts.All(ctx)
	if err != nil {
		return batch, fmt.Errorf("enumerate districts: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, o.deadline)
	defer cancel()

	o.log.Info("refresh batch started", "batch", batch.ID, "districts", len(districts))

	jobs := make(chan District)
	results := make(chan Outcome)

	var wg sync.WaitGroup
	for i := 0; i < o.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range jobs {
				results <- o.refreshDistrict(ctx, d)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, d := range districts {
			jobs <- d
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	for out := range results {
		if !out.OK() {
			o.log.Warn("district refresh failed",
				"batch", batch.ID, "district", out.DistrictID, "kind", out.Kind, "error", out.Err)
		}
		batch.Outcomes = append(batch.Outcomes, out)
	}

	batch.FinishedAt = time.Now().UTC()
	o.log.Info("refresh batch completed",
		"batch", batch.ID,
		"succeeded", batch.Succeeded(),
		"failed", batch.Failed(),
		"duration", batch.FinishedAt.Sub(batch.StartedAt))
	return batch, nil
}

// refreshDistrict runs the strictly sequential fetch -> persist -> score path
// for one district. A district whose turn comes after the deadline is skipped
// before any fetch starts, so there are no partial writes for cancelled work.
func (o *Orchestrator) refreshDistrict(ctx context.Context, d District) Outcome {
	select {
	case <-ctx.Done():
		return Outcome{DistrictID: d.ID, Kind: KindTimedOut, Err: E(KindTimedOut, "refresh", ctx.Err())}
	default:
	}

	reading, err := o.provider.Fetch(ctx, d.Latitude, d.Longitude)
	if err != nil {
		return Outcome{DistrictID: d.ID, Kind: KindOf(err), Err: err}
	}

	reading.DistrictID = d.ID
	if reading.Timestamp.IsZero() {
		reading.Timestamp = time.Now().UTC()
	}

	score := o.scorer.Score(reading)

	if _, err := o.repo.UpsertCurrent(ctx, reading, score); err != nil {
		return Outcome{DistrictID: d.ID, Kind: KindOf(err), Err: err}
	}

	return Outcome{DistrictID: d.ID, Score: &score}
}
