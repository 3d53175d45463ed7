package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bakkerme/jobalert/internal/config"
	"github.com/bakkerme/jobalert/internal/core"
	"github.com/bakkerme/jobalert/internal/dedupe"
	"github.com/bakkerme/jobalert/internal/observability/otelx"
)

// failureOutcome maps a failing stage to the outcome of the run. Fatal stages
// abort the run; recoverable ones are recorded and the run continues.
var failureOutcome = map[core.Stage]core.Outcome{
	core.StageLock:     core.OutcomeFatal,
	core.StageLoad:     core.OutcomeFatal,
	core.StageFetch:    core.OutcomeRecoverable,
	core.StageClassify: core.OutcomeRecoverable,
	core.StageNotify:   core.OutcomeRecoverable,
	core.StageSave:     core.OutcomeFatal,
}

func stageFailure(stage core.Stage, postingID string, err error) core.StageResult {
	outcome, ok := failureOutcome[stage]
	if !ok {
		outcome = core.OutcomeFatal
	}
	return core.StageResult{Stage: stage, Outcome: outcome, PostingID: postingID, Err: err}
}

// Locker guards a run against concurrent runs on the same state.
type Locker interface {
	TryLock() error
	Unlock() error
}

// Options holds the delivery policy of a runner.
type Options struct {
	MarkSeen        config.MarkSeenPolicy
	EmptyNotice     bool
	EmptyNoticeText string
	// RunTimeout bounds a whole run; zero disables the bound.
	RunTimeout time.Duration
}

// OptionsFromDocument reads the delivery section of a document.
func OptionsFromDocument(doc *config.AlertDocument, runTimeout time.Duration) Options {
	return Options{
		MarkSeen:        doc.Delivery.MarkSeen,
		EmptyNotice:     doc.Delivery.EmptyNotice,
		EmptyNoticeText: doc.Delivery.EmptyNoticeText,
		RunTimeout:      runTimeout,
	}
}

type Runner struct {
	logger  *slog.Logger
	store   dedupe.Store
	lock    Locker
	options Options
}

// New builds a runner. lock may be nil when the caller serializes runs itself.
func New(logger *slog.Logger, store dedupe.Store, lock Locker, options Options) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if options.MarkSeen == "" {
		options.MarkSeen = config.MarkSeenOnAttempt
	}
	if options.EmptyNoticeText == "" {
		options.EmptyNoticeText = config.DefaultEmptyNoticeText
	}
	return &Runner{logger: logger, store: store, lock: lock, options: options}
}

// RunOnce performs one lock-load-fetch-classify-notify-save cycle. The
// returned error is non-nil only when a fatal stage failed; the Run record is
// always returned and lists every stage result.
func (r *Runner) RunOnce(ctx context.Context, pipeline *core.Pipeline) (*core.Run, error) {
	if pipeline == nil || pipeline.Source == nil || pipeline.Output == nil {
		return nil, fmt.Errorf("pipeline with a source and an output is required")
	}
	if r.store == nil {
		return nil, fmt.Errorf("seen store is required")
	}

	trigger := core.TriggerFromContext(ctx)
	if trigger == "" {
		trigger = "manual"
	}
	run := &core.Run{
		ID:          uuid.NewString(),
		StartedAt:   time.Now().UTC(),
		Status:      core.RunStatusRunning,
		TriggerType: trigger,
	}

	if r.options.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.options.RunTimeout)
		defer cancel()
	}
	logger := r.logger.With("run_id", run.ID, "pipeline", pipeline.Name)
	ctx = core.WithRunID(core.WithLogger(ctx, logger), run.ID)
	ctx, span := otelx.StartSpan(ctx, "jobalert.run",
		attribute.String("jobalert.run_id", run.ID),
		attribute.String("jobalert.trigger", trigger),
		attribute.String("jobalert.source", pipeline.Source.Name()),
		attribute.String("jobalert.output", pipeline.Output.Name()),
	)

	logger.Info("run started", "trigger", trigger, "source", pipeline.Source.Name(), "output", pipeline.Output.Name())
	err := r.execute(ctx, pipeline, run)

	completedAt := time.Now().UTC()
	run.CompletedAt = &completedAt
	if err != nil {
		run.Status = core.RunStatusFailed
		logger.Error("run failed", "error", err, "duration", completedAt.Sub(run.StartedAt))
	} else {
		run.Status = core.RunStatusCompleted
		logger.Info("run completed",
			"fetched", run.Fetched,
			"relevant", run.Relevant,
			"notified", len(run.Notified),
			"failed", len(run.Failed),
			"seen", run.SeenAfter,
			"duration", completedAt.Sub(run.StartedAt),
		)
	}
	span.SetAttributes(
		attribute.Int("jobalert.fetched", run.Fetched),
		attribute.Int("jobalert.notified", len(run.Notified)),
		attribute.Int("jobalert.failed", len(run.Failed)),
	)
	otelx.EndSpan(span, err)
	return run, err
}

func (r *Runner) execute(ctx context.Context, pipeline *core.Pipeline, run *core.Run) error {
	logger := core.LoggerFromContext(ctx)

	if r.lock != nil {
		if err := r.lock.TryLock(); err != nil {
			return r.fail(run, core.StageLock, fmt.Errorf("acquire run lock: %w", err))
		}
		defer func() {
			if err := r.lock.Unlock(); err != nil {
				logger.Warn("failed to release run lock", "error", err)
			}
		}()
		run.Record(core.Success(core.StageLock))
	}

	seen, err := r.load(ctx)
	if err != nil {
		return r.fail(run, core.StageLoad, fmt.Errorf("load seen set: %w", err))
	}
	run.Record(core.Success(core.StageLoad))
	run.SeenBefore = seen.Len()

	postings := r.fetch(ctx, pipeline.Source, run)
	run.Fetched = len(postings)

	r.deliver(ctx, pipeline, postings, &seen, run)

	if len(run.Notified) == 0 && len(run.Failed) == 0 && r.options.EmptyNotice {
		if err := pipeline.Output.DeliverNotice(ctx, r.options.EmptyNoticeText); err != nil {
			logger.Warn("failed to send empty-run notice", "error", err)
			run.Record(stageFailure(core.StageNotify, "", fmt.Errorf("empty-run notice: %w", err)))
		} else {
			logger.Info("empty-run notice sent")
			run.Record(core.Success(core.StageNotify))
		}
	}

	// Persist even when the run context is done, so delivered postings are
	// not re-sent on the next run.
	saveCtx := context.WithoutCancel(ctx)
	if err := r.save(saveCtx, seen); err != nil {
		return r.fail(run, core.StageSave, fmt.Errorf("save seen set: %w", err))
	}
	run.Record(core.Success(core.StageSave))
	run.SeenAfter = seen.Len()
	return nil
}

func (r *Runner) fail(run *core.Run, stage core.Stage, err error) error {
	result := stageFailure(stage, "", err)
	run.Record(result)
	return result.Err
}

func (r *Runner) load(ctx context.Context) (dedupe.SeenSet, error) {
	ctx, span := otelx.StartSpan(ctx, "jobalert.store.load")
	seen, err := r.store.Load(ctx)
	otelx.EndSpan(span, err)
	return seen, err
}

func (r *Runner) save(ctx context.Context, seen dedupe.SeenSet) error {
	ctx, span := otelx.StartSpan(ctx, "jobalert.store.save", attribute.Int("jobalert.seen", seen.Len()))
	err := r.store.Save(ctx, seen)
	otelx.EndSpan(span, err)
	return err
}

func (r *Runner) fetch(ctx context.Context, source core.SourceProcessor, run *core.Run) []core.Posting {
	logger := core.LoggerFromContext(ctx)
	ctx, span := otelx.StartSpan(ctx, "jobalert.source.fetch", attribute.String("jobalert.source", source.Name()))
	postings, err := source.Fetch(ctx)
	otelx.EndSpan(span, err)
	if err != nil {
		logger.Error("fetch failed, continuing with zero postings", "source", source.Name(), "error", err)
		run.Record(stageFailure(core.StageFetch, "", fmt.Errorf("fetch %s: %w", source.Name(), err)))
		return nil
	}
	logger.Info("fetched postings", "source", source.Name(), "count", len(postings))
	run.Record(core.Success(core.StageFetch))
	return postings
}

// deliver walks postings in source order. A posting is sent at most once per
// run even if the source repeats it.
func (r *Runner) deliver(ctx context.Context, pipeline *core.Pipeline, postings []core.Posting, seen *dedupe.SeenSet, run *core.Run) {
	logger := core.LoggerFromContext(ctx)
	attempted := map[string]struct{}{}

	for _, posting := range postings {
		if !posting.Dedupable() {
			logger.Warn("skipping posting without a usable id", "title", posting.Title)
			continue
		}
		if seen.Contains(posting.ID) {
			logger.Debug("skipping seen posting", "posting_id", posting.ID)
			continue
		}
		if _, ok := attempted[posting.ID]; ok {
			continue
		}

		relevant, err := r.classify(ctx, pipeline.Quality, posting)
		if err != nil {
			logger.Warn("classification failed, posting left unseen", "posting_id", posting.ID, "error", err)
			run.Record(stageFailure(core.StageClassify, posting.ID, err))
			continue
		}
		if !relevant {
			continue
		}
		run.Relevant++
		attempted[posting.ID] = struct{}{}

		if err := r.notify(ctx, pipeline.Output, posting); err != nil {
			logger.Error("delivery failed", "posting_id", posting.ID, "title", posting.Title, "error", err)
			run.Record(stageFailure(core.StageNotify, posting.ID, err))
			run.Failed = append(run.Failed, posting)
			if r.options.MarkSeen == config.MarkSeenOnAttempt {
				seen.Add(posting.ID)
			}
			continue
		}
		logger.Info("posting delivered", "posting_id", posting.ID, "title", posting.Title)
		result := core.Success(core.StageNotify)
		result.PostingID = posting.ID
		run.Record(result)
		run.Notified = append(run.Notified, posting)
		seen.Add(posting.ID)
	}
}

// classify runs the quality gates in order and stops at the first drop.
func (r *Runner) classify(ctx context.Context, gates []core.QualityProcessor, posting core.Posting) (bool, error) {
	logger := core.LoggerFromContext(ctx)
	for _, gate := range gates {
		if gate == nil {
			continue
		}
		result, err := gate.Evaluate(ctx, posting)
		if err != nil {
			return false, fmt.Errorf("%s: %w", gate.Name(), err)
		}
		if !result.Passed() {
			logger.Debug("posting dropped", "posting_id", posting.ID, "processor", gate.Name(), "reason", result.Reason)
			return false, nil
		}
	}
	return true, nil
}

func (r *Runner) notify(ctx context.Context, output core.OutputProcessor, posting core.Posting) error {
	ctx, span := otelx.StartSpan(ctx, "jobalert.output.deliver",
		attribute.String("jobalert.output", output.Name()),
		attribute.String("jobalert.posting_id", posting.ID),
	)
	err := output.Deliver(ctx, posting)
	otelx.EndSpan(span, err)
	return err
}

// Schedule runs the pipeline on each trigger event until ctx is done. Runs
// are sequential; a fatal run is logged and the schedule continues.
func (r *Runner) Schedule(ctx context.Context, pipeline *core.Pipeline) error {
	if pipeline == nil || pipeline.Trigger == nil {
		return fmt.Errorf("pipeline schedule is required")
	}
	events, err := pipeline.Trigger.Start(ctx)
	if err != nil {
		return fmt.Errorf("start %s trigger: %w", pipeline.Trigger.Name(), err)
	}
	defer func() { _ = pipeline.Trigger.Stop() }()

	r.logger.Info("schedule started", "trigger", pipeline.Trigger.Name())
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			r.logger.Info("trigger event", "trigger", pipeline.Trigger.Name(), "time", event.Timestamp)
			runCtx := core.WithTrigger(ctx, pipeline.Trigger.Name())
			if _, err := r.RunOnce(runCtx, pipeline); err != nil {
				if errors.Is(err, dedupe.ErrLocked) {
					r.logger.Warn("skipped scheduled run, another run holds the lock")
					continue
				}
				r.logger.Error("scheduled run failed", "error", err)
			}
		}
	}
}
