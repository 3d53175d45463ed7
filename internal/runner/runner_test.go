package runner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakkerme/jobalert/internal/config"
	"github.com/bakkerme/jobalert/internal/core"
	"github.com/bakkerme/jobalert/internal/dedupe"
	"github.com/bakkerme/jobalert/internal/processors/quality"
)

type memoryStore struct {
	saved   dedupe.SeenSet
	loadErr error
	saveErr error
	saves   int
}

func (s *memoryStore) Load(context.Context) (dedupe.SeenSet, error) {
	if s.loadErr != nil {
		return dedupe.SeenSet{}, s.loadErr
	}
	return s.saved.Clone(), nil
}

func (s *memoryStore) Save(_ context.Context, seen dedupe.SeenSet) error {
	s.saves++
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = seen.Clone()
	return nil
}

func (s *memoryStore) Close() error { return nil }

type staticSource struct {
	postings []core.Posting
	err      error
}

func (s *staticSource) Name() string { return "static" }
func (s *staticSource) Validate() error { return nil }
func (s *staticSource) Fetch(context.Context) ([]core.Posting, error) {
	return s.postings, s.err
}

type recordingOutput struct {
	delivered []string
	notices   []string
	failIDs   map[string]bool
}

func (o *recordingOutput) Name() string { return "recording" }
func (o *recordingOutput) Validate() error { return nil }
func (o *recordingOutput) Deliver(_ context.Context, posting core.Posting) error {
	if o.failIDs[posting.ID] {
		return errors.New("sink rejected message")
	}
	o.delivered = append(o.delivered, posting.ID)
	return nil
}
func (o *recordingOutput) DeliverNotice(_ context.Context, body string) error {
	o.notices = append(o.notices, body)
	return nil
}

type failingQuality struct{}

func (failingQuality) Name() string { return "broken" }
func (failingQuality) Validate() error { return nil }
func (failingQuality) Evaluate(context.Context, core.Posting) (core.QualityResult, error) {
	return core.QualityResult{}, errors.New("expression failed")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newPipeline(t *testing.T, source core.SourceProcessor, output core.OutputProcessor) *core.Pipeline {
	t.Helper()
	rules := config.DefaultRules()
	keywords, err := quality.NewKeywordProcessor(&rules)
	require.NoError(t, err)
	return &core.Pipeline{
		Name:    "test",
		Source:  source,
		Quality: []core.QualityProcessor{keywords},
		Output:  output,
	}
}

func relevant(id string) core.Posting {
	return core.Posting{ID: id, Title: "Graduate Engineer " + id, Company: "Acme", Location: "India"}
}

func TestRunOnceNotifiesOnlyNewRelevantPostings(t *testing.T) {
	store := &memoryStore{saved: dedupe.NewSeenSet("seen-1")}
	source := &staticSource{postings: []core.Posting{
		relevant("new-1"),
		relevant("seen-1"),
		{ID: "senior-1", Title: "Senior Engineer"},
		{ID: "", Title: "Graduate without id"},
		{ID: "bad\nid", Title: "Graduate with newline"},
		relevant("new-1"),
		relevant("new-2"),
	}}
	output := &recordingOutput{}

	run, err := New(testLogger(), store, nil, Options{}).RunOnce(context.Background(), newPipeline(t, source, output))
	require.NoError(t, err)

	assert.Equal(t, core.RunStatusCompleted, run.Status)
	assert.Equal(t, []string{"new-1", "new-2"}, output.delivered)
	assert.Equal(t, 7, run.Fetched)
	assert.Equal(t, 2, run.Relevant)
	assert.Equal(t, 1, run.SeenBefore)
	assert.Equal(t, 3, run.SeenAfter)
	assert.Equal(t, []string{"new-1", "new-2", "seen-1"}, store.saved.IDs())
	assert.Equal(t, 1, store.saves)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "manual", run.TriggerType)
}

func TestRunOnceIsIdempotent(t *testing.T) {
	store := &memoryStore{}
	source := &staticSource{postings: []core.Posting{relevant("a"), relevant("b")}}
	output := &recordingOutput{}
	r := New(testLogger(), store, nil, Options{})
	pipeline := newPipeline(t, source, output)

	_, err := r.RunOnce(context.Background(), pipeline)
	require.NoError(t, err)
	run, err := r.RunOnce(context.Background(), pipeline)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, output.delivered)
	assert.Empty(t, run.Notified)
	assert.Equal(t, 2, run.SeenAfter)
}

func TestRunOnceSeenSetIsMonotonic(t *testing.T) {
	store := &memoryStore{saved: dedupe.NewSeenSet("old-1", "old-2")}
	source := &staticSource{postings: []core.Posting{relevant("new")}}
	_, err := New(testLogger(), store, nil, Options{}).RunOnce(context.Background(), newPipeline(t, source, &recordingOutput{}))
	require.NoError(t, err)
	for _, id := range []string{"old-1", "old-2", "new"} {
		assert.True(t, store.saved.Contains(id), "expected %s to stay seen", id)
	}
}

func TestRunOnceFetchFailureIsRecoverable(t *testing.T) {
	store := &memoryStore{saved: dedupe.NewSeenSet("x")}
	source := &staticSource{err: errors.New("adzuna: status 503")}
	output := &recordingOutput{}

	run, err := New(testLogger(), store, nil, Options{EmptyNotice: true}).RunOnce(context.Background(), newPipeline(t, source, output))
	require.NoError(t, err)

	assert.Equal(t, core.RunStatusCompleted, run.Status)
	assert.Empty(t, output.delivered)
	assert.Equal(t, []string{config.DefaultEmptyNoticeText}, output.notices)
	assert.Equal(t, []string{"x"}, store.saved.IDs())
	assert.Equal(t, 1, store.saves)

	var fetchResult core.StageResult
	for _, result := range run.Results {
		if result.Stage == core.StageFetch {
			fetchResult = result
		}
	}
	assert.Equal(t, core.OutcomeRecoverable, fetchResult.Outcome)
	assert.Error(t, fetchResult.Err)
}

func TestRunOnceEmptyNoticeOnlyWhenEnabledAndEmpty(t *testing.T) {
	output := &recordingOutput{}
	source := &staticSource{postings: []core.Posting{{ID: "1", Title: "Senior Engineer"}}}
	_, err := New(testLogger(), &memoryStore{}, nil, Options{}).RunOnce(context.Background(), newPipeline(t, source, output))
	require.NoError(t, err)
	assert.Empty(t, output.notices)

	busy := &recordingOutput{}
	_, err = New(testLogger(), &memoryStore{}, nil, Options{EmptyNotice: true}).RunOnce(
		context.Background(),
		newPipeline(t, &staticSource{postings: []core.Posting{relevant("1")}}, busy),
	)
	require.NoError(t, err)
	assert.Empty(t, busy.notices)
}

func TestRunOnceDeliveryFailurePolicies(t *testing.T) {
	postings := []core.Posting{relevant("ok"), relevant("fails")}

	cases := []struct {
		policy   config.MarkSeenPolicy
		wantSeen []string
	}{
		{policy: config.MarkSeenOnAttempt, wantSeen: []string{"fails", "ok"}},
		{policy: config.MarkSeenOnSuccess, wantSeen: []string{"ok"}},
	}
	for _, tc := range cases {
		t.Run(string(tc.policy), func(t *testing.T) {
			store := &memoryStore{}
			output := &recordingOutput{failIDs: map[string]bool{"fails": true}}
			run, err := New(testLogger(), store, nil, Options{MarkSeen: tc.policy}).RunOnce(
				context.Background(),
				newPipeline(t, &staticSource{postings: postings}, output),
			)
			require.NoError(t, err)
			assert.Equal(t, core.RunStatusCompleted, run.Status)
			assert.Equal(t, []string{"ok"}, output.delivered)
			require.Len(t, run.Failed, 1)
			assert.Equal(t, "fails", run.Failed[0].ID)
			assert.Equal(t, tc.wantSeen, store.saved.IDs())
		})
	}
}

func TestRunOnceOnSuccessRetriesFailedDeliveryNextRun(t *testing.T) {
	store := &memoryStore{}
	output := &recordingOutput{failIDs: map[string]bool{"flaky": true}}
	r := New(testLogger(), store, nil, Options{MarkSeen: config.MarkSeenOnSuccess})
	pipeline := newPipeline(t, &staticSource{postings: []core.Posting{relevant("flaky")}}, output)

	_, err := r.RunOnce(context.Background(), pipeline)
	require.NoError(t, err)
	assert.Empty(t, output.delivered)

	output.failIDs = nil
	_, err = r.RunOnce(context.Background(), pipeline)
	require.NoError(t, err)
	assert.Equal(t, []string{"flaky"}, output.delivered)
	assert.True(t, store.saved.Contains("flaky"))
}

func TestRunOnceLoadFailureIsFatal(t *testing.T) {
	store := &memoryStore{loadErr: errors.New("permission denied")}
	output := &recordingOutput{}
	run, err := New(testLogger(), store, nil, Options{}).RunOnce(
		context.Background(),
		newPipeline(t, &staticSource{postings: []core.Posting{relevant("a")}}, output),
	)
	require.Error(t, err)
	assert.Equal(t, core.RunStatusFailed, run.Status)
	assert.Empty(t, output.delivered)
	assert.Zero(t, store.saves)

	fatal, ok := run.FatalResult()
	require.True(t, ok)
	assert.Equal(t, core.StageLoad, fatal.Stage)
}

func TestRunOnceSaveFailureIsFatal(t *testing.T) {
	store := &memoryStore{saveErr: errors.New("disk full")}
	output := &recordingOutput{}
	run, err := New(testLogger(), store, nil, Options{}).RunOnce(
		context.Background(),
		newPipeline(t, &staticSource{postings: []core.Posting{relevant("a")}}, output),
	)
	require.Error(t, err)
	assert.Equal(t, core.RunStatusFailed, run.Status)
	assert.Equal(t, []string{"a"}, output.delivered)

	fatal, ok := run.FatalResult()
	require.True(t, ok)
	assert.Equal(t, core.StageSave, fatal.Stage)
}

func TestRunOnceClassificationErrorLeavesPostingUnseen(t *testing.T) {
	store := &memoryStore{}
	output := &recordingOutput{}
	pipeline := newPipeline(t, &staticSource{postings: []core.Posting{relevant("a")}}, output)
	pipeline.Quality = append(pipeline.Quality, failingQuality{})

	run, err := New(testLogger(), store, nil, Options{}).RunOnce(context.Background(), pipeline)
	require.NoError(t, err)
	assert.Empty(t, output.delivered)
	assert.Equal(t, 0, store.saved.Len())

	var classify []core.StageResult
	for _, result := range run.Results {
		if result.Stage == core.StageClassify {
			classify = append(classify, result)
		}
	}
	require.Len(t, classify, 1)
	assert.Equal(t, core.OutcomeRecoverable, classify[0].Outcome)
	assert.Equal(t, "a", classify[0].PostingID)
}

func TestRunOnceLockContentionIsFatal(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "jobalert.lock")
	holder, err := dedupe.NewRunLock(lockPath)
	require.NoError(t, err)
	require.NoError(t, holder.TryLock())
	t.Cleanup(func() { _ = holder.Unlock() })

	lock, err := dedupe.NewRunLock(lockPath)
	require.NoError(t, err)
	store := &memoryStore{}
	output := &recordingOutput{}
	run, err := New(testLogger(), store, lock, Options{}).RunOnce(
		context.Background(),
		newPipeline(t, &staticSource{postings: []core.Posting{relevant("a")}}, output),
	)
	require.ErrorIs(t, err, dedupe.ErrLocked)
	assert.Equal(t, core.RunStatusFailed, run.Status)
	assert.Empty(t, output.delivered)
	assert.Zero(t, store.saves)

	require.NoError(t, holder.Unlock())
	_, err = New(testLogger(), store, lock, Options{}).RunOnce(
		context.Background(),
		newPipeline(t, &staticSource{postings: []core.Posting{relevant("a")}}, output),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, output.delivered)
}

func TestRunOnceRejectsIncompletePipeline(t *testing.T) {
	r := New(testLogger(), &memoryStore{}, nil, Options{})
	_, err := r.RunOnce(context.Background(), &core.Pipeline{})
	assert.Error(t, err)
}

func TestStageFailureOutcomes(t *testing.T) {
	assert.Equal(t, core.OutcomeFatal, stageFailure(core.StageLock, "", nil).Outcome)
	assert.Equal(t, core.OutcomeFatal, stageFailure(core.StageSave, "", nil).Outcome)
	assert.Equal(t, core.OutcomeRecoverable, stageFailure(core.StageFetch, "", nil).Outcome)
	assert.Equal(t, core.OutcomeRecoverable, stageFailure(core.StageNotify, "id", nil).Outcome)
}
