package core

import (
	"fmt"
	"time"
)

// Stage names a step of the run pipeline.
type Stage string

const (
	StageLock     Stage = "lock"
	StageLoad     Stage = "load"
	StageFetch    Stage = "fetch"
	StageClassify Stage = "classify"
	StageNotify   Stage = "notify"
	StageSave     Stage = "save"
)

// Outcome classifies how a stage ended.
type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeRecoverable Outcome = "recoverable"
	OutcomeFatal       Outcome = "fatal"
)

// StageResult records the outcome of one stage invocation. For the notify
// stage there is one result per delivery attempt, keyed by PostingID.
type StageResult struct {
	Stage     Stage   `json:"stage" yaml:"stage"`
	Outcome   Outcome `json:"outcome" yaml:"outcome"`
	PostingID string  `json:"posting_id,omitempty" yaml:"posting_id,omitempty"`
	Err       error   `json:"-" yaml:"-"`
}

func Success(stage Stage) StageResult {
	return StageResult{Stage: stage, Outcome: OutcomeSuccess}
}

func Recoverable(stage Stage, err error) StageResult {
	return StageResult{Stage: stage, Outcome: OutcomeRecoverable, Err: err}
}

func Fatal(stage Stage, err error) StageResult {
	return StageResult{Stage: stage, Outcome: OutcomeFatal, Err: err}
}

func (r StageResult) Error() string {
	if r.Err == nil {
		return fmt.Sprintf("%s: %s", r.Stage, r.Outcome)
	}
	return fmt.Sprintf("%s: %v", r.Stage, r.Err)
}

// RunStatus represents the current state of a run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Run represents a single fetch-filter-notify-persist cycle
type Run struct {
	ID          string        `json:"id" yaml:"id"`
	StartedAt   time.Time     `json:"started_at" yaml:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Status      RunStatus     `json:"status" yaml:"status"`
	TriggerType string        `json:"trigger_type" yaml:"trigger_type"`
	Fetched     int           `json:"fetched" yaml:"fetched"`
	Relevant    int           `json:"relevant" yaml:"relevant"`
	Notified    []Posting     `json:"notified,omitempty" yaml:"notified,omitempty"`
	Failed      []Posting     `json:"failed,omitempty" yaml:"failed,omitempty"`
	SeenBefore  int           `json:"seen_before" yaml:"seen_before"`
	SeenAfter   int           `json:"seen_after" yaml:"seen_after"`
	Results     []StageResult `json:"results,omitempty" yaml:"results,omitempty"`
}

// Record appends a stage result to the run.
func (r *Run) Record(result StageResult) {
	r.Results = append(r.Results, result)
}

// FatalResult returns the first fatal stage result, if any.
func (r *Run) FatalResult() (StageResult, bool) {
	for _, result := range r.Results {
		if result.Outcome == OutcomeFatal {
			return result, true
		}
	}
	return StageResult{}, false
}

// Pipeline is the parsed, wired form of an alert document: one source, the
// quality gates in evaluation order, and one output.
type Pipeline struct {
	Name    string             `json:"name" yaml:"name"`
	Trigger TriggerProcessor   `json:"-" yaml:"-"`
	Source  SourceProcessor    `json:"-" yaml:"-"`
	Quality []QualityProcessor `json:"-" yaml:"-"`
	Output  OutputProcessor    `json:"-" yaml:"-"`
}
