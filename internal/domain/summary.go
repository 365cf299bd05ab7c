package domain

import "time"

// PassThreshold is the fixed score threshold for the summary pass rate: a
// result passes when its overall score is strictly greater than this value.
// It is applied uniformly regardless of the prompt's declared score type,
// which is a known mismatch for boolean- and percentage-typed prompts.
const PassThreshold = 3.0

// EvaluationSummary holds aggregate statistics over a prompt's completed
// results within one job. Summaries are derived data, fully reproducible
// from EvaluationResult rows, computed once after the job's units finish.
// Prompts with zero completed results produce no summary row.
type EvaluationSummary struct {
	ID       string `json:"id" validate:"required"`
	JobID    string `json:"job_id" validate:"required"`
	PromptID string `json:"prompt_id" validate:"required"`

	// Category is the owning prompt's evaluation category label.
	Category string `json:"category,omitempty"`

	AverageScore float64 `json:"average_score"`
	MinScore     float64 `json:"min_score"`
	MaxScore     float64 `json:"max_score"`

	// Count is the number of completed results aggregated.
	Count int `json:"count" validate:"min=1"`

	// Distribution buckets scores by integer floor, keyed by the bucket's
	// decimal representation (e.g. a score of 4.7 lands in "4").
	Distribution map[string]int `json:"distribution"`

	// PassRate is the fraction of results scoring above PassThreshold.
	PassRate float64 `json:"pass_rate" validate:"min=0,max=1"`

	CreatedAt time.Time `json:"created_at" validate:"required"`
}

// Validate checks the summary against its structural constraints.
func (s *EvaluationSummary) Validate() error { return validate.Struct(s) }
