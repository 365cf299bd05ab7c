package domain

// ScoreType declares the shape of the score a prompt asks the judge model
// to produce.
type ScoreType string

// Supported scoring-output types.
const (
	ScoreTypeBoolean    ScoreType = "boolean"
	ScoreTypeInteger    ScoreType = "integer"
	ScoreTypePercentage ScoreType = "percentage"
	ScoreTypeFloat      ScoreType = "float"
)

// String returns the string representation of the score type.
func (t ScoreType) String() string { return string(t) }

// EvaluationPrompt is a reusable scoring rubric bound to a specific LLM
// provider, model, and template. Prompts are read-only snapshots for the
// duration of a job: the orchestrator loads them once at job start and never
// writes them back.
type EvaluationPrompt struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name"`

	// ScoreType declares the expected scoring-output shape.
	ScoreType ScoreType `json:"score_type" validate:"required,oneof=boolean integer percentage float"`

	// Template is the scoring rubric with {{name}} placeholders. It must
	// reference {{transcript}}; templates that do not are auto-repaired by
	// the template engine before rendering.
	Template string `json:"template" validate:"required"`

	// Provider and Model select the judge. Provider matches a gateway
	// provider family identifier ("openai", "google", "groq", or a custom id).
	Provider string `json:"provider" validate:"required"`
	Model    string `json:"model" validate:"required"`

	// APIBase overrides the provider's default base URL. Required for
	// custom providers, optional otherwise.
	APIBase string `json:"api_base,omitempty"`

	// APIKey is the decrypted per-prompt key. Sensitive, never serialized.
	APIKey string `json:"-"`

	// Temperature is the sampling temperature. Nil means unset and lets the
	// gateway apply its default; an explicit zero is preserved, since zero
	// is how deterministic scoring prompts are configured.
	Temperature *float64 `json:"temperature,omitempty" validate:"omitempty,min=0,max=2"`
	MaxTokens   int      `json:"max_tokens" validate:"min=0"`

	// Category is a free-form evaluation category label, e.g. "quality".
	// Results and summaries carry it through for grouping.
	Category string `json:"category"`
}

// Validate checks the prompt against its structural constraints.
func (p *EvaluationPrompt) Validate() error { return validate.Struct(p) }
