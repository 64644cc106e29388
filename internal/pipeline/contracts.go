package pipeline

import "context"

// Pipeline processes a batch one item at a time. Per-item failures are
// recorded by the Runner and never abort the batch.
type Pipeline interface {
	Name() string
	Gather(ctx context.Context) ([]Item, error)
	Prompt(ctx context.Context, item Item) (LLMRequest, error)
	Verify(ctx context.Context, item Item, response LLMResponse) (accepted bool, verified VerifiedOutput, refine *RefineRequest, err error)
	Apply(ctx context.Context, item Item, verified VerifiedOutput) (Action, error)
}

type Item any
type VerifiedOutput any

type LLMRequest struct {
	Model         string
	Prompt        string
	Images        [][]byte
	ImageMIMEType string
	MaxTokens     int
	Temperature   float64
}

type LLMResponse struct {
	RawText string
}

// RefineRequest asks the Runner to retry the item with an extra instruction.
// Err is the failure recorded when attempts are exhausted.
type RefineRequest struct {
	UserPromptDelta string
	Reason          string
	Err             error
}

// Action describes what Apply did for one item.
type Action struct {
	From    string
	To      string
	Applied bool
	DryRun  bool
	Skipped bool
	Reason  string
}

// ItemResult pairs an item with its action or its error.
type ItemResult struct {
	Item   Item
	Action Action
	Err    error
}

type Report struct {
	Name     string
	Results  []ItemResult
	Renamed  int
	Planned  int
	Skipped  int
	Failed   int
	DryRun   bool
	Canceled bool
}
