package classify

import (
	"context"
	"time"

	"github.com/paul2999Git/mailapp-sub000/internal/models"
)

// Input is the structured view of a message handed to a scorer. The
// body excerpt is already capped to the owner's configured length, and
// is empty for accounts whose provider disallows exporting bodies.
type Input struct {
	Subject        string
	From           string
	To             []string
	Cc             []string
	Date           *time.Time
	IsReply        bool
	HasAttachments bool
	ProviderLabels []string
	BodyExcerpt    string
}

// ScoreRequest is one scoring call: the message facts, the categories
// to choose between, and optional per-call overrides.
type ScoreRequest struct {
	Input      Input
	Categories []*models.Category

	// PromptOverride replaces the scorer's built-in system prompt.
	PromptOverride string
	// ModelOverride replaces the scorer's configured model.
	ModelOverride string
}

// ScoreResult is a scorer's verdict on one message.
type ScoreResult struct {
	Category         string
	Confidence       float64
	Explanation      string
	Factors          []string
	SuggestedAction  string
	NeedsHumanReview bool

	// ModelID and PromptVersion identify what produced this verdict,
	// recorded in the audit trail.
	ModelID       string
	PromptVersion string
}

// Scorer assigns a category to a message. Implementations are treated
// as opaque, possibly slow, possibly failing external calls; errors
// propagate to the job queue's retry mechanism.
type Scorer interface {
	Score(ctx context.Context, req *ScoreRequest) (*ScoreResult, error)
}
