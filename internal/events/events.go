// Package events describes the notifications emitted after a submission is
// stored.
package events

import (
	"context"
	"time"

	"github.com/vbonduro/mahrfyi/internal/domain"
)

const TypeSubmissionCreated = "submission.created"

// SubmissionCreated is the public payload of a stored submission. Free-text
// fields (story, description) are never published.
type SubmissionCreated struct {
	EventType    string    `json:"event_type"`
	ID           string    `json:"id"`
	AssetType    string    `json:"asset_type"`
	Amount       string    `json:"amount,omitempty"`
	Currency     string    `json:"currency,omitempty"`
	Location     string    `json:"location"`
	CountryCode  string    `json:"country_code,omitempty"`
	Region       string    `json:"region,omitempty"`
	MarriageYear *int      `json:"marriage_year,omitempty"`
	Negotiated   bool      `json:"negotiated"`
	CreatedAt    time.Time `json:"created_at"`
}

func NewSubmissionCreated(sub *domain.Submission) SubmissionCreated {
	ev := SubmissionCreated{
		EventType:    TypeSubmissionCreated,
		ID:           sub.ID.String(),
		AssetType:    string(sub.AssetType),
		Location:     sub.Location,
		CountryCode:  sub.CountryCode,
		Region:       sub.Region,
		MarriageYear: sub.MarriageYear,
		Negotiated:   sub.Negotiated,
		CreatedAt:    sub.CreatedAt.UTC(),
	}
	if v, ok := sub.Value(); ok {
		ev.Amount = v.String()
		ev.Currency = sub.Currency()
	}
	return ev
}

// Publisher delivers submission events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	PublishSubmission(ctx context.Context, ev SubmissionCreated) error
}

// Nop discards every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) PublishSubmission(context.Context, SubmissionCreated) error { return nil }
