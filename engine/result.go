package engine

import (
	"errors"

	"github.com/cppla/fitquest/models"
)

// SkipReason explains why a participation was left untouched.
type SkipReason string

const (
	SkipChallengeMissing     SkipReason = "challenge_missing"
	SkipParticipationMissing SkipReason = "participation_missing"
	SkipAlreadyCompleted     SkipReason = "already_completed"
	SkipUnchanged            SkipReason = "unchanged"
	SkipConflict             SkipReason = "conflict"
	SkipStoreError           SkipReason = "store_error"
)

// benign reasons are expected outcomes and do not make a result partial.
func (r SkipReason) benign() bool {
	return r == SkipAlreadyCompleted || r == SkipUnchanged
}

// Outcome is one participation whose progress was written.
type Outcome struct {
	ChallengeID   uint   `json:"challenge_id"`
	ChallengeName string `json:"challenge_name"`
	Previous      int    `json:"previous"`
	Progress      int    `json:"progress"`
	Level         int    `json:"level"`
	Completed     bool   `json:"completed"`
	JustCompleted bool   `json:"just_completed"`
}

// Skip is one participation that was not written.
type Skip struct {
	ChallengeID uint       `json:"challenge_id"`
	Reason      SkipReason `json:"reason"`
	Message     string     `json:"message,omitempty"`
	Err         error      `json:"-"`
}

// Result is the per-entry report of applying one event or absolute update.
type Result struct {
	UserID     uint                 `json:"user_id"`
	Type       models.ChallengeType `json:"type"`
	Updated    []Outcome            `json:"updated"`
	Skipped    []Skip               `json:"skipped,omitempty"`
	FeedErrors []*FeedError         `json:"-"`
}

// Completed returns the outcomes that crossed their completion threshold.
func (r *Result) Completed() []Outcome {
	var out []Outcome
	for _, o := range r.Updated {
		if o.JustCompleted {
			out = append(out, o)
		}
	}
	return out
}

// Partial reports whether some entry failed or some announcement was lost.
func (r *Result) Partial() bool {
	if len(r.FeedErrors) > 0 {
		return true
	}
	for _, s := range r.Skipped {
		if !s.Reason.benign() {
			return true
		}
	}
	return false
}

// Err joins the transient failures a caller may want to retry: exhausted
// conflicts and store errors. Missing rows and feed failures are not included.
func (r *Result) Err() error {
	var errs []error
	for _, s := range r.Skipped {
		if s.Reason == SkipConflict || s.Reason == SkipStoreError {
			errs = append(errs, s.Err)
		}
	}
	return errors.Join(errs...)
}

// Warnings renders feed failures for API responses.
func (r *Result) Warnings() []string {
	out := make([]string, 0, len(r.FeedErrors))
	for _, fe := range r.FeedErrors {
		out = append(out, fe.Error())
	}
	return out
}

// Merge appends other into r. Used when one request emits several events.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	r.Updated = append(r.Updated, other.Updated...)
	r.Skipped = append(r.Skipped, other.Skipped...)
	r.FeedErrors = append(r.FeedErrors, other.FeedErrors...)
}
