// Package intake defines the outcome variants of the booking intake workflow.
//
// The workflow reconciles "did the client already start this?" against "is the
// client allowed to do this yet?" and produces exactly one outcome. Outcomes
// are a closed set of variants consumed by type switch; expected control-flow
// branches are never modeled as errors.
package intake

import "errors"

// ErrSparkNotFound indicates the requested slug does not resolve to a catalog
// entry. Terminal and user-visible; callers redirect to a safe default rather
// than retry.
var ErrSparkNotFound = errors.New("spark not found")

// ErrNoSparkRemembered indicates post-signup resumption ran without a
// remembered booking intent for the session.
var ErrNoSparkRemembered = errors.New("no spark remembered for session")

// Outcome is the closed set of intake results.
type Outcome interface {
	isOutcome()
}

// RequiresSignUp directs an anonymous visitor into the account-creation
// funnel. The spark slug is remembered so the booking resumes after sign-up.
type RequiresSignUp struct {
	SparkSlug string `json:"spark_slug"`
}

// ResumeExisting redirects to an in-flight request the client already opened
// for this spark. No write is performed.
type ResumeExisting struct {
	RequestID string `json:"request_id"`
}

// Created reports that a new pending request was opened.
type Created struct {
	RequestID string `json:"request_id"`
}

func (RequiresSignUp) isOutcome() {}
func (ResumeExisting) isOutcome() {}
func (Created) isOutcome()        {}
