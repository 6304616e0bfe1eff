// internal/submission/workflow.go
// Submission workflow: verify a draft against the oracle, gate on the
// derived score, persist accepted drafts.
package submission

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"newsproof/internal/verify"
)

var (
	ErrMissingFields = errors.New("all fields are required")
	ErrNotAccepted   = errors.New("draft has not passed verification")
	ErrBusy          = errors.New("another operation is in flight")
)

// State tracks where a submission stands. Only Submitted is terminal; every
// failure state may be retried by the user, never by the system.
type State int

const (
	Idle State = iota
	Verifying
	VerifiedAccepted
	VerifiedRejected
	VerificationFailed
	Submitting
	Submitted
	SubmissionFailed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Verifying:
		return "verifying"
	case VerifiedAccepted:
		return "verified"
	case VerifiedRejected:
		return "rejected"
	case VerificationFailed:
		return "verification_failed"
	case Submitting:
		return "submitting"
	case Submitted:
		return "submitted"
	case SubmissionFailed:
		return "submission_failed"
	default:
		return "unknown"
	}
}

// Draft is an unpersisted, user-authored candidate news item.
type Draft struct {
	Title       string
	Description string
	SourceURL   string
}

// Verifier scores a draft against the external oracle.
type Verifier interface {
	Verify(ctx context.Context, title, description, sourceURL string) (*verify.Result, error)
}

// Recorder persists an accepted draft and returns its generated id.
type Recorder interface {
	CreateNews(ctx context.Context, title, summary string, confidenceScore int) (string, error)
}

// Workflow drives one submission through verification and persistence. It
// models a single interactive session and is not safe for concurrent use.
type Workflow struct {
	verifier Verifier
	store    Recorder
	logger   *log.Logger

	state    State
	draft    Draft
	score    int
	scored   bool
	recordID string
}

func NewWorkflow(verifier Verifier, store Recorder, logger *log.Logger) *Workflow {
	return &Workflow{
		verifier: verifier,
		store:    store,
		logger:   logger,
		state:    Idle,
	}
}

func (w *Workflow) State() State { return w.state }

// Score returns the derived score from the last verification round and
// whether one exists. The score is reported to the user even when the gate
// rejects it.
func (w *Workflow) Score() (int, bool) { return w.score, w.scored }

// RecordID returns the identifier generated for the persisted record; empty
// until the workflow reaches Submitted.
func (w *Workflow) RecordID() string { return w.recordID }

// Verify runs the draft through the oracle and the gate. All three draft
// fields must be non-empty; otherwise the workflow does not advance.
func (w *Workflow) Verify(ctx context.Context, draft Draft) (*verify.Result, error) {
	if w.state == Verifying || w.state == Submitting {
		return nil, ErrBusy
	}
	if strings.TrimSpace(draft.Title) == "" ||
		strings.TrimSpace(draft.Description) == "" ||
		strings.TrimSpace(draft.SourceURL) == "" {
		return nil, ErrMissingFields
	}

	w.draft = draft
	w.scored = false
	w.state = Verifying

	result, err := w.verifier.Verify(ctx, draft.Title, draft.Description, draft.SourceURL)
	if err != nil {
		w.state = VerificationFailed
		return nil, fmt.Errorf("verification failed: %w", err)
	}

	w.score = DeriveScore(result.ConfidenceScore)
	w.scored = true
	if Accept(w.score) {
		w.state = VerifiedAccepted
	} else {
		w.state = VerifiedRejected
	}
	w.logger.Printf("Draft %q scored %d (verified: %v)", draft.Title, w.score, w.state == VerifiedAccepted)
	return result, nil
}

// Submit persists the accepted draft and returns the new record id. Only
// valid after the gate accepted the score; SubmissionFailed may be retried.
func (w *Workflow) Submit(ctx context.Context) (string, error) {
	if w.state != VerifiedAccepted && w.state != SubmissionFailed {
		return "", ErrNotAccepted
	}

	w.state = Submitting
	id, err := w.store.CreateNews(ctx, w.draft.Title, w.draft.Description, w.score)
	if err != nil {
		w.state = SubmissionFailed
		return "", fmt.Errorf("submission failed: %w", err)
	}

	w.recordID = id
	w.state = Submitted
	w.logger.Printf("Draft %q submitted as record %s", w.draft.Title, id)

	// Terminal: the draft is spent, only the record id remains.
	w.draft = Draft{}
	w.score = 0
	w.scored = false
	return id, nil
}
