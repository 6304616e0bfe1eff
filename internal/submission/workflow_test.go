package submission

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"testing"

	"newsproof/internal/verify"
)

type fakeVerifier struct {
	result *verify.Result
	err    error
	calls  int
}

func (f *fakeVerifier) Verify(ctx context.Context, title, description, sourceURL string) (*verify.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeRecorder struct {
	err   error
	calls int
	last  struct {
		title   string
		summary string
		score   int
	}
}

func (f *fakeRecorder) CreateNews(ctx context.Context, title, summary string, confidenceScore int) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	f.last.title = title
	f.last.summary = summary
	f.last.score = confidenceScore
	return fmt.Sprintf("record-%d", f.calls), nil
}

func testLogger() *log.Logger {
	return log.New(os.Stdout, "workflow-test: ", log.LstdFlags)
}

func testDraft() Draft {
	return Draft{Title: "Title A", Description: "Desc A", SourceURL: "https://x.test/a"}
}

func TestWorkflow_AcceptedAndSubmitted(t *testing.T) {
	// Scenario: oracle returns 0.82, gate accepts, submission persists.
	verifier := &fakeVerifier{result: &verify.Result{ConfidenceScore: 0.82, IsVerified: true}}
	store := &fakeRecorder{}
	w := NewWorkflow(verifier, store, testLogger())

	result, err := w.Verify(context.Background(), testDraft())
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if result.ConfidenceScore != 0.82 {
		t.Errorf("Result.ConfidenceScore = %v, want 0.82", result.ConfidenceScore)
	}
	if w.State() != VerifiedAccepted {
		t.Fatalf("State = %v, want VerifiedAccepted", w.State())
	}
	score, ok := w.Score()
	if !ok || score != 82 {
		t.Errorf("Score() = %d, %v; want 82, true", score, ok)
	}

	id, err := w.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if id == "" || w.RecordID() != id {
		t.Errorf("Submit() id = %q, RecordID() = %q", id, w.RecordID())
	}
	if w.State() != Submitted {
		t.Errorf("State = %v, want Submitted", w.State())
	}
	if store.last.title != "Title A" || store.last.summary != "Desc A" || store.last.score != 82 {
		t.Errorf("Persisted %+v, want Title A/Desc A/82", store.last)
	}

	// Terminal: the draft is cleared.
	if _, ok := w.Score(); ok {
		t.Error("Score() still set after Submitted")
	}
}

func TestWorkflow_Rejected(t *testing.T) {
	// Scenario: oracle returns 0.4, gate rejects, no persistence call.
	verifier := &fakeVerifier{result: &verify.Result{ConfidenceScore: 0.4}}
	store := &fakeRecorder{}
	w := NewWorkflow(verifier, store, testLogger())

	if _, err := w.Verify(context.Background(), testDraft()); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if w.State() != VerifiedRejected {
		t.Fatalf("State = %v, want VerifiedRejected", w.State())
	}
	// The score is still reported to the user.
	if score, ok := w.Score(); !ok || score != 40 {
		t.Errorf("Score() = %d, %v; want 40, true", score, ok)
	}

	if _, err := w.Submit(context.Background()); !errors.Is(err, ErrNotAccepted) {
		t.Errorf("Submit() after rejection: error = %v, want ErrNotAccepted", err)
	}
	if store.calls != 0 {
		t.Errorf("Recorder called %d times after rejection, want 0", store.calls)
	}
}

func TestWorkflow_VerificationFailed(t *testing.T) {
	// Scenario: oracle unreachable; workflow reports failure and stays
	// retry-eligible.
	verifier := &fakeVerifier{err: verify.ErrUnavailable}
	store := &fakeRecorder{}
	w := NewWorkflow(verifier, store, testLogger())

	_, err := w.Verify(context.Background(), testDraft())
	if err == nil {
		t.Fatal("Verify() error = nil, want failure")
	}
	if w.State() != VerificationFailed {
		t.Fatalf("State = %v, want VerificationFailed", w.State())
	}
	if _, ok := w.Score(); ok {
		t.Error("Score() set after failed verification")
	}

	// Retry succeeds.
	verifier.err = nil
	verifier.result = &verify.Result{ConfidenceScore: 0.9}
	if _, err := w.Verify(context.Background(), testDraft()); err != nil {
		t.Fatalf("Verify() retry error = %v", err)
	}
	if w.State() != VerifiedAccepted {
		t.Errorf("State after retry = %v, want VerifiedAccepted", w.State())
	}
}

func TestWorkflow_MissingFields(t *testing.T) {
	verifier := &fakeVerifier{result: &verify.Result{ConfidenceScore: 0.9}}
	w := NewWorkflow(verifier, &fakeRecorder{}, testLogger())

	drafts := []Draft{
		{},
		{Title: "t"},
		{Title: "t", Description: "d"},
		{Title: "  ", Description: "d", SourceURL: "u"},
	}
	for _, d := range drafts {
		if _, err := w.Verify(context.Background(), d); !errors.Is(err, ErrMissingFields) {
			t.Errorf("Verify(%+v) error = %v, want ErrMissingFields", d, err)
		}
		if w.State() != Idle {
			t.Errorf("State after invalid draft = %v, want Idle", w.State())
		}
	}
	if verifier.calls != 0 {
		t.Errorf("Verifier called %d times for invalid drafts, want 0", verifier.calls)
	}
}

func TestWorkflow_SubmitBeforeVerify(t *testing.T) {
	w := NewWorkflow(&fakeVerifier{}, &fakeRecorder{}, testLogger())
	if _, err := w.Submit(context.Background()); !errors.Is(err, ErrNotAccepted) {
		t.Errorf("Submit() from Idle: error = %v, want ErrNotAccepted", err)
	}
}

func TestWorkflow_SubmissionFailedRetry(t *testing.T) {
	verifier := &fakeVerifier{result: &verify.Result{ConfidenceScore: 0.75}}
	store := &fakeRecorder{err: errors.New("disk full")}
	w := NewWorkflow(verifier, store, testLogger())

	if _, err := w.Verify(context.Background(), testDraft()); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if _, err := w.Submit(context.Background()); err == nil {
		t.Fatal("Submit() error = nil, want datastore failure")
	}
	if w.State() != SubmissionFailed {
		t.Fatalf("State = %v, want SubmissionFailed", w.State())
	}

	// The user may retry; the draft and score survive the failure.
	store.err = nil
	id, err := w.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit() retry error = %v", err)
	}
	if id == "" {
		t.Error("Submit() retry returned empty id")
	}
	if store.last.score != 75 {
		t.Errorf("Persisted score = %d, want 75", store.last.score)
	}
}
