// Package fault classifies failures of the encounter workflow so callers can
// distinguish recoverable conditions (fall back to manual entry, retry the
// analysis) from fatal ones (persistence lost) without parsing messages.
package fault

import (
	"errors"

	"github.com/rotisserie/eris"
)

// Kind identifies where in the workflow an operation failed.
type Kind string

const (
	// ValidationFailed means the input was rejected before any side effect.
	ValidationFailed Kind = "validation_failed"
	// UploadFailed means the audio blob never reached the upload store.
	UploadFailed Kind = "upload_failed"
	// TranscriptionTimeout means the speech-to-text call lost the race
	// against the configured deadline.
	TranscriptionTimeout Kind = "transcription_timeout"
	// AnalysisFailed means at least one of the two inference calls failed.
	AnalysisFailed Kind = "analysis_failed"
	// PersistFailed means the encounter was not stored; nothing downstream ran.
	PersistFailed Kind = "persist_failed"
	// ArtifactFailed means the encounter is persisted but the document
	// could not be generated; the caller must regenerate it separately.
	ArtifactFailed Kind = "artifact_failed"
)

// Error carries a Kind alongside the underlying cause.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error with a fresh message.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Err: eris.New(msg)}
}

// Wrap classifies an existing error. A nil err yields nil.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: eris.Wrap(err, msg)}
}

// KindOf extracts the Kind from an error chain. The second return is false
// when the chain carries no classification.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return "", false
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
