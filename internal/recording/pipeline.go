package recording

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"diagnosis-decoder/internal/fault"
	"diagnosis-decoder/internal/transcript"
)

// Result is the outcome of a successful transcription attempt.
type Result struct {
	Transcript string
	// NoTranscript means the speech-to-text backend answered with its stub
	// sentinel: there is no real model configured. The caller proceeds with
	// an empty transcript; this is not a failure.
	NoTranscript bool
}

// Pipeline drives upload → transcription with a bounded wait. Any failure
// is classified so the caller can route the clinician to manual entry.
type Pipeline struct {
	store   *Store
	stt     STTClient
	timeout time.Duration
}

// NewPipeline creates the recording pipeline. timeout bounds the
// transcription wait.
func NewPipeline(store *Store, stt STTClient, timeout time.Duration) *Pipeline {
	return &Pipeline{store: store, stt: stt, timeout: timeout}
}

// Upload stores an audio blob and returns its handle.
func (p *Pipeline) Upload(data []byte, ext string) (string, error) {
	handle, err := p.store.Save(data, ext)
	if err != nil {
		return "", fault.Wrap(fault.UploadFailed, err, "recording: store upload")
	}
	return handle, nil
}

// Transcribe requests transcription for a previously uploaded blob, racing
// the call against the pipeline timeout. The handle is consumed whatever
// the outcome of a completed call; a timed-out request may still finish
// server-side, and its result is discarded on arrival.
func (p *Pipeline) Transcribe(ctx context.Context, handle string) (Result, error) {
	path, ok := p.store.Resolve(handle)
	if !ok {
		return Result{}, fault.New(fault.UploadFailed, "recording: upload not found or expired")
	}

	audio, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fault.Wrap(fault.UploadFailed, err, "recording: read upload")
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.stt.Transcribe(ctx, audio)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			zap.L().Warn("transcription timed out",
				zap.String("upload_id", handle),
				zap.Duration("timeout", p.timeout))
			return Result{}, fault.Wrap(fault.TranscriptionTimeout, err, "recording: transcription timed out")
		}
		return Result{}, eris.Wrap(err, "recording: transcription failed")
	}

	p.store.Consume(handle)

	// The backend marks its sentinel with is_stub, but older versions only
	// send the literal sentinel text.
	if resp.IsStub || strings.Contains(resp.Transcript, transcript.StubSentinel) {
		zap.L().Info("speech-to-text backend is stubbed; proceeding without transcript",
			zap.String("upload_id", handle))
		return Result{NoTranscript: true}, nil
	}

	return Result{Transcript: transcript.PlaceholderIfEmpty(transcript.Normalize(resp.Transcript))}, nil
}
