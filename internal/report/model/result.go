package model

import (
	"errors"
	"strings"
	"time"

	errx "github.com/opsdesk/reportgen/internal/core/error"
)

// Failure describes a generation attempt that produced no document.
type Failure struct {
	Kind    errx.Kind `json:"kind"`
	Message string    `json:"message"`
	// Detail is the underlying diagnostic, preserved verbatim.
	Detail string `json:"detail,omitempty"`
	Status int    `json:"-"`
}

// GenerationResult is the outcome of one call to the generation service:
// either Text (Failure == nil) or Failure.
type GenerationResult struct {
	Text    string   `json:"text,omitempty"`
	Failure *Failure `json:"failure,omitempty"`
}

// Success builds a successful result, trimming surrounding whitespace only.
func Success(text string) GenerationResult {
	return GenerationResult{Text: strings.TrimSpace(text)}
}

// Failed builds a failed result from err. AppErrors keep their kind and safe
// message; anything else is reported as a generation failure.
func Failed(err error) GenerationResult {
	if err == nil {
		err = errors.New("unknown error")
	}
	appErr, ok := errx.From(err)
	if !ok {
		appErr = errx.Generation(err)
	}
	detail := appErr.Detail()
	if detail == "" {
		detail = err.Error()
	}
	return GenerationResult{Failure: &Failure{
		Kind:    appErr.Kind,
		Message: appErr.Message,
		Detail:  detail,
		Status:  appErr.Status,
	}}
}

// OK reports whether the result carries a document.
func (r GenerationResult) OK() bool {
	return r.Failure == nil
}

// StoredResult is the last successful document of one domain in one session.
type StoredResult struct {
	Domain      Domain    `json:"domain"`
	Text        string    `json:"text"`
	Filename    string    `json:"filename"`
	GeneratedAt time.Time `json:"generated_at"`
}
