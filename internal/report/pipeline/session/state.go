// Package session owns the per-session result state and the single
// in-flight generation guard.
package session

import (
	"time"

	"github.com/opsdesk/reportgen/internal/report/model"
)

// State is the result store of one domain within one session. The zero value
// is an empty store.
type State struct {
	domain model.Domain
	stored *model.StoredResult
}

func NewState(domain model.Domain) *State {
	return &State{domain: domain}
}

// Restore rebuilds a State from a persisted result. A nil result yields an empty store.
func Restore(domain model.Domain, stored *model.StoredResult) *State {
	s := NewState(domain)
	if stored != nil && stored.Text != "" {
		cp := *stored
		s.stored = &cp
	}
	return s
}

// Record overwrites the stored text on success and leaves it untouched on
// failure. The failure, if any, is returned for the caller to surface.
func (s *State) Record(res model.GenerationResult, filename string, at time.Time) *model.Failure {
	if !res.OK() {
		return res.Failure
	}
	s.stored = &model.StoredResult{
		Domain:      s.domain,
		Text:        res.Text,
		Filename:    filename,
		GeneratedAt: at,
	}
	return nil
}

// Clear resets the stored text to empty.
func (s *State) Clear() {
	s.stored = nil
}

// Read returns the stored text, or "" when nothing is stored.
func (s *State) Read() string {
	if s.stored == nil {
		return ""
	}
	return s.stored.Text
}

// Filename returns the export name of the stored text.
func (s *State) Filename() string {
	if s.stored == nil {
		return ""
	}
	return s.stored.Filename
}

// Snapshot returns a copy of the stored result, or nil when empty.
func (s *State) Snapshot() *model.StoredResult {
	if s.stored == nil {
		return nil
	}
	cp := *s.stored
	return &cp
}

func (s *State) Domain() model.Domain {
	return s.domain
}
