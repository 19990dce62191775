package session

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"

	errx "github.com/opsdesk/reportgen/internal/core/error"
	"github.com/opsdesk/reportgen/internal/metrics"
	"github.com/opsdesk/reportgen/internal/report/model"
	logx "github.com/opsdesk/reportgen/pkg/logger"
)

// InFlightMessage is returned when a session already has a generation running.
const InFlightMessage = "이미 보고서를 생성하고 있습니다. 완료된 후 다시 시도하세요."

// ErrSessionEnded is the cancellation cause of generations interrupted by End.
var ErrSessionEnded = errors.New("session ended")

// Manager loads and persists session state and enforces at most one
// generation in flight per session.
type Manager struct {
	repo model.ResultRepository

	mu       sync.Mutex
	inFlight map[string]*flight
}

type flight struct {
	cancel context.CancelCauseFunc
	done   chan struct{}
}

func NewManager(repo model.ResultRepository) *Manager {
	return &Manager{repo: repo, inFlight: make(map[string]*flight)}
}

// Begin marks a generation as in flight for sessionID. The returned context is
// cancelled when the session ends; release must be called when the attempt is over.
func (m *Manager) Begin(ctx context.Context, sessionID string) (context.Context, func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, busy := m.inFlight[sessionID]; busy {
		logx.Warn().Str("session_id", sessionID).Msg("Rejected concurrent generation")
		return nil, nil, errx.Conflict(InFlightMessage)
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	f := &flight{cancel: cancel, done: make(chan struct{})}
	m.inFlight[sessionID] = f

	var once sync.Once
	release := func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.inFlight, sessionID)
			m.mu.Unlock()
			cancel(nil)
			close(f.done)
		})
	}
	return runCtx, release, nil
}

// InFlight reports whether sessionID has a generation running.
func (m *Manager) InFlight(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.inFlight[sessionID]
	return ok
}

// Load returns the state of one domain in the session.
func (m *Manager) Load(ctx context.Context, sessionID string, domain model.Domain) (*State, error) {
	stored, err := m.repo.Load(ctx, sessionID, domain)
	if err != nil {
		return nil, err
	}
	return Restore(domain, stored), nil
}

// Save persists s, deleting the stored entry when s is empty.
func (m *Manager) Save(ctx context.Context, sessionID string, s *State) error {
	snap := s.Snapshot()
	if snap == nil {
		return m.repo.Delete(ctx, sessionID, s.Domain())
	}
	return m.repo.Save(ctx, sessionID, snap)
}

// End cancels any in-flight generation, waits for it to release the session,
// then deletes every stored result of the session.
func (m *Manager) End(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	f, busy := m.inFlight[sessionID]
	m.mu.Unlock()

	if busy {
		f.cancel(ErrSessionEnded)
		logx.Info().Str("session_id", sessionID).Msg("Cancelled in-flight generation")

		select {
		case <-f.done:
		case <-ctx.Done():
			return errx.New(errx.KindTimeout, ctx.Err(), http.StatusGatewayTimeout, "세션 종료를 기다리는 중 시간이 초과되었습니다.")
		}
	}

	if err := m.repo.DeleteSession(ctx, sessionID); err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("Failed to delete session results")
		return err
	}
	return nil
}

// NewID issues a fresh session identifier.
func NewID() string {
	metrics.SessionsStarted.Inc()
	return uuid.NewString()
}
