package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/opsdesk/reportgen/internal/core/error"
	"github.com/opsdesk/reportgen/internal/report/model"
	"github.com/opsdesk/reportgen/internal/report/repo"
)

var at = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func TestState_RecordOverwritesOnSuccess(t *testing.T) {
	s := NewState(model.IncidentReport)
	assert.Equal(t, "", s.Read())
	assert.Nil(t, s.Snapshot())

	assert.Nil(t, s.Record(model.Success("first"), "incident_report.txt", at))
	assert.Nil(t, s.Record(model.Success("  second\n"), "incident_report.txt", at))

	assert.Equal(t, "second", s.Read())
	assert.Equal(t, "incident_report.txt", s.Filename())
}

func TestState_FailureLeavesStoreUnchanged(t *testing.T) {
	s := NewState(model.IncidentReport)
	require.Nil(t, s.Record(model.Success("kept"), "incident_report.txt", at))
	before := s.Read()

	failure := s.Record(model.Failed(errors.New("network unreachable")), "other.txt", at.Add(time.Hour))
	require.NotNil(t, failure)
	assert.Equal(t, errx.KindGeneration, failure.Kind)
	assert.Equal(t, "network unreachable", failure.Detail)

	assert.Equal(t, before, s.Read())
	assert.Equal(t, "incident_report.txt", s.Filename())
}

func TestState_ClearIsIdempotent(t *testing.T) {
	s := NewState(model.WorkshopPlan)
	require.Nil(t, s.Record(model.Success("plan"), "workshop_plan.txt", at))

	s.Clear()
	assert.Equal(t, "", s.Read())
	s.Clear()
	assert.Equal(t, "", s.Read())
	assert.Equal(t, "", s.Filename())
}

func TestRestore(t *testing.T) {
	stored := &model.StoredResult{Domain: model.IncidentReport, Text: "본문", Filename: "incident_report.txt", GeneratedAt: at}
	s := Restore(model.IncidentReport, stored)
	stored.Text = "mutated"
	assert.Equal(t, "본문", s.Read())

	assert.Equal(t, "", Restore(model.IncidentReport, nil).Read())
	assert.Equal(t, "", Restore(model.IncidentReport, &model.StoredResult{}).Read())
}

func TestManager_SingleInFlight(t *testing.T) {
	m := NewManager(repo.NewMemoryResultRepository(time.Minute))

	_, release, err := m.Begin(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, m.InFlight("s1"))

	_, _, err = m.Begin(context.Background(), "s1")
	assert.Equal(t, errx.KindConflict, errx.KindOf(err))

	_, releaseOther, err := m.Begin(context.Background(), "s2")
	require.NoError(t, err)
	releaseOther()

	release()
	assert.False(t, m.InFlight("s1"))

	_, release, err = m.Begin(context.Background(), "s1")
	require.NoError(t, err)
	release()
}

func TestManager_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	m := NewManager(repo.NewMemoryResultRepository(time.Minute))

	s, err := m.Load(ctx, "s1", model.IncidentReport)
	require.NoError(t, err)
	assert.Equal(t, "", s.Read())

	require.Nil(t, s.Record(model.Success("본문..."), "incident_report.txt", at))
	require.NoError(t, m.Save(ctx, "s1", s))

	loaded, err := m.Load(ctx, "s1", model.IncidentReport)
	require.NoError(t, err)
	assert.Equal(t, "본문...", loaded.Read())

	loaded.Clear()
	require.NoError(t, m.Save(ctx, "s1", loaded))

	loaded, err = m.Load(ctx, "s1", model.IncidentReport)
	require.NoError(t, err)
	assert.Equal(t, "", loaded.Read())
}

func TestManager_EndCancelsInFlightAndDeletes(t *testing.T) {
	ctx := context.Background()
	m := NewManager(repo.NewMemoryResultRepository(time.Minute))

	s := NewState(model.WorkshopPlan)
	require.Nil(t, s.Record(model.Success("plan"), "workshop_plan.txt", at))
	require.NoError(t, m.Save(ctx, "s1", s))

	runCtx, release, err := m.Begin(ctx, "s1")
	require.NoError(t, err)
	go func() {
		<-runCtx.Done()
		release()
	}()

	require.NoError(t, m.End(ctx, "s1"))
	assert.ErrorIs(t, context.Cause(runCtx), ErrSessionEnded)
	assert.False(t, m.InFlight("s1"))

	loaded, err := m.Load(ctx, "s1", model.WorkshopPlan)
	require.NoError(t, err)
	assert.Equal(t, "", loaded.Read())
}

func TestManager_EndDiscardsSaveFromReleasingRun(t *testing.T) {
	ctx := context.Background()
	m := NewManager(repo.NewMemoryResultRepository(time.Minute))

	runCtx, release, err := m.Begin(ctx, "s1")
	require.NoError(t, err)

	ended := make(chan error, 1)
	go func() { ended <- m.End(ctx, "s1") }()

	<-runCtx.Done()
	// A run that passed its cancellation check before End still saves.
	s := NewState(model.IncidentReport)
	require.Nil(t, s.Record(model.Success("late"), "incident_report.txt", at))
	require.NoError(t, m.Save(ctx, "s1", s))

	select {
	case <-ended:
		t.Fatal("End returned before the in-flight run released the session")
	default:
	}

	release()
	select {
	case err := <-ended:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("End did not return after release")
	}

	loaded, err := m.Load(ctx, "s1", model.IncidentReport)
	require.NoError(t, err)
	assert.Equal(t, "", loaded.Read())
}

func TestManager_EndGivesUpWaitingOnContext(t *testing.T) {
	m := NewManager(repo.NewMemoryResultRepository(time.Minute))

	_, release, err := m.Begin(context.Background(), "s1")
	require.NoError(t, err)
	t.Cleanup(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err = m.End(ctx, "s1")
	require.Error(t, err)
	assert.Equal(t, errx.KindTimeout, errx.KindOf(err))

	release()
	release()
	assert.False(t, m.InFlight("s1"))
}
