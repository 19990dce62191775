package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/opsdesk/reportgen/internal/core/error"
	"github.com/opsdesk/reportgen/internal/report/model"
	"github.com/opsdesk/reportgen/internal/report/pipeline/nodes"
	"github.com/opsdesk/reportgen/internal/report/pipeline/session"
	"github.com/opsdesk/reportgen/internal/report/repo"
)

// fakeClient records every prompt it receives and answers from fn.
type fakeClient struct {
	mu    sync.Mutex
	calls int
	last  model.PromptPair
	fn    func(ctx context.Context, pair model.PromptPair) (string, error)
}

func (f *fakeClient) Generate(ctx context.Context, pair model.PromptPair) (string, error) {
	f.mu.Lock()
	f.calls++
	f.last = pair
	fn := f.fn
	f.mu.Unlock()
	return fn(ctx, pair)
}

func (f *fakeClient) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeClient) Last() model.PromptPair {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func respond(text string) *fakeClient {
	return &fakeClient{fn: func(context.Context, model.PromptPair) (string, error) { return text, nil }}
}

func fail(err error) *fakeClient {
	return &fakeClient{fn: func(context.Context, model.PromptPair) (string, error) { return "", err }}
}

// blocking answers only once its context is done.
func blocking() *fakeClient {
	return &fakeClient{fn: func(ctx context.Context, _ model.PromptPair) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
}

var fixedNow = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func newRunner(t *testing.T, client *fakeClient, timeout time.Duration) *Runner {
	t.Helper()
	r, err := Build(context.Background(), Config{
		Client:   client,
		Sessions: session.NewManager(repo.NewMemoryResultRepository(time.Minute)),
		Timeout:  timeout,
		Now:      func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return r
}

func incidentSubmission() model.Submission {
	return model.Submission{
		Domain: model.IncidentReport,
		Fields: map[string]string{
			"incident_type": "추돌",
			"direction":     "천안 → 논산",
			"location":      "",
			"time":          "",
			"damage":        "",
			"notes":         "",
		},
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y += 10 {
		for x := 0; x < w; x += 10 {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestBuild_RequiresDependencies(t *testing.T) {
	_, err := Build(context.Background(), Config{Sessions: session.NewManager(repo.NewMemoryResultRepository(0))})
	assert.Error(t, err)

	_, err = Build(context.Background(), Config{Client: respond("x")})
	assert.Error(t, err)
}

func TestGenerate_IncidentScenario(t *testing.T) {
	ctx := context.Background()
	client := respond("본문...")
	r := newRunner(t, client, time.Second)

	res, err := r.Generate(ctx, "s1", incidentSubmission())
	require.NoError(t, err)
	require.True(t, res.OK())
	assert.Equal(t, "본문...", res.Text)

	facts := client.Last().Text()
	assert.Contains(t, facts, "- 위치: 미상\n")
	assert.Contains(t, facts, "- 발생 시각: 미상\n")
	assert.Contains(t, facts, "- 피해 정도(인명/차량/시설): 미상\n")
	assert.Contains(t, facts, "- 특이사항: 미상\n")
	assert.False(t, client.Last().HasImage())

	text, err := r.Read(ctx, "s1", model.IncidentReport)
	require.NoError(t, err)
	assert.Equal(t, "본문...", text)

	artifact, err := r.Export(ctx, "s1", model.IncidentReport)
	require.NoError(t, err)
	assert.Equal(t, "incident_report.txt", artifact.Filename)
	assert.Equal(t, []byte("본문..."), artifact.Data)
}

func TestGenerate_FacilityWithoutImage(t *testing.T) {
	ctx := context.Background()
	client := respond("unused")
	r := newRunner(t, client, time.Second)

	res, err := r.Generate(ctx, "s1", model.Submission{
		Domain: model.FacilityInspection,
		Fields: map[string]string{"facility_type": "방음벽"},
	})
	require.Error(t, err)
	assert.Equal(t, errx.KindValidation, errx.KindOf(err))
	assert.Equal(t, model.GenerationResult{}, res)
	assert.Zero(t, client.Calls())

	text, err := r.Read(ctx, "s1", model.FacilityInspection)
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestGenerate_FacilityWithImage(t *testing.T) {
	ctx := context.Background()
	client := respond("[1. 점검 개요]\n방음벽 점검 결과")
	r := newRunner(t, client, time.Second)

	res, err := r.Generate(ctx, "s1", model.Submission{
		Domain: model.FacilityInspection,
		Fields: map[string]string{"facility_type": "방음벽", "location": "논산 방향 12.4km"},
		Image:  pngBytes(t, 2000, 1000),
	})
	require.NoError(t, err)
	require.True(t, res.OK())

	imgs := client.Last().Images()
	require.Len(t, imgs, 1)
	assert.Equal(t, "image/jpeg", imgs[0].MIMEType)
	assert.Equal(t, 1280, imgs[0].Width)
	assert.Equal(t, 640, imgs[0].Height)

	artifact, err := r.Export(ctx, "s1", model.FacilityInspection)
	require.NoError(t, err)
	assert.Equal(t, "facility_inspection_report.txt", artifact.Filename)
}

func TestGenerate_MalformedImage(t *testing.T) {
	client := respond("unused")
	r := newRunner(t, client, time.Second)

	_, err := r.Generate(context.Background(), "s1", model.Submission{
		Domain: model.FacilityInspection,
		Image:  []byte("definitely not an image"),
	})
	assert.Equal(t, errx.KindImageDecode, errx.KindOf(err))
	assert.Zero(t, client.Calls())
}

func TestGenerate_WorkshopPurposeRequired(t *testing.T) {
	client := respond("unused")
	r := newRunner(t, client, time.Second)

	_, err := r.Generate(context.Background(), "s1", model.Submission{
		Domain: model.WorkshopPlan,
		Fields: map[string]string{"purpose": "   "},
	})
	assert.Equal(t, errx.KindValidation, errx.KindOf(err))
	assert.Zero(t, client.Calls())
}

func TestGenerate_UnknownDomain(t *testing.T) {
	client := respond("unused")
	r := newRunner(t, client, time.Second)

	_, err := r.Generate(context.Background(), "s1", model.Submission{Domain: model.Domain("payroll")})
	assert.Equal(t, errx.KindValidation, errx.KindOf(err))
	assert.Zero(t, client.Calls())
}

func TestGenerate_FailureLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	client := respond("첫 번째 보고서")
	r := newRunner(t, client, time.Second)

	_, err := r.Generate(ctx, "s1", incidentSubmission())
	require.NoError(t, err)
	before, err := r.Read(ctx, "s1", model.IncidentReport)
	require.NoError(t, err)

	cause := errors.New("googleapi: Error 403: API key expired")
	client.fn = fail(cause).fn

	res, err := r.Generate(ctx, "s1", incidentSubmission())
	require.NoError(t, err)
	require.False(t, res.OK())
	assert.Equal(t, errx.KindGeneration, res.Failure.Kind)
	assert.Equal(t, errx.GenerationErrorMessage, res.Failure.Message)
	assert.Contains(t, res.Failure.Detail, "API key expired")
	assert.Equal(t, 2, client.Calls())

	after, err := r.Read(ctx, "s1", model.IncidentReport)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestGenerate_Timeout(t *testing.T) {
	ctx := context.Background()
	client := blocking()
	r := newRunner(t, client, 20*time.Millisecond)

	res, err := r.Generate(ctx, "s1", incidentSubmission())
	require.NoError(t, err)
	require.False(t, res.OK())
	assert.Equal(t, errx.KindTimeout, res.Failure.Kind)
	assert.Equal(t, 1, client.Calls())

	text, err := r.Read(ctx, "s1", model.IncidentReport)
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestGenerate_SingleInFlightAndEndSession(t *testing.T) {
	ctx := context.Background()
	client := blocking()
	r := newRunner(t, client, 0)

	done := make(chan model.GenerationResult, 1)
	go func() {
		res, err := r.Generate(ctx, "s1", incidentSubmission())
		assert.NoError(t, err)
		done <- res
	}()

	require.Eventually(t, func() bool { return client.Calls() == 1 }, time.Second, 5*time.Millisecond)

	_, err := r.Generate(ctx, "s1", incidentSubmission())
	assert.Equal(t, errx.KindConflict, errx.KindOf(err))
	assert.Equal(t, errx.KindConflict, errx.KindOf(r.Clear(ctx, "s1", model.IncidentReport)))

	require.NoError(t, r.EndSession(ctx, "s1"))

	select {
	case res := <-done:
		require.False(t, res.OK())
		assert.Equal(t, errx.KindGeneration, res.Failure.Kind)
		assert.Equal(t, nodes.SessionEndedMessage, res.Failure.Message)
	case <-time.After(time.Second):
		t.Fatal("generation was not cancelled when the session ended")
	}
	assert.Equal(t, 1, client.Calls())

	text, err := r.Read(ctx, "s1", model.IncidentReport)
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestClear_Idempotent(t *testing.T) {
	ctx := context.Background()
	r := newRunner(t, respond("본문"), time.Second)

	_, err := r.Generate(ctx, "s1", incidentSubmission())
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		require.NoError(t, r.Clear(ctx, "s1", model.IncidentReport))
		text, err := r.Read(ctx, "s1", model.IncidentReport)
		require.NoError(t, err)
		assert.Equal(t, "", text)
	}

	_, err = r.Export(ctx, "s1", model.IncidentReport)
	assert.Equal(t, errx.KindNotFound, errx.KindOf(err))
}

func TestGenerate_SessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	r := newRunner(t, respond("s1 text"), time.Second)

	_, err := r.Generate(ctx, "s1", incidentSubmission())
	require.NoError(t, err)

	text, err := r.Read(ctx, "s2", model.IncidentReport)
	require.NoError(t, err)
	assert.Equal(t, "", text)

	text, err = r.Read(ctx, "s1", model.WorkshopPlan)
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestExport_OperationalSummaryPeriod(t *testing.T) {
	ctx := context.Background()
	r := newRunner(t, respond("요약"), time.Second)

	_, err := r.Generate(ctx, "s1", model.Submission{
		Domain: model.OperationalSummary,
		Fields: map[string]string{"period": "2026년 1분기"},
	})
	require.NoError(t, err)

	artifact, err := r.Export(ctx, "s1", model.OperationalSummary)
	require.NoError(t, err)
	assert.Equal(t, "operational_summary_2026년_1분기.txt", artifact.Filename)
}
