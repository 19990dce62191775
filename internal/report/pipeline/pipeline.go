// Package pipeline runs one report generation end to end: collect, compose,
// generate, then record into the session's result store.
package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cloudwego/eino/compose"

	errx "github.com/opsdesk/reportgen/internal/core/error"
	"github.com/opsdesk/reportgen/internal/metrics"
	"github.com/opsdesk/reportgen/internal/report/domains"
	"github.com/opsdesk/reportgen/internal/report/model"
	"github.com/opsdesk/reportgen/internal/report/pipeline/export"
	"github.com/opsdesk/reportgen/internal/report/pipeline/generation"
	"github.com/opsdesk/reportgen/internal/report/pipeline/nodes"
	"github.com/opsdesk/reportgen/internal/report/pipeline/observers"
	"github.com/opsdesk/reportgen/internal/report/pipeline/session"
	logx "github.com/opsdesk/reportgen/pkg/logger"
)

// Config holds everything needed to build the report graph and its runner.
type Config struct {
	Client   generation.Client
	Sessions *session.Manager
	// Timeout bounds one generation call. Zero disables the deadline.
	Timeout time.Duration
	// Now stamps stored results; defaults to time.Now.
	Now func() time.Time
}

// Runner executes the compiled report graph against per-session state.
type Runner struct {
	runnable compose.Runnable[model.Submission, model.Draft]
	sessions *session.Manager
	timeout  time.Duration
	now      func() time.Time
}

// GraphBuilder handles the construction of the report graph.
type GraphBuilder struct {
	client generation.Client
	graph  *compose.Graph[model.Submission, model.Draft]
}

// Build composes the report graph and returns a Runner.
func Build(ctx context.Context, cfg Config) (*Runner, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("generation client is nil")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session manager is nil")
	}

	b := &GraphBuilder{
		client: cfg.Client,
		graph: compose.NewGraph[model.Submission, model.Draft](
			compose.WithGenLocalState(func(ctx context.Context) *model.RunState {
				return &model.RunState{}
			}),
		),
	}
	if err := b.addNodes(); err != nil {
		return nil, err
	}
	if err := b.addEdges(); err != nil {
		return nil, err
	}
	runnable, err := b.compile(ctx)
	if err != nil {
		return nil, err
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Runner{runnable: runnable, sessions: cfg.Sessions, timeout: cfg.Timeout, now: now}, nil
}

// addNodes adds all processing nodes to the graph.
func (b *GraphBuilder) addNodes() error {
	steps := []struct {
		name string
		add  func() error
	}{
		{nodes.NodeCollector, func() error {
			return b.graph.AddLambdaNode(nodes.NodeCollector, nodes.NewCollectorNode(),
				compose.WithStatePreHandler(nodes.NewCollectorPreHandler()),
				compose.WithStatePostHandler(nodes.NewCollectorPostHandler()),
			)
		}},
		{nodes.NodeComposer, func() error {
			return b.graph.AddLambdaNode(nodes.NodeComposer, nodes.NewComposerNode())
		}},
		{nodes.NodeGenerator, func() error {
			return b.graph.AddLambdaNode(nodes.NodeGenerator, nodes.NewGeneratorNode(b.client))
		}},
		{nodes.NodeAssembler, func() error {
			return b.graph.AddLambdaNode(nodes.NodeAssembler, nodes.NewAssemblerNode())
		}},
	}
	for _, step := range steps {
		if err := step.add(); err != nil {
			logx.Error().Err(err).Str("node", step.name).Msg("Error adding node")
			return fmt.Errorf("error adding node %s: %w", step.name, err)
		}
	}
	return nil
}

// addEdges creates the linear flow connections between nodes.
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeCollector},
		{nodes.NodeCollector, nodes.NodeComposer},
		{nodes.NodeComposer, nodes.NodeGenerator},
		{nodes.NodeGenerator, nodes.NodeAssembler},
		{nodes.NodeAssembler, compose.END},
	}
	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			logx.Error().Err(err).Str("from", edge[0]).Str("to", edge[1]).Msg("Error adding edge")
			return fmt.Errorf("error adding edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// compile finalizes and compiles the graph.
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.Submission, model.Draft], error) {
	runnable, err := b.graph.Compile(ctx, compose.WithGraphName("report"))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}
	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}

func descriptor(d model.Domain) (model.Descriptor, error) {
	desc, ok := domains.Lookup(d)
	if !ok {
		return model.Descriptor{}, errx.Validation(fmt.Sprintf("지원하지 않는 보고서 유형입니다: %s", d))
	}
	return desc, nil
}

// Generate runs one generation attempt for the session.
//
// Validation and image decode errors are returned as errors and the store is
// not touched. Generation failures and timeouts are returned as a failed
// result with the previously stored text left intact. On success the stored
// text is overwritten and persisted.
func (r *Runner) Generate(ctx context.Context, sessionID string, sub model.Submission) (model.GenerationResult, error) {
	desc, err := descriptor(sub.Domain)
	if err != nil {
		return model.GenerationResult{}, err
	}
	sub.SessionID = sessionID

	runCtx, release, err := r.sessions.Begin(ctx, sessionID)
	if err != nil {
		return model.GenerationResult{}, err
	}
	defer release()

	state, err := r.sessions.Load(runCtx, sessionID, desc.Domain)
	if err != nil {
		return model.GenerationResult{}, err
	}

	callCtx := runCtx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(runCtx, r.timeout)
		defer cancel()
	}

	domain := desc.Domain.String()
	start := time.Now()
	draft, err := r.runnable.Invoke(callCtx, sub, compose.WithCallbacks(observers.NewAllCallbacks()))
	elapsed := time.Since(start)

	if err == nil && runCtx.Err() != nil {
		err = errx.New(errx.KindGeneration, context.Cause(runCtx), http.StatusBadGateway, nodes.SessionEndedMessage)
	}
	if err != nil {
		switch errx.KindOf(err) {
		case errx.KindValidation, errx.KindImageDecode:
			metrics.GenerationsTotal.WithLabelValues(domain, metrics.OutcomeRejected).Inc()
			logx.Info().Err(err).Str("session_id", sessionID).Str("domain", domain).Msg("Report request rejected")
			return model.GenerationResult{}, err
		}

		if _, ok := errx.From(err); !ok {
			if callCtx.Err() == nil {
				logx.Error().Err(err).Str("session_id", sessionID).Str("domain", domain).Msg("Report graph failed")
				return model.GenerationResult{}, errx.Internal(err)
			}
			err = nodes.Classify(callCtx, err)
		}

		res := model.Failed(err)
		failure := state.Record(res, "", r.now())

		outcome := metrics.OutcomeFailed
		if failure.Kind == errx.KindTimeout {
			outcome = metrics.OutcomeTimeout
		}
		metrics.GenerationsTotal.WithLabelValues(domain, outcome).Inc()
		metrics.GenerationDuration.WithLabelValues(domain).Observe(elapsed.Seconds())
		logx.Warn().
			Str("session_id", sessionID).
			Str("domain", domain).
			Str("kind", string(failure.Kind)).
			Str("detail", failure.Detail).
			Dur("elapsed", elapsed).
			Msg("Report generation failed")
		return res, nil
	}

	res := model.Success(draft.Text)
	state.Record(res, desc.ExportName(draft.Request), r.now())
	if err := r.sessions.Save(ctx, sessionID, state); err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Str("domain", domain).Msg("Failed to persist generated report")
		return model.GenerationResult{}, err
	}

	metrics.GenerationsTotal.WithLabelValues(domain, metrics.OutcomeSuccess).Inc()
	metrics.GenerationDuration.WithLabelValues(domain).Observe(elapsed.Seconds())
	logx.Info().
		Str("session_id", sessionID).
		Str("domain", domain).
		Int("chars", len(res.Text)).
		Dur("elapsed", elapsed).
		Msg("Report generated")
	return res, nil
}

// Read returns the stored text of the domain, or "" when nothing is stored.
func (r *Runner) Read(ctx context.Context, sessionID string, domain model.Domain) (string, error) {
	if _, err := descriptor(domain); err != nil {
		return "", err
	}
	state, err := r.sessions.Load(ctx, sessionID, domain)
	if err != nil {
		return "", err
	}
	return state.Read(), nil
}

// Clear empties the stored text of the domain. It is rejected while a
// generation is in flight for the session.
func (r *Runner) Clear(ctx context.Context, sessionID string, domain model.Domain) error {
	if _, err := descriptor(domain); err != nil {
		return err
	}
	_, release, err := r.sessions.Begin(ctx, sessionID)
	if err != nil {
		return err
	}
	defer release()

	state, err := r.sessions.Load(ctx, sessionID, domain)
	if err != nil {
		return err
	}
	state.Clear()
	if err := r.sessions.Save(ctx, sessionID, state); err != nil {
		return err
	}
	logx.Debug().Str("session_id", sessionID).Str("domain", domain.String()).Msg("Cleared stored report")
	return nil
}

// Export returns the stored text of the domain as a plain-text artifact.
func (r *Runner) Export(ctx context.Context, sessionID string, domain model.Domain) (export.Artifact, error) {
	if _, err := descriptor(domain); err != nil {
		return export.Artifact{}, err
	}
	state, err := r.sessions.Load(ctx, sessionID, domain)
	if err != nil {
		return export.Artifact{}, err
	}
	return export.Build(state.Snapshot())
}

// EndSession cancels any in-flight generation and drops every stored result.
func (r *Runner) EndSession(ctx context.Context, sessionID string) error {
	return r.sessions.End(ctx, sessionID)
}
