package nodes

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/cloudwego/eino/compose"

	errx "github.com/opsdesk/reportgen/internal/core/error"
	"github.com/opsdesk/reportgen/internal/report/domains"
	"github.com/opsdesk/reportgen/internal/report/model"
	"github.com/opsdesk/reportgen/internal/report/pipeline/collector"
	"github.com/opsdesk/reportgen/internal/report/pipeline/generation"
	"github.com/opsdesk/reportgen/internal/report/pipeline/images"
	"github.com/opsdesk/reportgen/internal/report/pipeline/prompts"
	logx "github.com/opsdesk/reportgen/pkg/logger"
)

const (
	NodeCollector = "Collector"
	NodeComposer  = "Composer"
	NodeGenerator = "Generator"
	NodeAssembler = "Assembler"
)

// SessionEndedMessage is shown when a generation is cancelled because its session ended.
const SessionEndedMessage = "세션이 종료되어 보고서 생성이 취소되었습니다."

func descriptor(d model.Domain) (model.Descriptor, error) {
	desc, ok := domains.Lookup(d)
	if !ok {
		return model.Descriptor{}, errx.Validation(fmt.Sprintf("지원하지 않는 보고서 유형입니다: %s", d))
	}
	return desc, nil
}

// NewCollectorPreHandler records the session and domain of the run.
func NewCollectorPreHandler() func(context.Context, model.Submission, *model.RunState) (model.Submission, error) {
	return func(ctx context.Context, in model.Submission, s *model.RunState) (model.Submission, error) {
		s.SessionID = in.SessionID
		s.Domain = in.Domain
		return in, nil
	}
}

// NewCollectorNode normalises the raw submission against its domain schema.
func NewCollectorNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, sub model.Submission) (model.ReportRequest, error) {
		desc, err := descriptor(sub.Domain)
		if err != nil {
			return model.ReportRequest{}, err
		}
		return collector.Collect(desc, sub)
	})
}

// NewCollectorPostHandler keeps the normalised request for the assembler.
func NewCollectorPostHandler() func(context.Context, model.ReportRequest, *model.RunState) (model.ReportRequest, error) {
	return func(ctx context.Context, out model.ReportRequest, s *model.RunState) (model.ReportRequest, error) {
		req := out
		s.Request = &req
		logx.Debug().
			Str("session_id", s.SessionID).
			Str("domain", out.Domain.String()).
			Int("fields", len(out.Fields)).
			Bool("image", out.HasImage()).
			Msg("Collected report request")
		return out, nil
	}
}

// NewComposerNode normalises the attached image, if any, and renders the prompt pair.
func NewComposerNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, req model.ReportRequest) (model.PromptPair, error) {
		desc, err := descriptor(req.Domain)
		if err != nil {
			return model.PromptPair{}, err
		}

		var imgs []model.InlineImage
		if req.HasImage() {
			img, err := images.Normalize(req.Image)
			if err != nil {
				logx.Warn().Err(err).Str("domain", req.Domain.String()).Msg("Rejected uploaded image")
				return model.PromptPair{}, err
			}
			imgs = append(imgs, img)
			if ev := logx.Debug(); ev.Enabled() {
				ev.Int("width", img.Width).
					Int("height", img.Height).
					Int("bytes", len(img.Data)).
					Int("inline_len", len(img.DataURL())).
					Msg("Normalised uploaded image")
			}
		}

		return prompts.Compose(ctx, desc, req, imgs...)
	})
}

// NewGeneratorNode issues exactly one request to the generation service.
// Every failure is mapped to a Generation or Timeout AppError.
func NewGeneratorNode(client generation.Client) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, pair model.PromptPair) (string, error) {
		text, err := client.Generate(ctx, pair)
		if err != nil {
			return "", Classify(ctx, err)
		}
		return text, nil
	})
}

// Classify maps a generation failure to its AppError kind. AppErrors pass through.
func Classify(ctx context.Context, err error) error {
	if _, ok := errx.From(err); ok {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return errx.Timeout(err)
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return errx.New(errx.KindGeneration, err, http.StatusBadGateway, SessionEndedMessage)
	default:
		return errx.Generation(err)
	}
}

// NewAssemblerNode pairs the generated text with the request it answers.
func NewAssemblerNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, text string) (model.Draft, error) {
		var req *model.ReportRequest
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.RunState) error {
			if s.Request == nil {
				return fmt.Errorf("missing report request in state")
			}
			req = s.Request
			return nil
		})
		if err != nil {
			return model.Draft{}, fmt.Errorf("failed to access state: %w", err)
		}
		return model.Draft{Request: *req, Text: text}, nil
	})
}
