package generation

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"google.golang.org/genai"

	errx "github.com/opsdesk/reportgen/internal/core/error"
	"github.com/opsdesk/reportgen/internal/report/model"
	logx "github.com/opsdesk/reportgen/pkg/logger"
)

// GeminiConfig holds the configuration for the Gemini-backed clients.
type GeminiConfig struct {
	APIKey     string
	BaseURL    string
	Generation model.GenerationConfig
}

// NewGeminiRouter creates one shared Gemini client and routes text prompts
// through the eino chat model and image prompts through the inline client.
func NewGeminiRouter(ctx context.Context, config GeminiConfig) (*Router, error) {
	if config.APIKey == "" {
		return nil, errx.Configuration("GEMINI_API_KEY가 설정되어 있지 않습니다. 환경변수 또는 시크릿 파일로 설정하세요.")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	gen := config.Generation
	chatModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       gen.Model,
		Temperature: &gen.Temperature,
		MaxTokens:   &gen.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating report chat model")
		return nil, fmt.Errorf("error creating report chat model: %w", err)
	}

	logx.Debug().Str("model", gen.Model).Msg("Gemini generation clients ready")
	return &Router{
		Text:       NewChatModelClient(chatModel, gen.Model),
		Multimodal: NewInlineClient(client, gen),
	}, nil
}
