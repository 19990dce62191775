package generation

import (
	"context"
	"strings"

	"google.golang.org/genai"

	"github.com/opsdesk/reportgen/internal/report/model"
)

// InlineClient calls Gemini directly so image bytes travel inline with the
// request. The eino Gemini adapter only forwards image parts by URI.
type InlineClient struct {
	client *genai.Client
	cfg    model.GenerationConfig
}

func NewInlineClient(client *genai.Client, cfg model.GenerationConfig) *InlineClient {
	return &InlineClient{client: client, cfg: cfg}
}

// Contents builds the user turn: the fact text followed by every inline image.
func Contents(pair model.PromptPair) []*genai.Content {
	parts := []*genai.Part{genai.NewPartFromText(pair.Text())}
	for _, img := range pair.Images() {
		parts = append(parts, genai.NewPartFromBytes(img.Data, img.MIMEType))
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

func (c *InlineClient) Generate(ctx context.Context, pair model.PromptPair) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(pair.Instructions, genai.RoleUser),
		Temperature:       genai.Ptr(c.cfg.Temperature),
	}
	if c.cfg.MaxTokens > 0 {
		config.MaxOutputTokens = int32(c.cfg.MaxTokens)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.cfg.Model, Contents(pair), config)
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", ErrEmptyResponse
	}

	if u := resp.UsageMetadata; u != nil {
		recordUsage(c.cfg.Model, pair.Domain, &model.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		})
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

var _ Client = (*InlineClient)(nil)
