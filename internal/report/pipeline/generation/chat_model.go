package generation

import (
	"context"
	"errors"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/opsdesk/reportgen/internal/report/model"
)

// ErrInlineImageUnsupported is returned when an image prompt reaches a text-only chat model.
var ErrInlineImageUnsupported = errors.New("chat model client does not accept inline images")

// ChatModelClient sends text prompts through an eino chat model.
type ChatModelClient struct {
	chatModel einomodel.BaseChatModel
	modelName string
}

func NewChatModelClient(cm einomodel.BaseChatModel, modelName string) *ChatModelClient {
	return &ChatModelClient{chatModel: cm, modelName: modelName}
}

// Messages converts a text prompt pair into the system + user chat messages.
func Messages(pair model.PromptPair) []*schema.Message {
	return []*schema.Message{
		schema.SystemMessage(pair.Instructions),
		schema.UserMessage(pair.Text()),
	}
}

func (c *ChatModelClient) Generate(ctx context.Context, pair model.PromptPair) (string, error) {
	if pair.HasImage() {
		return "", ErrInlineImageUnsupported
	}

	out, err := c.chatModel.Generate(ctx, Messages(pair))
	if err != nil {
		return "", err
	}
	if out == nil {
		return "", ErrEmptyResponse
	}

	if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		recordUsage(c.modelName, pair.Domain, &model.Usage{
			PromptTokens:     out.ResponseMeta.Usage.PromptTokens,
			CompletionTokens: out.ResponseMeta.Usage.CompletionTokens,
			TotalTokens:      out.ResponseMeta.Usage.TotalTokens,
		})
	}

	if strings.TrimSpace(out.Content) == "" {
		return "", ErrEmptyResponse
	}
	return out.Content, nil
}

var _ Client = (*ChatModelClient)(nil)
