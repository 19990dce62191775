package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/opsdesk/reportgen/internal/report/model"
)

// factTemplate lists every field on its own line, then the closing directive.
const factTemplate = `[사용자 제공 정보]
{{range .Fields}}- {{.Label}}: {{.Value}}
{{end}}
요청: {{.Directive}}`

// Compose renders the instruction block and the fact block for req.
//
// The instruction block is the descriptor's constant text, passed through a
// messages placeholder so user values are never interpolated into it. Images
// are appended after the fact block in the order given.
func Compose(ctx context.Context, desc model.Descriptor, req model.ReportRequest, images ...model.InlineImage) (model.PromptPair, error) {
	fields := make([]model.Field, len(req.Fields))
	for i, f := range req.Fields {
		fields[i] = model.Field{Key: f.Key, Label: f.Label, Value: singleLine(f.Value)}
	}

	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.MessagesPlaceholder("instructions", false),
		schema.UserMessage(factTemplate),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"instructions": []*schema.Message{schema.SystemMessage(desc.Instructions)},
		"Fields":       fields,
		"Directive":    desc.Directive,
	})
	if err != nil {
		return model.PromptPair{}, fmt.Errorf("render %s prompt: %w", desc.Domain, err)
	}
	if len(msgs) != 2 || msgs[0] == nil || msgs[1] == nil {
		return model.PromptPair{}, fmt.Errorf("render %s prompt: unexpected message count %d", desc.Domain, len(msgs))
	}

	pair := model.PromptPair{
		Domain:       desc.Domain,
		Instructions: msgs[0].Content,
		Content:      []model.ContentPart{{Kind: model.ContentText, Text: msgs[1].Content}},
	}
	for i := range images {
		img := images[i]
		pair.Content = append(pair.Content, model.ContentPart{Kind: model.ContentImage, Image: &img})
	}
	return pair, nil
}

// singleLine folds multi-line input so each field stays on one fact line.
func singleLine(v string) string {
	if !strings.ContainsAny(v, "\r\n") {
		return v
	}
	lines := strings.FieldsFunc(v, func(r rune) bool { return r == '\n' || r == '\r' })
	kept := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, " / ")
}
