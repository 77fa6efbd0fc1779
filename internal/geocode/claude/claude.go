package claude

import (
	"context"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/mahrfyi/internal/geocode"
)

// maxTokens comfortably covers a country name.
const maxTokens = 32

type ClaudeGeocoder struct {
	client *anthropic.Client
	model  string
}

func NewClaudeGeocoder(apiKey, model string, opts ...anthropic.ClientOption) *ClaudeGeocoder {
	return &ClaudeGeocoder{
		client: anthropic.NewClient(apiKey, opts...),
		model:  model,
	}
}

func (g *ClaudeGeocoder) Geocode(ctx context.Context, text string) (geocode.Result, error) {
	resp, err := g.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(g.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.Message{
			anthropic.NewUserTextMessage(geocode.BuildPrompt(text)),
		},
	})
	if err != nil {
		return geocode.Result{}, fmt.Errorf("failed to call claude: %w", err)
	}

	var responseText string
	for _, c := range resp.Content {
		if c.Type == anthropic.MessagesContentTypeText {
			responseText = c.GetText()
			break
		}
	}

	return geocode.Result{
		Country:     geocode.ParseReply(responseText),
		RawResponse: responseText,
	}, nil
}
