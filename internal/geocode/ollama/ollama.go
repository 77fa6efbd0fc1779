package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/vbonduro/mahrfyi/internal/geocode"
)

type OllamaGeocoder struct {
	host   string
	model  string
	client *http.Client
}

func NewOllamaGeocoder(host, model string, timeout time.Duration) *OllamaGeocoder {
	return &OllamaGeocoder{
		host:   host,
		model:  model,
		client: &http.Client{Timeout: timeout},
	}
}

func (g *OllamaGeocoder) Geocode(ctx context.Context, text string) (geocode.Result, error) {
	reqBody := map[string]interface{}{
		"model":  g.model,
		"prompt": geocode.BuildPrompt(text),
		"stream": false,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return geocode.Result{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.host+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return geocode.Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return geocode.Result{}, fmt.Errorf("failed to call ollama: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close ollama response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return geocode.Result{}, fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var respBody struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return geocode.Result{}, fmt.Errorf("failed to decode response: %w", err)
	}

	return geocode.Result{
		Country:     geocode.ParseReply(respBody.Response),
		RawResponse: respBody.Response,
	}, nil
}
