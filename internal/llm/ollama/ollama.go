// Package ollama talks to a local Ollama server via /api/generate and
// hands back the model's raw text. The response is untrusted; the
// decision interpreter owns making sense of it.
package ollama

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"deepstock/internal/store"
	"deepstock/internal/trace"
	"deepstock/internal/types"
)

type Decider struct {
	client      *resty.Client
	model       string
	temperature float64
	numCtx      int
	timeout     time.Duration
}

func NewDecider(cfg *store.Config) *Decider {
	timeout := time.Duration(cfg.LLM.TimeoutSeconds) * time.Second
	client := resty.New().
		SetBaseURL(cfg.LLM.URL).
		SetTimeout(timeout)
	return &Decider{
		client:      client,
		model:       cfg.LLM.Model,
		temperature: cfg.LLM.Temperature,
		numCtx:      cfg.LLM.ContextWindow,
		timeout:     timeout,
	}
}

// Decide sends the assembled prompt and returns the raw response text.
// The hard timeout bounds the dominant latency of the whole strategy
// cycle; expiry surfaces as an ordinary transport error.
func (d *Decider) Decide(ctx context.Context, pc types.PromptContext) (string, error) {
	ctx, span := trace.StartSpan(ctx, "ollama.generate")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	body := map[string]any{
		"model":  d.model,
		"prompt": BuildPrompt(pc, time.Now()),
		"stream": false,
		"options": map[string]any{
			"temperature": d.temperature,
			"num_ctx":     d.numCtx,
		},
	}

	var out struct {
		Response string `json:"response"`
	}
	resp, err := d.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/api/generate")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", fmt.Errorf("ollama: http %d", resp.StatusCode())
	}
	return out.Response, nil
}
