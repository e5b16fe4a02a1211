package summary

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Ethan0723/Insight-Hub/internal/llm"
	"github.com/Ethan0723/Insight-Hub/internal/logger"
	"github.com/Ethan0723/Insight-Hub/internal/ratelimit"
	"github.com/Ethan0723/Insight-Hub/internal/retry"
)

// ErrHalted means the per-run model budget is exhausted or the unreachable
// breaker tripped; no further summaries will be attempted this run. Items
// already ingested stay ingested and can be backfilled later.
var ErrHalted = errors.New("summary generation halted for this run")

// Generator runs the summarize/parse/repair/default state machine. Apart
// from ErrHalted it is total: any model output, including none at all,
// yields a schema-valid Summary.
type Generator struct {
	client          *llm.Client
	limiter         *ratelimit.Limiter
	maxInputChars   int
	maxTokens       int
	repairMaxTokens int
	retryCfg        retry.Config
}

func NewGenerator(client *llm.Client, limiter *ratelimit.Limiter, maxInputChars, maxTokens, repairMaxTokens int, retryCfg retry.Config) *Generator {
	return &Generator{
		client:          client,
		limiter:         limiter,
		maxInputChars:   maxInputChars,
		maxTokens:       maxTokens,
		repairMaxTokens: repairMaxTokens,
		retryCfg:        retryCfg,
	}
}

// Generate produces the strategic summary for one accepted item.
func (g *Generator) Generate(ctx context.Context, title, content string) (Summary, error) {
	resp, err := g.call(ctx, buildPrompt(title, content, g.maxInputChars), 0.1, g.maxTokens)
	if err != nil {
		return Summary{}, err
	}

	text := llm.ExtractText(resp)
	if text == llm.NoUsableText {
		// Nothing to parse; skip straight to the fixed default.
		return Default("model returned no usable text"), nil
	}

	if payload, ok := parseObject(text); ok {
		return Normalize(payload, title, content), nil
	}

	logger.Warn("model output is not valid JSON, attempting repair", "title", title)
	if payload, ok := g.repair(ctx, text); ok {
		return Normalize(payload, title, content), nil
	}

	return Default("model did not return valid JSON"), nil
}

// repair issues one secondary model call asking for the broken text to be
// converted into strict JSON.
func (g *Generator) repair(ctx context.Context, broken string) (map[string]interface{}, bool) {
	resp, err := g.call(ctx, buildRepairPrompt(broken), 0, g.repairMaxTokens)
	if err != nil {
		logger.Warn("repair call failed", "error", err)
		return nil, false
	}

	text := llm.ExtractText(resp)
	if text == llm.NoUsableText {
		return nil, false
	}
	return parseObject(text)
}

func (g *Generator) call(ctx context.Context, prompt string, temperature float64, maxTokens int) (*llm.Response, error) {
	if !g.limiter.Allow() {
		return nil, ErrHalted
	}
	g.limiter.Use()

	var resp *llm.Response
	var hardErr error
	err := retry.WithRetry(ctx, g.retryCfg, func() error {
		r, callErr := g.client.ChatCompletion(ctx, prompt, temperature, maxTokens)
		if callErr == nil {
			resp = r
			return nil
		}
		if errors.Is(callErr, llm.ErrUnreachable) {
			return callErr
		}
		// Reachable endpoint, bad answer: retrying will not help.
		hardErr = callErr
		return nil
	})

	if err != nil {
		if errors.Is(err, llm.ErrUnreachable) {
			g.limiter.RecordTransportFailure()
		}
		return nil, err
	}
	if hardErr != nil {
		return nil, hardErr
	}

	g.limiter.RecordSuccess()
	return resp, nil
}

// parseObject attempts strict JSON parsing, then falls back to extracting
// the first brace-delimited object from the raw text.
func parseObject(text string) (map[string]interface{}, bool) {
	clean := llm.StripCodeFence(text)

	var payload map[string]interface{}
	if err := json.Unmarshal([]byte(clean), &payload); err == nil {
		return payload, true
	}

	if obj := llm.ExtractJSONObject(clean); obj != "" {
		if err := json.Unmarshal([]byte(obj), &payload); err == nil {
			return payload, true
		}
	}
	return nil, false
}
