// Package llm drives the per-chunk grading call: build the multimodal
// request, invoke the chat-completion transport once, extract the JSON
// grading record, and recompute the total before anything downstream
// sees it.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pavelanni/gradescan/internal/extract"
	"github.com/pavelanni/gradescan/internal/llm/prompts"
	"github.com/pavelanni/gradescan/internal/model"
	"github.com/pavelanni/gradescan/internal/score"

	openai "github.com/sashabaranov/go-openai"
)

// transport is the narrow slice of the OpenAI client the grader uses.
// Tests substitute a fake; the core never inspects anything beyond the
// completion status and body.
type transport interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Grader grades one student chunk against the shared solution key.
type Grader interface {
	GradeChunk(ctx context.Context, chunk model.StudentChunk, key model.SolutionKey) model.ChunkResult
}

// Client wraps an OpenAI-compatible API client for exam grading.
type Client struct {
	api transport
	cfg model.GradingConfig
}

// New creates a grading client. Configuration absence is a hard error
// here, before any per-chunk call can be attempted.
func New(cfg model.GradingConfig) (*Client, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !prompts.IsValidVariant(cfg.PromptVariant) {
		return nil, fmt.Errorf("invalid prompt variant %q", cfg.PromptVariant)
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	return &Client{
		api: openai.NewClientWithConfig(config),
		cfg: cfg,
	}, nil
}

// GradeChunk performs exactly one outbound model call for the chunk.
// It never returns a Go error: transport and extraction failures are
// folded into ChunkResult.Err so one bad chunk cannot abort a run, and
// retry policy stays with the caller.
func (c *Client) GradeChunk(ctx context.Context, chunk model.StudentChunk, key model.SolutionKey) model.ChunkResult {
	result := model.ChunkResult{StudentIndex: chunk.StudentIndex}

	req, err := BuildChunkRequest(chunk, key, c.cfg)
	if err != nil {
		result.Err = fmt.Sprintf("build request: %v", err)
		return result
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			result.Err = fmt.Sprintf("%d: %s", apiErr.HTTPStatusCode, apiErr.Message)
		} else {
			result.Err = fmt.Sprintf("model call: %v", err)
		}
		return result
	}
	if len(resp.Choices) == 0 {
		result.Err = "model returned no choices"
		return result
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("model response", "student", chunk.StudentIndex, "raw", raw)

	rec, err := extract.Record(raw, prompts.StudentLabel(chunk.StudentIndex))
	if err != nil {
		result.Err = err.Error()
		return result
	}

	// The model's self-reported total is never trusted.
	rec.TotalScore = score.Total(rec.Questions)
	result.Record = rec
	return result
}
