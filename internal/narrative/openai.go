package narrative

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/starford/lorekeeper/internal/arc"
	"github.com/starford/lorekeeper/internal/models"
)

const (
	// DefaultOpenAIModel is used when no model is configured.
	DefaultOpenAIModel = "gpt-4o-mini"
	// DefaultOpenAIBaseURL is the public OpenAI endpoint.
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout bounds a single completion call.
	DefaultTimeout = 60 * time.Second

	systemPrompt = "You are a biographer condensing a personal timeline into short narrative beats. " +
		"Respond with valid JSON only."
)

// ErrNoChoices is returned when the completion has no choices.
var ErrNoChoices = errors.New("narrative: no choices in response")

// OpenAI asks a chat completion model for weekly and monthly prose. It
// implements arc.WeeklySynthesizer and arc.NarrativeStitcher.
type OpenAI struct {
	client openai.Client
	model  string
	logger *slog.Logger
}

var (
	_ arc.WeeklySynthesizer = (*OpenAI)(nil)
	_ arc.NarrativeStitcher = (*OpenAI)(nil)
)

// NewOpenAI creates a provider. Empty model and baseURL use the defaults.
func NewOpenAI(apiKey, baseURL, model string, logger *slog.Logger) *OpenAI {
	if model == "" {
		model = DefaultOpenAIModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(&http.Client{Timeout: DefaultTimeout}),
	)
	return &OpenAI{client: client, model: model, logger: logger}
}

// Synthesize asks for the hook, arc, and turning points of one week.
func (p *OpenAI) Synthesize(ctx context.Context, events []models.TimelineEvent, start, end time.Time) (arc.Narrative, error) {
	prompt := WeeklyPrompt(events, start, end)
	content, err := p.complete(ctx, "synthesize_week", prompt)
	if err != nil {
		return arc.Narrative{}, err
	}
	var n arc.Narrative
	if err := decodeJSON(content, &n); err != nil {
		return arc.Narrative{}, err
	}
	return n, nil
}

// Stitch asks for the month hook and arc.
func (p *OpenAI) Stitch(ctx context.Context, events []models.TimelineEvent) (arc.Stitched, error) {
	content, err := p.complete(ctx, "stitch_month", StitchPrompt(events))
	if err != nil {
		return arc.Stitched{}, err
	}
	var s arc.Stitched
	if err := decodeJSON(content, &s); err != nil {
		return arc.Stitched{}, err
	}
	return s, nil
}

func (p *OpenAI) complete(ctx context.Context, op, prompt string) (string, error) {
	req := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	start := time.Now()
	resp, err := p.client.Chat.Completions.New(ctx, req)
	if err != nil {
		p.logger.Warn("narrative completion failed",
			slog.String("operation", op),
			slog.String("model", p.model),
			slog.Duration("latency", time.Since(start)),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("narrative: %s: %w", op, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	p.logger.Debug("narrative completion",
		slog.String("operation", op),
		slog.String("model", p.model),
		slog.Int("prompt_length", len(prompt)),
		slog.Duration("latency", time.Since(start)))
	return resp.Choices[0].Message.Content, nil
}

// decodeJSON parses a model reply, tolerating prose around the object.
func decodeJSON(content string, v any) error {
	raw := strings.TrimSpace(content)
	if err := json.Unmarshal([]byte(raw), v); err == nil {
		return nil
	}
	i, j := strings.Index(raw, "{"), strings.LastIndex(raw, "}")
	if i < 0 || j <= i {
		return fmt.Errorf("narrative: reply is not JSON: %q", truncate(raw, 80))
	}
	if err := json.Unmarshal([]byte(raw[i:j+1]), v); err != nil {
		return fmt.Errorf("narrative: parse reply: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
