package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"content-hub/providers"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

const systemPrompt = `You are a content marketing strategist. Return ONLY valid JSON (no markdown) with these keys:
- title: string
- pillarContent: string (long-form article)
- supportContent: array of strings (supporting articles)
- metaTags: array of strings
- socialMediaPosts: array of strings
- emailSeries: array of {subject: string, body: string}
- reasoning: object mapping each key above to a short rationale`

// Generator erzeugt Marketing-Content über die OpenAI Chat Completions API.
type Generator struct {
	client  openai.Client
	model   string
	timeout time.Duration
	Logger  *zap.Logger
}

// NewGenerator erstellt einen OpenAI-Generator. baseURL ist optional.
func NewGenerator(apiKey, model, baseURL string, timeout time.Duration, logger *zap.Logger) *Generator {
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Generator{
		client:  openai.NewClient(opts...),
		model:   model,
		timeout: timeout,
		Logger:  logger,
	}
}

// Name gibt den Namen des Generators zurück.
func (g *Generator) Name() string {
	return "openai"
}

// Generate fordert ein Content-Bundle an und gibt den Nachrichtentext unverändert zurück.
// Die Normalisierung übernimmt der Aufrufer, genau wie bei Webhook-Antworten.
func (g *Generator) Generate(ctx context.Context, req providers.GenerationRequest) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	prompt, err := userPrompt(req)
	if err != nil {
		return "", err
	}

	log := g.Logger.With(zap.String("generator", g.Name()), zap.String("model", g.model))
	log.Info("Requesting content from OpenAI", zap.String("topic", req.Topic))

	completion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: shared.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", g.transportError(ctx, err)
	}
	if len(completion.Choices) == 0 {
		log.Warn("OpenAI returned no choices")
		return "", nil
	}
	return completion.Choices[0].Message.Content, nil
}

func (g *Generator) transportError(ctx context.Context, err error) error {
	te := &providers.TransportError{Provider: g.Name(), Err: err}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		te.StatusCode = apiErr.StatusCode
		te.Message = apiErr.Message
		if te.Message == "" {
			te.Message = http.StatusText(apiErr.StatusCode)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		te.Timeout = true
	}
	g.Logger.Error("OpenAI request failed", zap.Int("status", te.StatusCode), zap.Bool("timeout", te.Timeout), zap.Error(err))
	return te
}

func userPrompt(req providers.GenerationRequest) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n", req.Topic)
	if req.TopicArea != "" {
		fmt.Fprintf(&b, "Topic area: %s\n", req.TopicArea)
	}
	if req.Title != "" {
		fmt.Fprintf(&b, "Working title: %s\n", req.Title)
	}
	if req.ContentType != "" {
		fmt.Fprintf(&b, "Focus on content type: %s\n", req.ContentType)
	}
	if len(req.Keywords) > 0 {
		fmt.Fprintf(&b, "Target keywords: %s\n", strings.Join(req.Keywords, ", "))
	}
	if req.Existing != nil {
		existing, err := json.Marshal(req.Existing)
		if err != nil {
			return "", fmt.Errorf("encode existing content: %w", err)
		}
		fmt.Fprintf(&b, "Existing content to adjust (JSON): %s\n", existing)
	}
	if req.Instructions != "" {
		fmt.Fprintf(&b, "Instructions: %s\n", req.Instructions)
	}
	return b.String(), nil
}
