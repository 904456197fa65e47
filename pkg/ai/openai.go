package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	aiDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "dismissal",
		Subsystem: "ai",
		Name:      "request_duration_seconds",
		Help:      "Duration of generator requests",
	}, []string{"model", "kind"})

	aiFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dismissal",
		Subsystem: "ai",
		Name:      "request_failures_total",
		Help:      "Number of failed generator requests",
	}, []string{"model", "kind"})
)

// OpenAIConfig defines configuration options for the OpenAI client.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	SearchModel string
	MaxTokens   int
	Timeout     time.Duration
	Logger      zerolog.Logger
}

// OpenAIClient implements GoodbyeWriter and Searcher against the chat completion API.
type OpenAIClient struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIClient builds a client using the provided configuration.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.SearchModel == "" {
		cfg.SearchModel = "gpt-4o-mini-search-preview"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 800
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(config),
		cfg:    cfg,
		tracer: otel.Tracer("github.com/noah-isme/dismissal-api/pkg/ai/openai"),
		logger: cfg.Logger.With().Str("component", "openai_client").Logger(),
	}, nil
}

// Goodbye writes a short Korean farewell. Any failure yields FallbackGoodbye.
func (c *OpenAIClient) Goodbye(parent context.Context, studentName string, grade int) string {
	ctx, cancel := context.WithTimeout(parent, c.cfg.Timeout)
	defer cancel()

	content, err := c.complete(ctx, "goodbye", c.cfg.Model, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: goodbyePrompt(studentName, grade)},
	}, 200)
	if err != nil {
		c.logger.Warn().Err(err).Str("student", studentName).Msg("goodbye generation failed")
		return FallbackGoodbye
	}
	if content == "" {
		return EmptyGoodbye
	}
	return content
}

// Search runs prompt against the search model and extracts cited sources.
func (c *OpenAIClient) Search(parent context.Context, prompt string) (SearchResult, error) {
	ctx, cancel := context.WithTimeout(parent, c.cfg.Timeout)
	defer cancel()

	content, err := c.complete(ctx, "search", c.cfg.SearchModel, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: searchSystemPrompt()},
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	}, c.cfg.MaxTokens)
	if err != nil {
		return SearchResult{}, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}

	return parseSearchResponse(content), nil
}

func (c *OpenAIClient) complete(ctx context.Context, kind, model string, messages []openai.ChatCompletionMessage, maxTokens int) (string, error) {
	ctx, span := c.tracer.Start(ctx, "openai."+kind, trace.WithAttributes(
		attribute.String("model", model),
	))
	defer span.End()

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     model,
		MaxTokens: maxTokens,
		Messages:  messages,
	})
	aiDuration.WithLabelValues(model, kind).Observe(time.Since(start).Seconds())
	if err != nil {
		aiFailures.WithLabelValues(model, kind).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("openai %s: %w", kind, err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from openai")
		aiFailures.WithLabelValues(model, kind).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func goodbyePrompt(name string, grade int) string {
	return fmt.Sprintf("Write a short, warm, and encouraging goodbye message (1-2 sentences) in Korean for a Korean "+
		"elementary school student named %s (Grade %d) who is leaving school right now. Mention resting well or "+
		"having a good evening.", name, grade)
}

func searchSystemPrompt() string {
	return "Use web search to answer. Respond with a JSON object: {\"text\": string, \"sources\": [{\"title\": string, " +
		"\"uri\": string}]}. List every web page you relied on in sources."
}

// parseSearchResponse accepts the JSON envelope, optionally wrapped in a code
// fence. Anything else is taken as plain text without citations. Sources come
// from the model's own reply; only absolute http(s) links are kept and each
// link is listed once.
func parseSearchResponse(content string) SearchResult {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
		trimmed = strings.TrimSpace(trimmed)
	}

	var payload struct {
		Text    string     `json:"text"`
		Sources []Citation `json:"sources"`
	}
	if err := json.Unmarshal([]byte(trimmed), &payload); err != nil || strings.TrimSpace(payload.Text) == "" {
		return SearchResult{Text: strings.TrimSpace(content)}
	}

	citations := make([]Citation, 0, len(payload.Sources))
	seen := make(map[string]struct{}, len(payload.Sources))
	for _, source := range payload.Sources {
		title := strings.TrimSpace(source.Title)
		uri := strings.TrimSpace(source.URI)
		if title == "" || !webLink(uri) {
			continue
		}
		if _, dup := seen[uri]; dup {
			continue
		}
		seen[uri] = struct{}{}
		citations = append(citations, Citation{Title: title, URI: uri})
	}

	return SearchResult{Text: strings.TrimSpace(payload.Text), Citations: citations}
}

func webLink(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return false
	}
	return parsed.Scheme == "http" || parsed.Scheme == "https"
}
