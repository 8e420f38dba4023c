package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ZaguanLabs/pagetl"
	"github.com/sashabaranov/go-openai"
)

// OpenAITranslator is a translation capability backed by OpenAI chat completions.
type OpenAITranslator struct {
	client      *openai.Client
	model       string
	temperature float32
	apiKey      string
	logger      *slog.Logger
}

// OpenAIConfig holds configuration for the OpenAI translator.
type OpenAIConfig struct {
	APIKey      string       // OpenAI API key
	Model       string       // Model to use (default: "gpt-4o-mini")
	Temperature float32      // Temperature for generation (default: 0.3)
	BaseURL     string       // Custom base URL (optional)
	Logger      *slog.Logger // Optional
}

// NewOpenAITranslator creates a new OpenAI translation capability.
func NewOpenAITranslator(cfg OpenAIConfig) *OpenAITranslator {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	config.HTTPClient = &http.Client{Transport: userAgentTransport{base: http.DefaultTransport}}

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &OpenAITranslator{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		temperature: temperature,
		apiKey:      cfg.APIKey,
		logger:      logger,
	}
}

// userAgentTransport identifies pagetl on outgoing API requests.
type userAgentTransport struct {
	base http.RoundTripper
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", pagetl.UserAgent())
	return t.base.RoundTrip(req)
}

// Availability reports whether the pair can be served. There is nothing to
// download, so a pair is either available or unavailable.
func (t *OpenAITranslator) Availability(ctx context.Context, pair pagetl.LanguagePair) (pagetl.Availability, error) {
	if err := ctx.Err(); err != nil {
		return pagetl.Unavailable, err
	}
	if t.apiKey == "" || !knownLanguage(pair.Source) || !knownLanguage(pair.Target) {
		return pagetl.Unavailable, nil
	}
	return pagetl.Available, nil
}

// Create returns a translator instance bound to pair. Nothing is
// downloaded, so monitor is never called.
func (t *OpenAITranslator) Create(ctx context.Context, pair pagetl.LanguagePair, monitor pagetl.ProgressFunc) (pagetl.TranslatorInstance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !knownLanguage(pair.Source) || !knownLanguage(pair.Target) {
		return nil, &pagetl.ProviderError{
			Message: fmt.Sprintf("unsupported language pair %s", pair),
		}
	}
	return &openAIInstance{
		translator: t,
		pair:       pair,
		prompt:     buildSystemPrompt(pair),
	}, nil
}

type openAIInstance struct {
	translator *OpenAITranslator
	pair       pagetl.LanguagePair
	prompt     string
	destroyed  bool
}

func (i *openAIInstance) request(text string) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: i.translator.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: i.prompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: i.translator.temperature,
	}
}

// Translate translates text in one call.
func (i *openAIInstance) Translate(ctx context.Context, text string) (string, error) {
	if i.destroyed {
		return "", &pagetl.ProviderError{Message: "translator destroyed"}
	}

	resp, err := i.translator.client.CreateChatCompletion(ctx, i.request(text))
	if err != nil {
		return "", &pagetl.ProviderError{
			Message:   "OpenAI API call failed",
			Cause:     err,
			Retryable: isRetryableError(err),
		}
	}

	if len(resp.Choices) == 0 {
		return "", &pagetl.ProviderError{
			Message:   "no response from OpenAI",
			Retryable: true,
		}
	}

	out := cleanResponse(resp.Choices[0].Message.Content)
	if strings.TrimSpace(out) == "" && strings.TrimSpace(text) != "" {
		return "", emptyCompletion()
	}

	i.translator.logger.Debug("unit translated",
		"pair", i.pair.String(),
		"tokens", resp.Usage.TotalTokens)
	return out, nil
}

// TranslateStreaming starts a streamed completion.
func (i *openAIInstance) TranslateStreaming(ctx context.Context, text string) (pagetl.TextStream, error) {
	if i.destroyed {
		return nil, &pagetl.ProviderError{Message: "translator destroyed"}
	}

	req := i.request(text)
	req.Stream = true
	stream, err := i.translator.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, &pagetl.ProviderError{
			Message:   "OpenAI stream failed to start",
			Cause:     err,
			Retryable: isRetryableError(err),
		}
	}
	return &openAIStream{stream: stream, wantText: strings.TrimSpace(text) != ""}, nil
}

func (i *openAIInstance) Destroy() {
	i.destroyed = true
}

func emptyCompletion() error {
	return &pagetl.ProviderError{
		Message:   "empty completion from OpenAI",
		Cause:     pagetl.ErrEmptyTranslation,
		Retryable: true,
	}
}

// openAIStream turns completion deltas into cumulative values.
type openAIStream struct {
	stream   *openai.ChatCompletionStream
	text     strings.Builder
	wantText bool // input had content, so an empty stream is an error
	done     bool
}

func (s *openAIStream) Recv() (string, error) {
	if s.done {
		return "", io.EOF
	}
	for {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			s.done = true
			full := s.text.String()
			if s.wantText && strings.TrimSpace(cleanResponse(full)) == "" {
				return "", emptyCompletion()
			}
			if final := cleanResponse(full); final != full {
				return final, nil
			}
			return "", io.EOF
		}
		if err != nil {
			return "", &pagetl.ProviderError{
				Message:   "OpenAI stream interrupted",
				Cause:     err,
				Retryable: isRetryableError(err),
			}
		}
		if len(resp.Choices) == 0 || resp.Choices[0].Delta.Content == "" {
			continue
		}
		s.text.WriteString(resp.Choices[0].Delta.Content)
		return s.text.String(), nil
	}
}

func (s *openAIStream) Close() error {
	return s.stream.Close()
}

func buildSystemPrompt(pair pagetl.LanguagePair) string {
	sourceName := pagetl.GetLanguageName(pair.Source)
	targetName := pagetl.GetLanguageName(pair.Target)

	return fmt.Sprintf(`# Role
You are an expert native translator. You translate web page content from %s to %s with the fluency and nuance of a highly educated native speaker.

# Task
Translate the text provided by the user into idiomatic %s. The text is one paragraph, list item or table cell of a web page and may contain inline HTML.

# Style Guide
- **Natural Flow**: Avoid literal translations. Rephrase sentences to sound completely natural to a native speaker.
- **Tone**: Maintain the original intent but adapt the wording to fit the target culture's expectations.
- **HTML Safety**: Keep every HTML tag and attribute exactly as it is. Translate only the text between tags.
- **Placeholders**: Tokens like <1:name> or <2> stand for code. Copy them unchanged, including the number and the text after the colon, and move them where the grammar of %s needs them.
- **Formatting**: Preserve meaningful whitespace. Use idiomatic punctuation for the target language.

# Format
Reply with the translation only. Do NOT wrap it in Markdown code blocks and do NOT add explanations.`,
		sourceName, targetName, targetName, targetName)
}

// cleanResponse strips a Markdown code fence some models add despite the prompt.
func cleanResponse(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") || !strings.HasSuffix(trimmed, "```") || len(trimmed) < 6 {
		return content
	}
	body := strings.TrimSuffix(strings.TrimPrefix(trimmed, "```"), "```")
	if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], " <") {
		body = body[nl+1:]
	}
	return strings.TrimSpace(body)
}

func isRetryableError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
	}

	// Check for common retryable conditions
	errStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"rate limit",
		"timeout",
		"connection refused",
		"temporary",
		"503",
		"502",
		"429",
	}

	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// Verify OpenAITranslator implements TranslatorCapability
var _ pagetl.TranslatorCapability = (*OpenAITranslator)(nil)
