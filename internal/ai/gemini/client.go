package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"google.golang.org/genai"

	"github.com/spigell/vettavista/internal/ai"
	"github.com/spigell/vettavista/internal/logger"
	"github.com/spigell/vettavista/internal/metrics"
	"github.com/spigell/vettavista/internal/utils"
)

const (
	defaultModel       = "gemini-2.5-pro"
	defaultMaxRetries  = 3
	defaultConcurrency = 2

	backoffMultiplier = 2 * time.Second
	backoffMin        = 4 * time.Second
	backoffMax        = 10 * time.Second
	// longer provider-requested delays are not worth waiting for
	maxQuotaDelay = backoffMax
)

var sleep = utils.WaitFor

var retryDelayRe = regexp.MustCompile(`(?i)retry (?:after|in) (\d+(?:\.\d+)?)\s*(ms|s|sec|secs|second|seconds)?\b`)

type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type chatCreator interface {
	Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error)
}

type genaiChats struct {
	chats *genai.Chats
}

func (c genaiChats) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	return c.chats.Create(ctx, model, config, history)
}

// Conversation is one chat with the model. History is kept between Send calls.
type Conversation interface {
	Send(ctx context.Context, message string) (string, error)
}

// Generator runs chats against Gemini with bounded concurrency and retries.
type Generator struct {
	chats      chatCreator
	model      string
	maxRetries int
	logger     *zap.Logger
	sem        *semaphore.Weighted
	maxLogLen  int
}

// NewGenerator creates a Generator for the Gemini API backend.
func NewGenerator(client *genai.Client, model string, maxRetries int, concurrency int64, maxLogLen int, log *zap.Logger) (*Generator, error) {
	if client == nil {
		return nil, errors.New("genai client is required")
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	return &Generator{
		chats:      genaiChats{chats: client.Chats},
		model:      model,
		maxRetries: maxRetries,
		logger:     logger.WithCommonFields(log, "gemini", model),
		sem:        semaphore.NewWeighted(concurrency),
		maxLogLen:  maxLogLen,
	}, nil
}

// NewClient builds the genai client for an API key.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return client, nil
}

// GenerateContent sends a single message under the system instruction and
// returns the text of the response.
func (g *Generator) GenerateContent(ctx context.Context, system, message string) (string, error) {
	var output string
	err := g.Converse(ctx, "generate", system, func(ctx context.Context, c Conversation) error {
		text, err := c.Send(ctx, message)
		if err != nil {
			return err
		}
		output = text
		return nil
	})
	return output, err
}

// Converse runs fn with a fresh chat. When fn fails with a retryable error the
// whole conversation is repeated, up to maxRetries attempts in total. The
// concurrency slot is held for one attempt and released while waiting.
func (g *Generator) Converse(ctx context.Context, operation, system string, fn func(context.Context, Conversation) error) error {
	if g == nil || g.chats == nil {
		return errors.New("gemini generator is not initialized")
	}

	attempts := g.maxRetries
	if attempts <= 0 {
		attempts = defaultMaxRetries
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = g.attempt(ctx, system, fn)
		metrics.LLMRequests.WithLabelValues(operation, metrics.Result(err)).Inc()
		if err == nil {
			return nil
		}

		if !g.shouldRetry(err) || attempt == attempts {
			break
		}

		wait := utils.Backoff(attempt, backoffMultiplier, backoffMin, backoffMax)
		g.logger.Warn("gemini request failed, retrying",
			zap.String("operation", operation),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		if werr := sleep(ctx, wait); werr != nil {
			return werr
		}
	}

	return fmt.Errorf("%s: %w", operation, err)
}

func (g *Generator) attempt(ctx context.Context, system string, fn func(context.Context, Conversation) error) error {
	if g.sem != nil {
		if err := g.sem.Acquire(ctx, 1); err != nil {
			return err
		}
		defer g.sem.Release(1)
	}

	config := &genai.GenerateContentConfig{}
	if system = strings.TrimSpace(system); system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	chat, err := g.chats.Create(ctx, g.model, config, nil)
	if err != nil {
		return fmt.Errorf("create chat: %w", err)
	}

	return fn(ctx, &conversation{chat: chat, generator: g})
}

func (g *Generator) shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if ai.Retryable(err) {
		return true
	}

	apiErr, ok := asAPIError(err)
	if !ok {
		return false
	}

	switch apiErr.Code {
	case http.StatusTooManyRequests:
		if delay, ok := quotaDelay(apiErr); ok && delay > maxQuotaDelay {
			g.logger.Warn("quota delay too long, not retrying", zap.Duration("delay", delay))
			return false
		}
		return true
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func asAPIError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return *apiErrPtr, true
	}
	return genai.APIError{}, false
}

// quotaDelay reads the retry delay suggested by a rate limit error, from the
// RetryInfo detail or the message text.
func quotaDelay(apiErr genai.APIError) (time.Duration, bool) {
	for _, detail := range apiErr.Details {
		raw, ok := detail["retryDelay"].(string)
		if !ok {
			continue
		}
		if d, err := time.ParseDuration(raw); err == nil {
			return d, true
		}
	}

	m := retryDelayRe.FindStringSubmatch(apiErr.Message)
	if m == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	if strings.EqualFold(m[2], "ms") {
		return time.Duration(value * float64(time.Millisecond)), true
	}
	return time.Duration(value * float64(time.Second)), true
}

type conversation struct {
	chat      chatSession
	generator *Generator
}

func (c *conversation) Send(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", errors.New("message must not be empty")
	}

	c.generator.logger.Debug("gemini request",
		zap.Int("message_length", len([]rune(message))),
		zap.String("message_preview", utils.TruncateForLog(message, c.generator.logLen())),
	)

	resp, err := c.chat.SendMessage(ctx, genai.Part{Text: message})
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}

	output := responseText(resp)
	if output == "" {
		return "", fmt.Errorf("gemini api returned nothing: %w", ai.ErrEmptyResponse)
	}

	c.generator.logger.Debug("gemini response",
		zap.Int("response_length", len([]rune(output))),
		zap.String("response_preview", utils.TruncateForLog(output, c.generator.logLen())),
	)
	return output, nil
}

func (g *Generator) logLen() int {
	if g.maxLogLen <= 0 {
		return 200
	}
	return g.maxLogLen
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}
	return strings.TrimSpace(builder.String())
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}
