package textgen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/config"
)

var (
	ErrEmptyResponse = errors.New("model returned an empty response")
	ErrUnavailable   = errors.New("text generation temporarily unavailable")
)

const hlaInstruction = "Extract HLA typing information from this report. Return JSON only."

// hlaSchema constrains extraction output to the phase 5 fields.
var hlaSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"a1":                  {Type: genai.TypeString},
		"a2":                  {Type: genai.TypeString},
		"b1":                  {Type: genai.TypeString},
		"b2":                  {Type: genai.TypeString},
		"dr1":                 {Type: genai.TypeString},
		"dr2":                 {Type: genai.TypeString},
		"crossmatch_positive": {Type: genai.TypeBoolean},
		"dsa_detected":        {Type: genai.TypeBoolean},
	},
}

type generateFunc func(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error)

// Client calls Gemini through a rate limiter and a circuit breaker. When the
// breaker is open calls fail fast with ErrUnavailable.
type Client struct {
	model    string
	timeout  time.Duration
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker[string]
	generate generateFunc
	log      *zap.Logger
}

func New(ctx context.Context, cfg config.TextGenConfig, log *zap.Logger) (*Client, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	model := cfg.Model
	gen := func(ctx context.Context, contents []*genai.Content, gcfg *genai.GenerateContentConfig) (string, error) {
		resp, err := gc.Models.GenerateContent(ctx, model, contents, gcfg)
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	}

	return newClient(cfg, gen, log), nil
}

func newClient(cfg config.TextGenConfig, gen generateFunc, log *zap.Logger) *Client {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	maxFailures := cfg.BreakerMaxFailures
	if maxFailures == 0 {
		maxFailures = 5
	}

	breaker := gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "textgen",
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		model:    cfg.Model,
		timeout:  cfg.Timeout,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), max(1, rpm/10)),
		breaker:  breaker,
		generate: gen,
		log:      log,
	}
}

func (c *Client) call(ctx context.Context, contents []*genai.Content, gcfg *genai.GenerateContentConfig) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for rate limiter: %w", err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	text, err := c.breaker.Execute(func() (string, error) {
		text, err := c.generate(ctx, contents, gcfg)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(text) == "" {
			return "", ErrEmptyResponse
		}
		return text, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("%w: %s", ErrUnavailable, err.Error())
	}
	return text, err
}

// Generate returns the model's answer to a plain text prompt.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	return c.call(ctx, genai.Text(prompt), nil)
}

// ExtractHLA sends the report with a JSON response schema and returns the
// decoded fields.
func (c *Client) ExtractHLA(ctx context.Context, document []byte, mimeType string) (map[string]any, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(document, mimeType),
			genai.NewPartFromText(hlaInstruction),
		}, genai.RoleUser),
	}

	text, err := c.call(ctx, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   hlaSchema,
	})
	if err != nil {
		return nil, err
	}
	return decodeExtraction(text)
}

// decodeExtraction parses the model's JSON, tolerating a fenced code block.
func decodeExtraction(text string) (map[string]any, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var out map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &out); err != nil {
		return nil, fmt.Errorf("decoding extraction: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}
