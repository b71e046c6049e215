package textgen

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/dmehra2102/prod-golang-projects/transplantflow/internal/config"
)

func testConfig() config.TextGenConfig {
	return config.TextGenConfig{
		Model:              "test-model",
		Timeout:            time.Second,
		RequestsPerMinute:  6000,
		BreakerMaxFailures: 2,
		BreakerOpenTimeout: time.Minute,
	}
}

func TestGenerateReturnsText(t *testing.T) {
	var gotCfg *genai.GenerateContentConfig
	c := newClient(testConfig(), func(_ context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
		gotCfg = cfg
		require.Len(t, contents, 1)
		return "Risk: Low", nil
	}, zap.NewNop())

	text, err := c.Generate(context.Background(), "assess")
	require.NoError(t, err)
	assert.Equal(t, "Risk: Low", text)
	assert.Nil(t, gotCfg)
}

func TestGenerateRejectsEmptyResponse(t *testing.T) {
	c := newClient(testConfig(), func(context.Context, []*genai.Content, *genai.GenerateContentConfig) (string, error) {
		return "  ", nil
	}, zap.NewNop())

	_, err := c.Generate(context.Background(), "assess")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	calls := 0
	c := newClient(testConfig(), func(context.Context, []*genai.Content, *genai.GenerateContentConfig) (string, error) {
		calls++
		return "", errors.New("upstream 503")
	}, zap.NewNop())

	for range 2 {
		_, err := c.Generate(context.Background(), "p")
		require.Error(t, err)
	}

	_, err := c.Generate(context.Background(), "p")
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 2, calls)
}

func TestExtractHLASendsSchema(t *testing.T) {
	c := newClient(testConfig(), func(_ context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
		require.NotNil(t, cfg)
		assert.Equal(t, "application/json", cfg.ResponseMIMEType)
		assert.Contains(t, cfg.ResponseSchema.Properties, "dsa_detected")
		require.Len(t, contents, 1)
		assert.Len(t, contents[0].Parts, 2)
		return `{"a1":"A*02:01","dsa_detected":false}`, nil
	}, zap.NewNop())

	got, err := c.ExtractHLA(context.Background(), []byte("%PDF"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "A*02:01", got["a1"])
	assert.Equal(t, false, got["dsa_detected"])
}

func TestDecodeExtraction(t *testing.T) {
	got, err := decodeExtraction("```json\n{\"b1\":\"B*07\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "B*07", got["b1"])

	got, err = decodeExtraction("null")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = decodeExtraction("not json")
	assert.Error(t, err)
}
