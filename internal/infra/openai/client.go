package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/jinford/proplens/internal/core/summary"
	"github.com/jinford/proplens/internal/platform/observability"
)

const (
	// DefaultModel はデフォルトで使用するモデル
	DefaultModel = "gpt-4o-mini"

	// DefaultTimeout はAPI呼び出しのデフォルトタイムアウト
	DefaultTimeout = 120 * time.Second

	// MaxRetries はレート制限エラー時の最大リトライ回数
	MaxRetries = 3

	// BaseBackoff はExponential Backoffの基底時間
	BaseBackoff = 2 * time.Second

	// MaxBackoff はExponential Backoffの最大待機時間
	MaxBackoff = 32 * time.Second

	providerName = "llm"
)

var (
	// ErrAPIKeyNotSet はAPIキーもローカルエンドポイントも設定されていない場合のエラー
	ErrAPIKeyNotSet = errors.New("LLM API key not set: please set LLM_API_KEY or LLM_BASE_URL")

	// ErrMaxRetriesExceeded は最大リトライ回数を超過した場合のエラー
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")

	// ErrEmptyCompletion は生成結果が空の場合のエラー
	ErrEmptyCompletion = errors.New("no completion choices returned")
)

// Client は OpenAI 互換 API を使用した要約生成クライアント実装
// BaseURL にローカル推論サーバを指定すると、ローカルの事前学習済みモデルで生成する
type Client struct {
	client      openai.Client
	model       string
	timeout     time.Duration
	baseBackoff time.Duration
	metrics     *observability.Collector
}

// Config は Client の生成設定
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	HTTPClient *http.Client
	Metrics    *observability.Collector
}

// NewClient は新しい Client を作成する
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, ErrAPIKeyNotSet
	}

	// リトライは自前で制御するため SDK のリトライは無効化する
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		client:      openai.NewClient(opts...),
		model:       model,
		timeout:     timeout,
		baseBackoff: BaseBackoff,
		metrics:     cfg.Metrics,
	}, nil
}

// ModelName はモデル名を返す
func (c *Client) ModelName() string {
	return c.model
}

// Generate はプロンプトから要約テキストを生成する
func (c *Client) Generate(ctx context.Context, req summary.GenerationRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	started := time.Now()
	out, err := c.generateWithRetry(ctx, req)
	if err != nil {
		c.metrics.ObserveProvider(providerName, "generate", observability.OutcomeError, started)
		return "", err
	}

	c.metrics.ObserveProvider(providerName, "generate", observability.OutcomeOK, started)
	return out, nil
}

func (c *Client) generateWithRetry(ctx context.Context, req summary.GenerationRequest) (string, error) {
	var lastErr error

	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			backoffDuration := time.Duration(math.Pow(2, float64(attempt-1))) * c.baseBackoff
			if backoffDuration > MaxBackoff {
				backoffDuration = MaxBackoff
			}

			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoffDuration):
			}
		}

		params := openai.ChatCompletionNewParams{
			Model: shared.ChatModel(c.model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(systemInstruction(req.Params)),
				openai.UserMessage(req.Prompt),
			},
			// ビームサーチ相当の決定的な出力にする
			Temperature: openai.Float(0),
		}
		if req.Params.MaxLength > 0 {
			params.MaxTokens = openai.Int(int64(req.Params.MaxLength))
		}

		completion, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			lastErr = err

			if isRateLimitError(err) {
				continue
			}

			return "", fmt.Errorf("LLM API call failed: %w", err)
		}

		if len(completion.Choices) == 0 {
			return "", ErrEmptyCompletion
		}

		return completion.Choices[0].Message.Content, nil
	}

	return "", fmt.Errorf("%w: %v", ErrMaxRetriesExceeded, lastErr)
}

// systemInstruction は生成パラメータをモデルへの指示として表現する。
// Chat Completions にはビーム探索の設定が無いため、幅と長さペナルティと早期終了は文章で伝える。
func systemInstruction(p summary.GenerationParams) string {
	var b strings.Builder
	b.WriteString("You are a concise real estate analyst.")

	if p.MinLength > 0 {
		fmt.Fprintf(&b, " Answer with at least %d tokens and at most %d tokens.", p.MinLength, p.MaxLength)
	}
	if p.NumBeams > 1 {
		fmt.Fprintf(&b, " Consider %d alternative phrasings and return only the best one.", p.NumBeams)
	}
	switch {
	case p.LengthPenalty > 1:
		b.WriteString(" Prefer complete, detailed answers over short ones.")
	case p.LengthPenalty > 0 && p.LengthPenalty < 1:
		b.WriteString(" Prefer short answers.")
	}
	if p.EarlyStopping {
		b.WriteString(" Stop as soon as the answer is complete.")
	}

	return b.String()
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}

	return false
}

// インターフェース実装の確認
var _ summary.LLMClient = (*Client)(nil)
