package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrEmptyPrompt はプロンプトが空の場合のエラー
var ErrEmptyPrompt = errors.New("prompt is empty")

// GenerationParams は要約生成のパラメータ
type GenerationParams struct {
	MaxLength     int     // 入力トークン上限および出力トークン上限
	MinLength     int     // 出力の最小トークン数
	NumBeams      int     // ビーム幅
	LengthPenalty float64 // 長さペナルティ
	EarlyStopping bool
}

// 呼び出し箇所ごとの生成パラメータ
var (
	// NeighborhoodParams は近隣情報の整形に使うパラメータ
	NeighborhoodParams = GenerationParams{MaxLength: 512, MinLength: 50, NumBeams: 4, LengthPenalty: 2.0, EarlyStopping: true}

	// ComparisonParams は複数地点の比較に使うパラメータ
	ComparisonParams = GenerationParams{MaxLength: 1024, MinLength: 100, NumBeams: 4, LengthPenalty: 2.0, EarlyStopping: true}
)

// GenerationRequest はLLMへの生成リクエスト
type GenerationRequest struct {
	Prompt string
	Params GenerationParams
}

// LLMClient はテキスト生成を行うLLMクライアント
type LLMClient interface {
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// Truncator はプロンプトをトークン上限で切り詰める
type Truncator interface {
	Truncate(text string, maxTokens int) (string, bool)
}

// Service はプロンプトを要約テキストに変換する。
// LLMクライアントは起動時に一度だけ生成され、読み取り専用で共有される。
type Service struct {
	llm       LLMClient
	truncator Truncator
	logger    *slog.Logger
}

// ServiceOption は Service の生成オプション
type ServiceOption func(*Service)

// WithLogger は Service にロガーを設定する
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTruncator はトークン切り詰め処理を設定する
func WithTruncator(t Truncator) ServiceOption {
	return func(s *Service) {
		s.truncator = t
	}
}

// NewService は新しい Service を作成する
func NewService(llm LLMClient, opts ...ServiceOption) *Service {
	svc := &Service{
		llm:    llm,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(svc)
	}

	if svc.logger == nil {
		svc.logger = slog.Default()
	}

	return svc
}

// Summarize はプロンプトを入力トークン上限で切り詰めてからLLMに渡し、前後の空白を除いた結果を返す
func (s *Service) Summarize(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", ErrEmptyPrompt
	}

	if s.truncator != nil {
		truncated, cut := s.truncator.Truncate(prompt, params.MaxLength)
		if cut {
			s.logger.Debug("prompt truncated to token ceiling", "maxTokens", params.MaxLength)
		}
		prompt = truncated
	}

	output, err := s.llm.Generate(ctx, GenerationRequest{
		Prompt: prompt,
		Params: params,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate summary: %w", err)
	}

	return strings.TrimSpace(output), nil
}

// SummarizeNeighborhood は近隣情報を整形した説明文を生成する
func (s *Service) SummarizeNeighborhood(ctx context.Context, prompt string) (string, error) {
	return s.Summarize(ctx, prompt, NeighborhoodParams)
}

// SummarizeComparison は複数地点の比較文を生成する
func (s *Service) SummarizeComparison(ctx context.Context, prompt string) (string, error) {
	return s.Summarize(ctx, prompt, ComparisonParams)
}
