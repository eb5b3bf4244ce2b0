package summary

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter はプロンプトのトークン数を数え、上限で切り詰める
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTokenCounter は新しいTokenCounterを作成する
// cl100k_baseエンコーディングを使用する
func NewTokenCounter() (*TokenCounter, error) {
	encoding, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
	}

	return &TokenCounter{
		encoding: encoding,
	}, nil
}

// CountTokens はテキストのトークン数をカウントする
func (tc *TokenCounter) CountTokens(text string) int {
	if tc == nil || tc.encoding == nil {
		return 0
	}
	return len(tc.encoding.Encode(text, nil, nil))
}

// Truncate はテキストを先頭から maxTokens トークンまでに切り詰める
// 上限以下の場合はそのまま返す
func (tc *TokenCounter) Truncate(text string, maxTokens int) (string, bool) {
	if tc == nil || tc.encoding == nil || maxTokens <= 0 {
		return text, false
	}

	tokens := tc.encoding.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text, false
	}

	return tc.encoding.Decode(tokens[:maxTokens]), true
}
