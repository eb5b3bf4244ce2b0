package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Google Maps Platform 設定（ジオコーディング・周辺検索・詳細取得）
	Maps MapsConfig

	// 周辺検索の条件
	Search SearchConfig

	// 要約生成用LLM設定
	LLM LLMConfig

	// 近隣情報スクレイパー設定
	Scraper ScraperConfig

	// 検索履歴の永続化設定
	History HistoryConfig

	// Database設定（History.Enabled のときのみ使用）
	Database DatabaseConfig

	// 地図ドキュメントの一時ファイル設定
	MapFiles MapFilesConfig

	// ローカルWeb UI設定
	Server ServerConfig

	// ログ・トレース設定
	Observability ObservabilityConfig
}

// MapsConfig は Google Maps Platform の接続設定
type MapsConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// SearchConfig は周辺検索のデフォルト条件
type SearchConfig struct {
	RadiusMeters int
	Category     string
}

// LLMConfig は OpenAI 互換エンドポイントの設定
// BaseURL にローカルの推論サーバ（Ollama等）を指定すると事前学習済みモデルをローカルで使用できる
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// ScraperConfig は検索結果ページ取得の設定
type ScraperConfig struct {
	FetchEnabled bool
	ChromeBin    string
	Timeout      time.Duration
}

// HistoryConfig は検索履歴の永続化設定
type HistoryConfig struct {
	Enabled bool
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// MapFilesConfig は地図一時ファイルの掃除設定
type MapFilesConfig struct {
	Dir          string
	SweepCron    string
	MaxAge       time.Duration
	OpenInViewer bool
}

// ServerConfig はローカルWeb UIの設定
type ServerConfig struct {
	Host string
	Port int
}

// ObservabilityConfig はログとトレースの設定
type ObservabilityConfig struct {
	LogLevel          string
	LogFormat         string
	TracingEnabled    bool
	TracingExporter   string // stdout | otlp
	OTLPEndpoint      string
	TracingSampleRate float64
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Maps: MapsConfig{
			APIKey:  getEnv("GOOGLE_API_KEY", ""),
			BaseURL: getEnv("GOOGLE_MAPS_BASE_URL", "https://maps.googleapis.com/maps/api"),
			Timeout: time.Duration(getEnvAsInt("HTTP_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Search: SearchConfig{
			RadiusMeters: getEnvAsInt("SEARCH_RADIUS_METERS", 2000),
			Category:     getEnv("SEARCH_CATEGORY", "real_estate_agency"),
		},
		LLM: LLMConfig{
			APIKey:  getEnv("LLM_API_KEY", getEnv("OPENAI_API_KEY", "")),
			BaseURL: getEnv("LLM_BASE_URL", ""),
			Model:   getEnv("LLM_MODEL", "gpt-4o-mini"),
			Timeout: time.Duration(getEnvAsInt("LLM_TIMEOUT_SECONDS", 120)) * time.Second,
		},
		Scraper: ScraperConfig{
			FetchEnabled: getEnvAsBool("SCRAPER_FETCH", true),
			ChromeBin:    getEnv("CHROME_BIN", ""),
			Timeout:      time.Duration(getEnvAsInt("SCRAPER_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		History: HistoryConfig{
			Enabled: getEnvAsBool("HISTORY_ENABLED", false),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "proplens"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "proplens"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		MapFiles: MapFilesConfig{
			Dir:          getEnv("MAP_DIR", os.TempDir()),
			SweepCron:    getEnv("MAP_SWEEP_CRON", "@every 10m"),
			MaxAge:       time.Duration(getEnvAsInt("MAP_MAX_AGE_MINUTES", 60)) * time.Minute,
			OpenInViewer: getEnvAsBool("MAP_OPEN_IN_VIEWER", true),
		},
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "127.0.0.1"),
			Port: getEnvAsInt("SERVER_PORT", 8990),
		},
		Observability: ObservabilityConfig{
			LogLevel:          getEnv("LOG_LEVEL", "info"),
			LogFormat:         getEnv("LOG_FORMAT", "json"),
			TracingEnabled:    getEnvAsBool("TRACING_ENABLED", false),
			TracingExporter:   getEnv("TRACING_EXPORTER", "stdout"),
			OTLPEndpoint:      getEnv("OTLP_ENDPOINT", "localhost:4317"),
			TracingSampleRate: getEnvAsFloat("TRACING_SAMPLE_RATIO", 1.0),
		},
	}

	return cfg, nil
}

// Validate は外部APIの呼び出しに必要な設定が揃っているか検証します
func (c *Config) Validate() error {
	if err := c.ValidateMaps(); err != nil {
		return err
	}
	if c.Search.RadiusMeters <= 0 {
		return fmt.Errorf("SEARCH_RADIUS_METERS must be positive: %d", c.Search.RadiusMeters)
	}
	return nil
}

// ValidateMaps は地図プロバイダの呼び出しに必要な設定だけを検証する
func (c *Config) ValidateMaps() error {
	if c.Maps.APIKey == "" {
		return fmt.Errorf("GOOGLE_API_KEY is not set")
	}
	return nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat は環境変数を浮動小数点数として取得します
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := strings.TrimSpace(os.Getenv(key))
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool は環境変数を真偽値として取得します
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := strings.TrimSpace(os.Getenv(key))
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
