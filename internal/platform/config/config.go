package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// 永続化バックエンド設定
	Store StoreConfig

	// HTTPサーバ設定
	Server ServerConfig

	// 生成ワーカープール設定
	Executor ExecutorConfig

	// OpenAI設定（ワークフローステップ・ロゴ生成に使用）
	OpenAI OpenAIConfig

	// ログレベル（debug/info/warn/error）
	LogLevel string
}

// StoreConfig は永続化バックエンドの選択設定。
// どのバックエンドを使うかは構築時に一度だけ決定され、呼び出しごとの分岐は行いません。
type StoreConfig struct {
	RedisURL    string // 設定されていればRedisバックエンド
	DatabaseURL string // 設定されていればPostgresバックエンド（RedisURLが優先）
	FilePath    string // 外部ストア未設定時のローカルJSONファイル
}

// ServerConfig はHTTPサーバ設定
type ServerConfig struct {
	Port             int
	KeepaliveSeconds int // 進捗ストリームのキープアライブ間隔（秒）
}

// ExecutorConfig は生成ワーカープール設定
type ExecutorConfig struct {
	Workers int // 同時実行ワーカー数（ハードキャップ）
}

// OpenAIConfig はOpenAI API設定
type OpenAIConfig struct {
	APIKey          string
	Model           string
	Temperature     float64
	MaxPromptTokens int // プロンプトのトークン数上限（超過時はエラー）
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
		Store: StoreConfig{
			RedisURL:    getEnv("REDIS_URL", ""),
			DatabaseURL: getEnv("DATABASE_URL", ""),
			FilePath:    getEnv("BRANDFORGE_DATA_FILE", ".data/generation_tasks.json"),
		},
		Server: ServerConfig{
			Port:             getEnvAsInt("BRANDFORGE_PORT", 8080),
			KeepaliveSeconds: getEnvAsInt("BRANDFORGE_STREAM_KEEPALIVE", 30),
		},
		Executor: ExecutorConfig{
			Workers: getEnvAsInt("BRANDFORGE_WORKERS", 4),
		},
		OpenAI: OpenAIConfig{
			APIKey:          getEnv("OPENAI_API_KEY", ""),
			Model:           getEnv("OPENAI_LLM_MODEL", "gpt-4o-mini"),
			Temperature:     getEnvAsFloat("OPENAI_TEMPERATURE", 0.2),
			MaxPromptTokens: getEnvAsInt("OPENAI_MAX_PROMPT_TOKENS", 8192),
		},
		LogLevel: getEnv("BRANDFORGE_LOG_LEVEL", "info"),
	}

	return cfg, nil
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
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
