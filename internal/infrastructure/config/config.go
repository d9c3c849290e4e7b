package config

import (
	"strconv"
	"time"
)

// 編集エンドポイントの入力形式
const (
	EditInputModeJSON      = "json"
	EditInputModeMultipart = "multipart"
)

// GeminiConfig は、Gemini API関連の設定を定義します
type GeminiConfig struct {
	APIKey    string `env:"GOOGLE_API_KEY"`
	ModelName string `env:"GEMINI_MODEL_NAME" envDefault:"gemini-2.0-flash-exp"`
	// BaseURL が空の場合はSDKの既定のエンドポイントを使用します
	BaseURL string `env:"GEMINI_BASE_URL"`

	// 以下の生成パラメータは0の場合は指定しません
	MaxTokens   int32   `env:"GEMINI_MAX_TOKENS"`
	Temperature float32 `env:"GEMINI_TEMPERATURE"`
	TopP        float32 `env:"GEMINI_TOP_P"`
	TopK        int32   `env:"GEMINI_TOP_K"`
}

// ServerConfig は、HTTPサーバー関連の設定を定義します
type ServerConfig struct {
	Addr              string        `env:"SERVER_ADDR" envDefault:":8000"`
	ReadHeaderTimeout time.Duration `env:"SERVER_READ_HEADER_TIMEOUT" envDefault:"5s"`
	ShutdownTimeout   time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// APIConfig は、エンドポイントの振る舞いに関する設定を定義します
type APIConfig struct {
	EditInputMode  string `env:"EDIT_INPUT_MODE" envDefault:"json"`
	DataURIPrefix  string `env:"IMAGE_DATA_URI_PREFIX"`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES" envDefault:"20971520"`
}

// UseDataURIPrefix は、応答画像にdata URIの接頭辞を付けるかどうかを返します
// JSON形式の編集では接頭辞あり、multipart形式では接頭辞なしが既定です
func (c APIConfig) UseDataURIPrefix() bool {
	if enabled, err := strconv.ParseBool(c.DataURIPrefix); err == nil {
		return enabled
	}
	return c.EditInputMode != EditInputModeMultipart
}

// LogConfig は、ログ出力の設定を定義します
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// DefaultGeminiConfig は、デフォルトのGemini設定を返します
func DefaultGeminiConfig() *GeminiConfig {
	return &GeminiConfig{
		ModelName: "gemini-2.0-flash-exp",
	}
}
