package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"geminiimageapi/internal/infrastructure/config"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config は、アプリケーション全体の設定を定義します
type Config struct {
	Gemini config.GeminiConfig
	Server config.ServerConfig
	API    config.APIConfig
	Log    config.LogConfig
}

// LoadConfig は、.envファイルと環境変数から設定を読み込みます
// envFile が空の場合はカレントディレクトリの .env を読み込みます
func LoadConfig(envFile string) (*Config, error) {
	files := []string{}
	if envFile != "" {
		files = append(files, envFile)
	}

	// .envファイルを読み込み（ファイルが存在しない場合は無視）
	if err := godotenv.Load(files...); err != nil {
		// 明示的に指定されたファイルが読めない場合はエラー
		if envFile != "" {
			return nil, fmt.Errorf(".envファイルの読み込みに失敗: %w", err)
		}
		fmt.Fprintf(os.Stderr, "警告: .envファイルの読み込みに失敗しました: %v\n", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("環境変数の解析に失敗: %w", err)
	}

	// GOOGLE_API_KEY が未設定の場合は GEMINI_API_KEY を使用
	if cfg.Gemini.APIKey == "" {
		cfg.Gemini.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	cfg.API.EditInputMode = strings.ToLower(strings.TrimSpace(cfg.API.EditInputMode))

	// 必須設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate は、設定の妥当性を検証します
func (c *Config) Validate() error {
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("GOOGLE_API_KEY が設定されていません")
	}

	if c.Gemini.ModelName == "" {
		return fmt.Errorf("GEMINI_MODEL_NAME が設定されていません")
	}

	if c.Gemini.Temperature < 0 || c.Gemini.Temperature > 2 {
		return fmt.Errorf("GEMINI_TEMPERATURE は0以上2以下の値である必要があります")
	}

	if c.Gemini.TopP < 0 || c.Gemini.TopP > 1 {
		return fmt.Errorf("GEMINI_TOP_P は0以上1以下の値である必要があります")
	}

	if c.Gemini.TopK < 0 {
		return fmt.Errorf("GEMINI_TOP_K は0以上である必要があります")
	}

	if c.Gemini.MaxTokens < 0 {
		return fmt.Errorf("GEMINI_MAX_TOKENS は0以上である必要があります")
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("SERVER_ADDR が設定されていません")
	}

	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("SERVER_SHUTDOWN_TIMEOUT は正の値である必要があります")
	}

	switch c.API.EditInputMode {
	case config.EditInputModeJSON, config.EditInputModeMultipart:
	default:
		return fmt.Errorf("EDIT_INPUT_MODE は json または multipart である必要があります: %s", c.API.EditInputMode)
	}

	if c.API.DataURIPrefix != "" {
		if _, err := strconv.ParseBool(c.API.DataURIPrefix); err != nil {
			return fmt.Errorf("IMAGE_DATA_URI_PREFIX は真偽値である必要があります: %s", c.API.DataURIPrefix)
		}
	}

	if c.API.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES は正の整数である必要があります")
	}

	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT は json または console である必要があります: %s", c.Log.Format)
	}

	return nil
}
