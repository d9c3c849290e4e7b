package gemini

import (
	"context"
	"fmt"
	"time"

	"geminiimageapi/internal/domain"
	"geminiimageapi/internal/infrastructure/config"
	"geminiimageapi/internal/infrastructure/metrics"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	operationGenerateContent = "generate_content"
	operationChat            = "chat"
)

// GeminiAPIClient は、Gemini APIとの通信を行うクライアントです
// 初期化後は設定を変更しないため、複数のgoroutineから同時に利用できます
type GeminiAPIClient struct {
	client  *genai.Client
	config  *config.GeminiConfig
	metrics *metrics.Metrics
	logger  *zap.SugaredLogger
}

// NewGeminiAPIClient は新しいGeminiAPIClientインスタンスを作成します
func NewGeminiAPIClient(ctx context.Context, geminiConfig *config.GeminiConfig, m *metrics.Metrics, logger *zap.SugaredLogger) (*GeminiAPIClient, error) {
	if geminiConfig == nil {
		geminiConfig = config.DefaultGeminiConfig()
	}
	if geminiConfig.APIKey == "" {
		return nil, domain.ErrMissingAPIKey
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  geminiConfig.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if geminiConfig.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: geminiConfig.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("Gemini APIクライアントの作成に失敗: %w", err)
	}

	return &GeminiAPIClient{
		client:  client,
		config:  geminiConfig,
		metrics: m,
		logger:  logger,
	}, nil
}

// createGenerateConfig は、テキストと画像の両方を要求する生成設定を作成します
func (g *GeminiAPIClient) createGenerateConfig() *genai.GenerateContentConfig {
	generateConfig := &genai.GenerateContentConfig{
		ResponseModalities: []string{
			string(genai.ModalityText),
			string(genai.ModalityImage),
		},
	}

	if g.config.MaxTokens > 0 {
		generateConfig.MaxOutputTokens = g.config.MaxTokens
	}
	if g.config.Temperature > 0 {
		temperature := g.config.Temperature
		generateConfig.Temperature = &temperature
	}
	if g.config.TopP > 0 {
		topP := g.config.TopP
		generateConfig.TopP = &topP
	}
	if g.config.TopK > 0 {
		topK := float32(g.config.TopK)
		generateConfig.TopK = &topK
	}

	return generateConfig
}

// GenerateContent は、プロンプトと任意の画像を1つのユーザーコンテンツとして送信します
func (g *GeminiAPIClient) GenerateContent(ctx context.Context, prompt string, image *domain.InputImage) (domain.ModelResponse, error) {
	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	if image != nil {
		parts = append(parts, genai.NewPartFromBytes(image.Data, image.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	g.logger.Debugw("Gemini APIにコンテンツ生成をリクエスト中",
		"model", g.config.ModelName,
		"parts", len(parts),
	)

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.config.ModelName, contents, g.createGenerateConfig())
	g.metrics.ObserveUpstream(operationGenerateContent, err, time.Since(start))
	if err != nil {
		return domain.ModelResponse{}, fmt.Errorf("Gemini APIからの応答取得に失敗: %w", err)
	}

	return g.processResponse(resp), nil
}

// SendChatMessage は、リクエストごとに新しいチャットセッションを作成して1件のメッセージを送信します
func (g *GeminiAPIClient) SendChatMessage(ctx context.Context, message string) (domain.ModelResponse, error) {
	start := time.Now()

	chat, err := g.client.Chats.Create(ctx, g.config.ModelName, g.createGenerateConfig(), nil)
	if err != nil {
		g.metrics.ObserveUpstream(operationChat, err, time.Since(start))
		return domain.ModelResponse{}, fmt.Errorf("チャットセッションの作成に失敗: %w", err)
	}

	g.logger.Debugw("Gemini APIにチャットメッセージを送信中", "model", g.config.ModelName)

	resp, err := chat.SendMessage(ctx, genai.Part{Text: message})
	g.metrics.ObserveUpstream(operationChat, err, time.Since(start))
	if err != nil {
		return domain.ModelResponse{}, fmt.Errorf("Gemini APIへのメッセージ送信に失敗: %w", err)
	}

	return g.processResponse(resp), nil
}

// processResponse は、最初の候補のパートをドメインの値に変換します
// 候補やパートがない場合は空の応答を返します
func (g *GeminiAPIClient) processResponse(resp *genai.GenerateContentResponse) domain.ModelResponse {
	if resp == nil || len(resp.Candidates) == 0 {
		g.logger.Warnw("Gemini APIの応答に候補が含まれていません")
		return domain.ModelResponse{}
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		g.logger.Warnw("Gemini APIの安全フィルターによって応答がブロックされました",
			"safety_ratings", g.formatSafetyRatings(candidate.SafetyRatings),
		)
	}
	if candidate.Content == nil {
		g.logger.Warnw("Gemini APIの応答にContentが含まれていません", "finish_reason", candidate.FinishReason)
		return domain.ModelResponse{}
	}

	parts := make([]domain.ContentPart, 0, len(candidate.Content.Parts))
	for _, part := range candidate.Content.Parts {
		if part == nil {
			continue
		}
		converted := domain.ContentPart{Text: part.Text}
		if part.InlineData != nil {
			converted.Data = part.InlineData.Data
			converted.MIMEType = part.InlineData.MIMEType
		}
		parts = append(parts, converted)
	}

	g.logger.Debugw("Gemini APIから応答を取得",
		"finish_reason", candidate.FinishReason,
		"parts", len(parts),
	)
	return domain.ModelResponse{Parts: parts}
}

// formatSafetyRatings は、SafetyRatingsをログ用の文字列にまとめます
func (g *GeminiAPIClient) formatSafetyRatings(ratings []*genai.SafetyRating) []string {
	details := make([]string, 0, len(ratings))
	for _, rating := range ratings {
		if rating != nil {
			details = append(details, fmt.Sprintf("%s: %s", rating.Category, rating.Probability))
		}
	}
	return details
}

// Close は、サーバー停止時に呼び出されます
// genai.Client は解放すべき接続を保持しないため、終了をログに残すだけです
func (g *GeminiAPIClient) Close() error {
	if g.logger != nil {
		g.logger.Debugw("Gemini APIクライアントを終了しました", "model", g.modelName())
	}
	return nil
}

func (g *GeminiAPIClient) modelName() string {
	if g.config == nil {
		return ""
	}
	return g.config.ModelName
}
