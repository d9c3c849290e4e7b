package application

import (
	"context"
	"fmt"

	"geminiimageapi/internal/domain"

	"go.uber.org/zap"
)

// ImageApplicationService は、生成・編集・チャットの各ユースケースを担当するサービスです
// 状態を持たないため、複数のリクエストから同時に利用できます
type ImageApplicationService struct {
	geminiClient GeminiClient
	encoder      domain.ImageEncoder
	logger       *zap.SugaredLogger
}

// NewImageApplicationService は新しいImageApplicationServiceインスタンスを作成します
func NewImageApplicationService(geminiClient GeminiClient, encoder domain.ImageEncoder, logger *zap.SugaredLogger) *ImageApplicationService {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &ImageApplicationService{
		geminiClient: geminiClient,
		encoder:      encoder,
		logger:       logger,
	}
}

// Generate は、テキストプロンプトからテキストと画像を生成します
func (s *ImageApplicationService) Generate(ctx context.Context, req domain.GenerateRequest) (domain.APIResult, error) {
	if err := req.Validate(); err != nil {
		return domain.APIResult{}, fmt.Errorf("プロンプトの検証に失敗: %w", err)
	}

	s.logger.Debugw("画像生成をリクエスト中", "prompt_length", len(req.Contents))

	resp, err := s.geminiClient.GenerateContent(ctx, req.Contents, nil)
	if err != nil {
		return domain.APIResult{}, fmt.Errorf("コンテンツ生成に失敗: %w", err)
	}

	return s.buildResult(resp), nil
}

// EditBase64 は、base64文字列で渡された画像をプロンプトに従って編集します
func (s *ImageApplicationService) EditBase64(ctx context.Context, req domain.EditRequest) (domain.APIResult, error) {
	data, err := domain.DecodeImagePayload(req.ImageBase64)
	if err != nil {
		return domain.APIResult{}, fmt.Errorf("画像データのデコードに失敗: %w", err)
	}

	return s.Edit(ctx, domain.EditInput{Prompt: req.Prompt, Image: data})
}

// Edit は、画像バイト列とプロンプトから編集済みのテキストと画像を生成します
func (s *ImageApplicationService) Edit(ctx context.Context, input domain.EditInput) (domain.APIResult, error) {
	image, err := domain.DecodeInputImage(input.Image)
	if err != nil {
		return domain.APIResult{}, fmt.Errorf("画像の読み込みに失敗: %w", err)
	}

	s.logger.Debugw("画像編集をリクエスト中",
		"prompt_length", len(input.Prompt),
		"image_bytes", len(image.Data),
		"mime_type", image.MIMEType,
	)

	resp, err := s.geminiClient.GenerateContent(ctx, input.Prompt, &image)
	if err != nil {
		return domain.APIResult{}, fmt.Errorf("画像編集に失敗: %w", err)
	}

	return s.buildResult(resp), nil
}

// Chat は、リクエストごとに新しいチャットセッションでメッセージを送信します
// セッションはリクエスト間で共有されません
func (s *ImageApplicationService) Chat(ctx context.Context, req domain.ChatRequest) (domain.APIResult, error) {
	if err := req.Validate(); err != nil {
		return domain.APIResult{}, fmt.Errorf("メッセージの検証に失敗: %w", err)
	}

	s.logger.Debugw("チャットメッセージを送信中", "message_length", len(req.Message))

	resp, err := s.geminiClient.SendChatMessage(ctx, req.Message)
	if err != nil {
		return domain.APIResult{}, fmt.Errorf("チャットメッセージの送信に失敗: %w", err)
	}

	return s.buildResult(resp), nil
}

func (s *ImageApplicationService) buildResult(resp domain.ModelResponse) domain.APIResult {
	result := domain.BuildAPIResult(resp, s.encoder)
	s.logger.Debugw("応答を取得",
		"parts", len(resp.Parts),
		"has_text", result.Text != nil,
		"has_image", result.ImageBase64 != nil,
	)
	return result
}
