package application

import (
	"context"

	"geminiimageapi/internal/domain"
)

// GeminiClient は、Gemini APIとの通信を行うクライアントのインターフェースです
// 実装は複数のリクエストから同時に呼び出されても安全である必要があります
type GeminiClient interface {
	// GenerateContent は、プロンプト（と任意の画像）からテキストと画像を生成します
	GenerateContent(ctx context.Context, prompt string, image *domain.InputImage) (domain.ModelResponse, error)

	// SendChatMessage は、新しいチャットセッションを作成して1件のメッセージを送信します
	SendChatMessage(ctx context.Context, message string) (domain.ModelResponse, error)
}
