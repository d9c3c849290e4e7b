package domain

import "strings"

// GenerateRequest は、/generate のリクエストボディです
type GenerateRequest struct {
	Contents string `json:"contents"`
}

// Validate は、プロンプトが空でないことを確認します
func (r GenerateRequest) Validate() error {
	if strings.TrimSpace(r.Contents) == "" {
		return ErrInvalidPrompt
	}
	return nil
}

// EditRequest は、/edit (JSON形式) のリクエストボディです
type EditRequest struct {
	Prompt      string `json:"prompt"`
	ImageBase64 string `json:"image_base64"`
}

// EditInput は、編集対象の画像を生バイトで保持する入力です
// JSON形式・multipart形式のどちらのリクエストもこの形に正規化されます
type EditInput struct {
	Prompt string
	Image  []byte
}

// ChatRequest は、/chat のリクエストボディです
type ChatRequest struct {
	Message string `json:"message"`
}

// Validate は、メッセージが空でないことを確認します
func (r ChatRequest) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return ErrInvalidMessage
	}
	return nil
}

// InputImage は、Gemini APIに送信する検証済みの画像です
type InputImage struct {
	Data     []byte
	MIMEType string
}

// ContentPart は、モデル応答の1パートを表現する値オブジェクトです
// テキストかインラインのバイナリデータのどちらかを保持します
type ContentPart struct {
	Text     string
	Data     []byte
	MIMEType string
}

// ModelResponse は、モデル応答の最初の候補に含まれるパート列です
type ModelResponse struct {
	Parts []ContentPart
}

// APIResult は、呼び出し元に返す結果です
// 値がない項目は null としてシリアライズされます
type APIResult struct {
	Text        *string `json:"text"`
	ImageBase64 *string `json:"image_base64"`
}

// ErrorResponse は、エラー時のレスポンスボディです
type ErrorResponse struct {
	Detail string `json:"detail"`
}
