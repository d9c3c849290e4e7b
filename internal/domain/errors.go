package domain

import "errors"

// ドメイン固有のエラー型を定義
var (
	// ErrMissingAPIKey は、Gemini APIキーが設定されていない場合のエラーです
	ErrMissingAPIKey = errors.New("Gemini APIキーが設定されていません")

	// ErrInvalidPrompt は、無効なプロンプトの場合のエラーです
	ErrInvalidPrompt = errors.New("無効なプロンプトです")

	// ErrInvalidMessage は、無効なチャットメッセージの場合のエラーです
	ErrInvalidMessage = errors.New("無効なメッセージです")

	// ErrInvalidImage は、画像としてデコードできないデータの場合のエラーです
	ErrInvalidImage = errors.New("無効な画像データです")

	// ErrInvalidBase64 は、base64文字列のデコードに失敗した場合のエラーです
	ErrInvalidBase64 = errors.New("無効なbase64データです")
)
