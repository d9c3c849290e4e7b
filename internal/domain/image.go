package domain

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"strings"

	// image.Decode で扱うフォーマットを登録
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

const (
	// DefaultImageMIMEType は、応答画像をエンコードする際に仮定するMIMEタイプです
	DefaultImageMIMEType = "image/jpeg"

	dataImagePrefix = "data:image"
)

// ImageEncoder は、画像バイト列をbase64文字列に変換します
type ImageEncoder struct {
	// WithDataURIPrefix が true の場合、"data:image/jpeg;base64," を先頭に付けます
	WithDataURIPrefix bool
}

// NewImageEncoder は新しいImageEncoderインスタンスを作成します
func NewImageEncoder(withDataURIPrefix bool) ImageEncoder {
	return ImageEncoder{WithDataURIPrefix: withDataURIPrefix}
}

// Encode は、画像バイト列をbase64でエンコードします
func (e ImageEncoder) Encode(data []byte) string {
	encoded := base64.StdEncoding.EncodeToString(data)
	if !e.WithDataURIPrefix {
		return encoded
	}
	return "data:" + DefaultImageMIMEType + ";base64," + encoded
}

// DecodeImagePayload は、base64文字列（data URIの接頭辞付きも可）を生バイトに戻します
func DecodeImagePayload(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, dataImagePrefix) {
		_, after, found := strings.Cut(payload, ",")
		if !found {
			return nil, fmt.Errorf("%w: data URIにカンマ区切りがありません", ErrInvalidBase64)
		}
		payload = after
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBase64, err)
	}
	return data, nil
}

// DecodeInputImage は、バイト列を画像として最後までデコードできることを検証し、MIMEタイプを判定します
// ヘッダーだけ正しく途中で切れているデータもエラーになります
func DecodeInputImage(data []byte) (InputImage, error) {
	if len(data) == 0 {
		return InputImage{}, fmt.Errorf("%w: 画像データが空です", ErrInvalidImage)
	}

	_, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return InputImage{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	return InputImage{
		Data:     data,
		MIMEType: "image/" + format,
	}, nil
}
