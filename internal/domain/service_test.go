package domain

import (
	"bytes"
	"testing"
)

func TestExtractFirstParts_FirstOfEachKind(t *testing.T) {
	parts := []ContentPart{
		{Data: []byte("image-1"), MIMEType: "image/png"},
		{Text: "text-1"},
		{Data: []byte("image-2"), MIMEType: "image/png"},
		{Text: "text-2"},
	}

	text, imageData := ExtractFirstParts(parts)

	if text != "text-1" {
		t.Errorf("期待されるテキスト: text-1, 実際: %s", text)
	}
	if !bytes.Equal(imageData, []byte("image-1")) {
		t.Errorf("期待される画像: image-1, 実際: %s", imageData)
	}
}

func TestExtractFirstParts_Empty(t *testing.T) {
	text, imageData := ExtractFirstParts(nil)

	if text != "" {
		t.Errorf("テキストは空である必要があります: %s", text)
	}
	if imageData != nil {
		t.Error("画像はnilである必要があります")
	}
}

func TestExtractFirstParts_SkipsEmptyParts(t *testing.T) {
	parts := []ContentPart{
		{},
		{Data: []byte{}},
		{Text: "hello"},
	}

	text, imageData := ExtractFirstParts(parts)

	if text != "hello" {
		t.Errorf("期待されるテキスト: hello, 実際: %s", text)
	}
	if imageData != nil {
		t.Error("空のデータは画像として扱われてはいけません")
	}
}

func TestBuildAPIResult(t *testing.T) {
	tests := []struct {
		name      string
		parts     []ContentPart
		prefix    bool
		wantText  *string
		wantImage *string
	}{
		{
			name:  "パートなし",
			parts: nil,
		},
		{
			name:     "テキストのみ",
			parts:    []ContentPart{{Text: "only text"}},
			wantText: strPtr("only text"),
		},
		{
			name:      "画像のみ（接頭辞あり）",
			parts:     []ContentPart{{Data: []byte("abc"), MIMEType: "image/png"}},
			prefix:    true,
			wantImage: strPtr("data:image/jpeg;base64,YWJj"),
		},
		{
			name:      "テキストと画像（接頭辞なし）",
			parts:     []ContentPart{{Text: "t"}, {Data: []byte("abc")}},
			wantText:  strPtr("t"),
			wantImage: strPtr("YWJj"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := BuildAPIResult(ModelResponse{Parts: tt.parts}, NewImageEncoder(tt.prefix))

			if !equalStrPtr(result.Text, tt.wantText) {
				t.Errorf("テキストが一致しません: %v", result.Text)
			}
			if !equalStrPtr(result.ImageBase64, tt.wantImage) {
				t.Errorf("画像が一致しません: %v", result.ImageBase64)
			}
		})
	}
}

func strPtr(s string) *string {
	return &s
}

func equalStrPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
