package domain

// ExtractFirstParts は、パート列を先頭から走査し、最初のテキストと最初の画像データを取り出します
// 同じ種類の2つ目以降のパートは無視されます。どちらも見つからない場合は空を返します（エラーではありません）
func ExtractFirstParts(parts []ContentPart) (text string, imageData []byte) {
	var foundText, foundImage bool

	for _, part := range parts {
		if foundText && foundImage {
			break
		}

		if !foundText && part.Text != "" {
			text = part.Text
			foundText = true
			continue
		}

		if !foundImage && len(part.Data) > 0 {
			imageData = part.Data
			foundImage = true
		}
	}

	return text, imageData
}

// BuildAPIResult は、モデル応答から呼び出し元に返す結果を組み立てます
func BuildAPIResult(resp ModelResponse, encoder ImageEncoder) APIResult {
	var result APIResult

	text, imageData := ExtractFirstParts(resp.Parts)
	if text != "" {
		result.Text = &text
	}
	if len(imageData) > 0 {
		encoded := encoder.Encode(imageData)
		result.ImageBase64 = &encoded
	}

	return result
}
