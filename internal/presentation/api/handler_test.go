package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"geminiimageapi/internal/application"
	"geminiimageapi/internal/domain"
	"geminiimageapi/internal/infrastructure/config"
	"geminiimageapi/internal/infrastructure/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeGeminiClient は、送信内容を記録して固定の応答を返すテスト用クライアントです
type fakeGeminiClient struct {
	mu       sync.Mutex
	response domain.ModelResponse
	err      error

	prompts  []string
	images   []*domain.InputImage
	messages []string
	ctxErrs  []error
}

func (f *fakeGeminiClient) GenerateContent(ctx context.Context, prompt string, image *domain.InputImage) (domain.ModelResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	f.images = append(f.images, image)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	return f.response, f.err
}

func (f *fakeGeminiClient) SendChatMessage(ctx context.Context, message string) (domain.ModelResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	return f.response, f.err
}

func newTestRouter(t *testing.T, client application.GeminiClient, apiConfig config.APIConfig) (http.Handler, *prometheus.Registry) {
	t.Helper()

	if apiConfig.EditInputMode == "" {
		apiConfig.EditInputMode = config.EditInputModeJSON
	}
	if apiConfig.MaxUploadBytes == 0 {
		apiConfig.MaxUploadBytes = 1 << 20
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	service := application.NewImageApplicationService(client, domain.NewImageEncoder(apiConfig.UseDataURIPrefix()), nil)
	return NewRouter(NewHandler(service, apiConfig, nil), m, reg, nil), reg
}

func doJSON(t *testing.T, h http.Handler, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) map[string]*string {
	t.Helper()
	var out map[string]*string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 3, 3))))
	return buf.Bytes()
}

// truncatedPNG は、画素データの途中で切れたPNGを返します
func truncatedPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 7)
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	data := buf.Bytes()
	return data[:len(data)/2]
}

func TestHandleGenerate(t *testing.T) {
	client := &fakeGeminiClient{response: domain.ModelResponse{Parts: []domain.ContentPart{
		{Data: []byte("first-image")},
		{Text: "first-text"},
		{Data: []byte("second-image")},
		{Text: "second-text"},
	}}}
	router, _ := newTestRouter(t, client, config.APIConfig{})

	rec := doJSON(t, router, "/generate", `{"contents": "a cat on the moon"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	out := decodeResult(t, rec)
	require.NotNil(t, out["text"])
	require.Equal(t, "first-text", *out["text"])
	require.NotNil(t, out["image_base64"])
	require.Equal(t, "data:image/jpeg;base64,"+base64.StdEncoding.EncodeToString([]byte("first-image")), *out["image_base64"])
	require.Equal(t, []string{"a cat on the moon"}, client.prompts)
}

func TestHandleGenerate_NoParts(t *testing.T) {
	router, _ := newTestRouter(t, &fakeGeminiClient{}, config.APIConfig{})

	rec := doJSON(t, router, "/generate", `{"contents": "hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"text": null, "image_base64": null}`, rec.Body.String())
}

func TestHandleGenerate_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		wantDetail string
	}{
		{name: "上流のエラー", body: `{"contents": "x"}`, err: errors.New("RESOURCE_EXHAUSTED: quota"), wantDetail: "RESOURCE_EXHAUSTED: quota"},
		{name: "不正なJSON", body: `{"contents":`, wantDetail: "リクエストボディの解析に失敗"},
		{name: "空のプロンプト", body: `{"contents": ""}`, wantDetail: domain.ErrInvalidPrompt.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newTestRouter(t, &fakeGeminiClient{err: tt.err}, config.APIConfig{})

			rec := doJSON(t, router, "/generate", tt.body)
			require.Equal(t, http.StatusInternalServerError, rec.Code)

			var out domain.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
			require.Contains(t, out.Detail, tt.wantDetail)
		})
	}
}

func TestHandleEdit_JSON(t *testing.T) {
	raw := testPNG(t)
	bare := base64.StdEncoding.EncodeToString(raw)
	client := &fakeGeminiClient{response: domain.ModelResponse{Parts: []domain.ContentPart{{Text: "edited"}}}}
	router, _ := newTestRouter(t, client, config.APIConfig{})

	for _, payload := range []string{bare, "data:image/png;base64," + bare} {
		body, err := json.Marshal(domain.EditRequest{Prompt: "add a hat", ImageBase64: payload})
		require.NoError(t, err)

		rec := doJSON(t, router, "/edit", string(body))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		require.Equal(t, "edited", *decodeResult(t, rec)["text"])
	}

	require.Len(t, client.images, 2)
	require.Equal(t, client.images[0].Data, client.images[1].Data)
	require.Equal(t, raw, client.images[0].Data)
	require.Equal(t, "image/png", client.images[0].MIMEType)
}

func TestHandleEdit_JSON_InvalidImage(t *testing.T) {
	client := &fakeGeminiClient{}
	router, _ := newTestRouter(t, client, config.APIConfig{})

	for _, payload := range []string{
		"",
		base64.StdEncoding.EncodeToString([]byte("plain text bytes")),
		"not-base64!!",
		base64.StdEncoding.EncodeToString(truncatedPNG(t)),
	} {
		body, err := json.Marshal(domain.EditRequest{Prompt: "x", ImageBase64: payload})
		require.NoError(t, err)

		rec := doJSON(t, router, "/edit", string(body))
		require.Equal(t, http.StatusInternalServerError, rec.Code)
	}
	require.Empty(t, client.prompts)
}

func newMultipartRequest(t *testing.T, prompt string, file []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("prompt", prompt))
	if file != nil {
		fw, err := mw.CreateFormFile("file", "input.png")
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/edit", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHandleEdit_Multipart(t *testing.T) {
	raw := testPNG(t)
	client := &fakeGeminiClient{response: domain.ModelResponse{Parts: []domain.ContentPart{{Data: []byte("out")}}}}
	router, _ := newTestRouter(t, client, config.APIConfig{EditInputMode: config.EditInputModeMultipart})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newMultipartRequest(t, "make it red", raw))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := decodeResult(t, rec)
	require.Nil(t, out["text"])
	// multipart形式では接頭辞なしのbase64を返す
	require.Equal(t, base64.StdEncoding.EncodeToString([]byte("out")), *out["image_base64"])
	require.Equal(t, []string{"make it red"}, client.prompts)
	require.Equal(t, raw, client.images[0].Data)
}

func TestHandleEdit_Multipart_Errors(t *testing.T) {
	client := &fakeGeminiClient{}
	router, _ := newTestRouter(t, client, config.APIConfig{EditInputMode: config.EditInputModeMultipart})

	for name, file := range map[string][]byte{
		"ファイルなし":    nil,
		"空のファイル":    {},
		"画像でないファイル": []byte("hello world"),
		"途中で切れたPNG": truncatedPNG(t),
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, newMultipartRequest(t, "x", file))
			require.Equal(t, http.StatusInternalServerError, rec.Code)
		})
	}
	require.Empty(t, client.prompts)
}

func TestHandleEdit_Multipart_TooLarge(t *testing.T) {
	router, _ := newTestRouter(t, &fakeGeminiClient{}, config.APIConfig{
		EditInputMode:  config.EditInputModeMultipart,
		MaxUploadBytes: 64,
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, newMultipartRequest(t, "x", bytes.Repeat([]byte{0x89}, 1024)))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleChat_IndependentCalls(t *testing.T) {
	client := &fakeGeminiClient{response: domain.ModelResponse{Parts: []domain.ContentPart{{Text: "hi"}}}}
	router, _ := newTestRouter(t, client, config.APIConfig{})

	for _, msg := range []string{"my name is Alice", "what is my name?"} {
		body, err := json.Marshal(domain.ChatRequest{Message: msg})
		require.NoError(t, err)
		rec := doJSON(t, router, "/chat", string(body))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	require.Equal(t, []string{"my name is Alice", "what is my name?"}, client.messages)
}

func TestHandlers_ClientDisconnectDoesNotCancelUpstream(t *testing.T) {
	client := &fakeGeminiClient{}
	router, _ := newTestRouter(t, client, config.APIConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message": "hello"}`)).WithContext(ctx)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []error{nil}, client.ctxErrs)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	router, _ := newTestRouter(t, &fakeGeminiClient{}, config.APIConfig{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/generate", nil))
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	router, _ := newTestRouter(t, &fakeGeminiClient{}, config.APIConfig{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "fixed-id")
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
	require.Equal(t, "fixed-id", rec.Header().Get(RequestIDHeader))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `gemini_image_api_http_requests_total{code="200",path="GET /healthz"} 1`)
}
