package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"geminiimageapi/internal/application"
	"geminiimageapi/internal/domain"
	"geminiimageapi/internal/infrastructure/config"

	"go.uber.org/zap"
)

// Handler は、/generate・/edit・/chat のHTTPハンドラです
type Handler struct {
	imageService *application.ImageApplicationService
	apiConfig    config.APIConfig
	logger       *zap.SugaredLogger
}

// NewHandler は新しいHandlerインスタンスを作成します
func NewHandler(imageService *application.ImageApplicationService, apiConfig config.APIConfig, logger *zap.SugaredLogger) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Handler{
		imageService: imageService,
		apiConfig:    apiConfig,
		logger:       logger,
	}
}

// HandleGenerate は、テキストプロンプトからテキストと画像を生成します
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req domain.GenerateRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.imageService.Generate(upstreamContext(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleEdit は、設定された入力形式（JSON または multipart）で画像編集を受け付けます
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	var (
		result domain.APIResult
		err    error
	)

	if h.apiConfig.EditInputMode == config.EditInputModeMultipart {
		var input domain.EditInput
		input, err = h.readMultipartEdit(w, r)
		if err == nil {
			result, err = h.imageService.Edit(upstreamContext(r), input)
		}
	} else {
		var req domain.EditRequest
		err = h.decodeJSON(w, r, &req)
		if err == nil {
			result, err = h.imageService.EditBase64(upstreamContext(r), req)
		}
	}

	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleChat は、リクエストごとに新しいチャットセッションでメッセージを送信します
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req domain.ChatRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	result, err := h.imageService.Chat(upstreamContext(r), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// HandleHealth は、プロセスが稼働中であることを返します
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, h.apiConfig.MaxUploadBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return fmt.Errorf("リクエストボディの解析に失敗: %w", err)
	}
	return nil
}

func (h *Handler) readMultipartEdit(w http.ResponseWriter, r *http.Request) (domain.EditInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.apiConfig.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.apiConfig.MaxUploadBytes); err != nil {
		return domain.EditInput{}, fmt.Errorf("multipartフォームの解析に失敗: %w", err)
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			h.logger.Warnw("一時ファイルの削除に失敗", "error", err)
		}
	}()

	file, _, err := r.FormFile("file")
	if err != nil {
		return domain.EditInput{}, fmt.Errorf("アップロードファイルの取得に失敗: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return domain.EditInput{}, fmt.Errorf("アップロードファイルの読み込みに失敗: %w", err)
	}

	return domain.EditInput{
		Prompt: r.FormValue("prompt"),
		Image:  data,
	}, nil
}

// writeError は、エラーの種類に関わらず500とエラーメッセージを返します
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Errorw("リクエストの処理に失敗",
		"path", r.URL.Path,
		"request_id", RequestIDFromContext(r.Context()),
		"error", err,
	)
	writeJSON(w, http.StatusInternalServerError, domain.ErrorResponse{Detail: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// upstreamContext は、クライアントの切断で上流の呼び出しが中断されないコンテキストを返します
func upstreamContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}
