package api

import (
	"net/http"

	"geminiimageapi/internal/infrastructure/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter は、エンドポイントとミドルウェアを組み立てた http.Handler を返します
// gatherer が nil の場合、/metrics は登録されません
func NewRouter(h *Handler, m *metrics.Metrics, gatherer prometheus.Gatherer, logger *zap.SugaredLogger) http.Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /generate", h.HandleGenerate)
	mux.HandleFunc("POST /edit", h.HandleEdit)
	mux.HandleFunc("POST /chat", h.HandleChat)
	mux.HandleFunc("GET /healthz", h.HandleHealth)
	if gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return withRequestID(withAccessLog(mux, m, logger))
}
