package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"geminiimageapi/internal/infrastructure/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestIDHeader は、リクエストIDを受け渡すヘッダー名です
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestIDFromContext は、コンテキストに保存されたリクエストIDを返します
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// statusRecorder は、書き込まれたステータスコードを記録します
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// withRequestID は、リクエストIDを付与します。呼び出し元が指定したIDはそのまま使用します
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// withAccessLog は、リクエストごとの結果をログとメトリクスに記録します
func withAccessLog(next http.Handler, m *metrics.Metrics, logger *zap.SugaredLogger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		pattern := r.Pattern
		if pattern == "" {
			pattern = "unmatched"
		}
		m.ObserveRequest(pattern, strconv.Itoa(rec.status), elapsed)

		logger.Infow("リクエストを処理しました",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", elapsed,
			"request_id", RequestIDFromContext(r.Context()),
		)
	})
}
