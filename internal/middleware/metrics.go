package middleware

import "net/http"

// HTTPRecorder はHTTPリクエストの完了を記録するインターフェース。
type HTTPRecorder interface {
	RecordHTTPRequest(method string, status int)
}

// NewMetricsMiddleware はリクエストの完了をメトリクスに記録するミドルウェアを返す。
func NewMetricsMiddleware(recorder HTTPRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rec, r)

			recorder.RecordHTTPRequest(r.Method, rec.statusCode)
		})
	}
}
