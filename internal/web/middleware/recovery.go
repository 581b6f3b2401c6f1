package middleware

import (
	"fmt"
	"net/http"

	"github.com/grimoire-wiki/grimoire/internal/web/response"
	"go.uber.org/zap"
)

// Recovery turns a panicking handler into a 500 with the standard error
// body and logs the panic with its stack
func Recovery(logger *zap.Logger) Middleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if p == http.ErrAbortHandler {
					panic(p)
				}

				err, ok := p.(error)
				if !ok {
					err = fmt.Errorf("panic: %v", p)
				}
				logger.Error("panic recovered",
					zap.String("request_id", GetRequestID(r.Context())),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Error(err),
					zap.Stack("stack"))

				response.RenderInternalError(w)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
