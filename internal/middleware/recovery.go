package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/payplaces/directory/pkg/logger"
)

// Recovery recovers from panics in downstream handlers and responds
// with a 500 instead of letting the connection die.
type Recovery struct {
	log *logger.Logger
}

func NewRecovery(log *logger.Logger) *Recovery {
	return &Recovery{log: log}
}

func (m *Recovery) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				stack := debug.Stack()
				m.log.WithContext(r.Context()).WithFields(map[string]interface{}{
					"panic":       fmt.Sprintf("%v", rec),
					"stack":       string(stack),
					"path":        r.URL.Path,
					"method":      r.Method,
					"remote_addr": r.RemoteAddr,
				}).Error("panic recovered")

				writeError(w, http.StatusInternalServerError, "internal", "internal server error", nil)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
