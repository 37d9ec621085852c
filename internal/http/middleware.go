package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/bakery-pos/internal/logging"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	SessionHeader = "X-Session-ID"
	SessionCookie = "pos_session"
)

type ctxKey int

const (
	sessionIDKey ctxKey = iota
)

// SessionMiddleware resolves the operator session from the X-Session-ID
// header or the pos_session cookie and issues a new one when both are absent.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.Header.Get(SessionHeader)
		if sessionID == "" {
			if cookie, err := r.Cookie(SessionCookie); err == nil {
				sessionID = cookie.Value
			}
		}
		if sessionID == "" {
			sessionID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    sessionID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		w.Header().Set(SessionHeader, sessionID)
		ctx := context.WithValue(r.Context(), sessionIDKey, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getSessionID(ctx context.Context) string {
	if sessionID, ok := ctx.Value(sessionIDKey).(string); ok {
		return sessionID
	}
	return ""
}

// RequestLogger logs every request with zap and stores a request scoped
// logger in the context.
func RequestLogger(base *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			l := base.With(
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("session_id", getSessionID(r.Context())),
			)
			next.ServeHTTP(ww, r.WithContext(logging.WithCtx(r.Context(), l)))

			l.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
