package restserver

import (
	"context"
	"net/http"
	"time"

	"github.com/chrissnell/rhythmanchor/internal/log"
	"github.com/chrissnell/rhythmanchor/internal/session"
)

// SessionHeader carries the session ID issued at sign-in
const SessionHeader = "X-Session-ID"

type contextKey string

const sessionContextKey contextKey = "session"

// sessionMiddleware resolves the session header and rejects requests without
// a live session.
func (c *Controller) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(SessionHeader)
		if id == "" {
			c.handlers.formatter.WriteError(w, r, http.StatusUnauthorized, "missing "+SessionHeader+" header")
			return
		}

		sess, err := c.services.Sessions.Get(id)
		if err != nil {
			c.handlers.formatter.WriteError(w, r, http.StatusUnauthorized, err.Error())
			return
		}

		if rec, ok := w.(*statusRecorder); ok {
			rec.username = sess.Username
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionFromContext returns the session attached by sessionMiddleware
func sessionFromContext(r *http.Request) *session.Session {
	sess, _ := r.Context().Value(sessionContextKey).(*session.Session)
	return sess
}

// statusRecorder captures what a handler wrote for the request log
type statusRecorder struct {
	http.ResponseWriter
	status   int
	size     int
	username string
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(b)
	s.size += n
	return n, err
}

// requestLogMiddleware records every request in the HTTP log buffer
func (c *Controller) requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r)

		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		elapsed := time.Since(start)
		log.LogHTTPRequest(r.Method, r.URL.Path, rec.status, elapsed, rec.size, r.RemoteAddr, r.UserAgent(), rec.username)
		c.logger.Debugw("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed", elapsed,
		)
	})
}
