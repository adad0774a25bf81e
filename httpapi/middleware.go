package httpapi

import (
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/meepleai/gateway/auth"
	"github.com/meepleai/gateway/observe"
	"github.com/meepleai/gateway/ratelimit"
)

// SessionCookie is the cookie carrying the session token. A bearer
// token in the Authorization header takes precedence.
const SessionCookie = "meeple_session"

// withSession resolves the caller to a principal before the handler
// runs. Requests without a token proceed as anonymous, keyed by client
// address; presented tokens must be valid and unrevoked.
//
// Rate-limit telemetry headers are set from a non-consuming read here;
// the streaming handler overwrites them with its admission decision.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)

		var principal *auth.Principal
		if token == "" {
			principal = auth.AnonymousPrincipal(clientKey(r))
		} else {
			if _, err := s.codec.Parse(token); err != nil {
				s.logger.Debug(r.Context(), "session token rejected",
					observe.Field{Key: "error", Value: err.Error()})
				writeError(w, http.StatusUnauthorized, "invalid_session", "session token is invalid or expired")
				return
			}

			var err error
			principal, err = s.sessions.Validate(r.Context(), token)
			if errors.Is(err, auth.ErrSessionRevoked) {
				writeError(w, http.StatusUnauthorized, "session_revoked", "session is no longer valid")
				return
			}
			if err != nil {
				s.logger.Error(r.Context(), "session validation failed",
					observe.Field{Key: "error", Value: err.Error()})
				writeError(w, http.StatusInternalServerError, "session_unavailable", "could not validate session")
				return
			}
		}

		setRateHeaders(w, s.limiter.Remaining(principal.ID, principal.Tier))

		ctx := auth.WithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// clientKey buckets anonymous callers by address.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// setRateHeaders writes the telemetry headers carried on every
// response. Remaining is floored so a fractional refill never
// advertises a token the caller does not have.
func setRateHeaders(w http.ResponseWriter, d ratelimit.Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(int(d.Limit)))
	remaining := int(math.Floor(d.Remaining))
	if remaining < 0 {
		remaining = 0
	}
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
}

// setRetryAfter advertises when the next token becomes available,
// rounded up to whole seconds.
func setRetryAfter(w http.ResponseWriter, d ratelimit.Decision) {
	seconds := int(math.Ceil(d.RetryAfter.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(seconds))
}
