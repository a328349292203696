// Package middleware holds HTTP middleware shared by all routes.
package middleware

import (
	"net/http"
	"strings"

	"github.com/wellbeingchat/backend/internal/service/auth"
	"github.com/wellbeingchat/backend/pkg/utils"
)

// SessionResolver looks up a live session by token.
type SessionResolver interface {
	Resolve(token string) (auth.Session, error)
}

// RequireSession 校验会话令牌并把会话写入请求上下文。
// 令牌取自 Authorization: Bearer 头，WebSocket 握手时也可使用 token 查询参数。
func RequireSession(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := resolver.Resolve(TokenFrom(r))
			if err != nil {
				utils.RespondServiceError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), session)))
		})
	}
}

// TokenFrom extracts the session token of a request.
func TokenFrom(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get("token")
}
