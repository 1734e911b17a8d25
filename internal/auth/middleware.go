package auth

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/teamtrack/teamtrack-api/internal/model"
	"github.com/teamtrack/teamtrack-api/pkg/respond"
)

// UserSource отдает активного пользователя по id (репозиторий пользователей)
type UserSource interface {
	GetByID(ctx context.Context, id int64) (model.User, error)
}

type Middleware struct {
	tokens *TokenManager
	users  UserSource
	logger *zap.Logger
}

func NewMiddleware(tokens *TokenManager, users UserSource, logger *zap.Logger) *Middleware {
	return &Middleware{
		tokens: tokens,
		users:  users,
		logger: logger,
	}
}

// RequireUser resolves the access_token cookie to an Actor. The user is
// re-read from the store so revoked (soft-deleted) accounts and role changes
// take effect immediately, not on token expiry.
func (m *Middleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(CookieName)
		if err != nil {
			respond.Error(w, r, http.StatusUnauthorized, "could not validate credentials")
			return
		}

		userID, err := m.tokens.Parse(cookie.Value)
		if err != nil {
			respond.Error(w, r, http.StatusUnauthorized, "could not validate credentials")
			return
		}

		user, err := m.users.GetByID(r.Context(), userID)
		if err != nil {
			m.logger.Debug("token user lookup failed", zap.Int64("user_id", userID), zap.Error(err))
			respond.Error(w, r, http.StatusUnauthorized, "could not validate credentials")
			return
		}

		actor := Actor{UserID: user.ID, Role: RoleFromID(user.RoleID)}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// RequireElevated закрывает административные маршруты
func RequireElevated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFrom(r.Context())
		if !ok || actor.Role != RoleElevated {
			respond.Error(w, r, http.StatusForbidden, "forbidden")
			return
		}
		next.ServeHTTP(w, r)
	})
}
