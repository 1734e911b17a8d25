package auth

import (
	"context"

	"github.com/teamtrack/teamtrack-api/internal/model"
)

type Role string

const (
	RoleStandard Role = "standard"
	RoleElevated Role = "elevated"
)

func RoleFromID(roleID int) Role {
	if roleID == model.RoleElevated {
		return RoleElevated
	}
	return RoleStandard
}

// Actor - аутентифицированный пользователь текущего запроса
type Actor struct {
	UserID int64
	Role   Role
}

// Can is the single ownership policy: the owner of an entity or an elevated
// actor may mutate it. Every lifecycle operation goes through this check.
func Can(actor Actor, ownerID int64) bool {
	return actor.Role == RoleElevated || actor.UserID == ownerID
}

type ctxKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

func ActorFrom(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(Actor)
	return a, ok
}
