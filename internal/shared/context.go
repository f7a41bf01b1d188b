package shared

import "context"

// Actor identifies the signed-in user behind a request.
type Actor struct {
	Name  string
	Email string
	Level string
}

// IsAdmin reports whether the actor may use the management screens.
func (a Actor) IsAdmin() bool {
	return a.Level == "admin"
}

type actorContextKey struct{}

// ContextWithActor stores the actor in context.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext extracts the actor from context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
