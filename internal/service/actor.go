package service

import (
	"context"
	"strings"
)

type actorKey struct{}

// WithActor stores the name recorded on activity entries for this request.
func WithActor(ctx context.Context, name string) context.Context {
	name = strings.TrimSpace(name)
	if name == "" {
		return ctx
	}
	return context.WithValue(ctx, actorKey{}, name)
}

// ActorFromContext returns the actor set by WithActor.
func ActorFromContext(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(actorKey{}).(string)
	return name, ok && name != ""
}
