package auth

import (
	"context"

	"github.com/mind-engage/mindengage-quiz/internal/exam"
)

type ctxKey string

const ctxKeyViewer ctxKey = "viewer"

func WithViewer(ctx context.Context, v exam.Viewer) context.Context {
	return context.WithValue(ctx, ctxKeyViewer, v)
}

// ViewerFromContext returns the principal set by JWTMiddleware.
func ViewerFromContext(ctx context.Context) (exam.Viewer, bool) {
	v, ok := ctx.Value(ctxKeyViewer).(exam.Viewer)
	return v, ok && v.ID != 0
}
