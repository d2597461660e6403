package internal

import (
	"context"
	"time"
)

type ctxKey string

const ContextSubjectKey ctxKey = "subject"

const (
	RoleAdmin  = "admin"
	RoleClient = "client"
)

// Subject is the authenticated account behind a request.
type Subject struct {
	ID    int64
	Role  string
	Email string
	Name  string
}

func SubjectFromContext(ctx context.Context) (Subject, bool) {
	if ctx == nil {
		return Subject{}, false
	}
	subject, ok := ctx.Value(ContextSubjectKey).(Subject)
	return subject, ok
}

func ContextWithSubject(ctx context.Context, subject Subject) context.Context {
	return context.WithValue(ctx, ContextSubjectKey, subject)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
