package global

import (
	"context"
)

type challengeKey struct{}
type phaseKey struct{}
type submissionKey struct{}
type userKey struct{}
type jobKey struct{}

func WithChallengeID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, challengeKey{}, id)
}

func WithPhaseID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, phaseKey{}, id)
}

func WithSubmissionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, submissionKey{}, id)
}

func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userKey{}, id)
}

func WithJobID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, jobKey{}, id)
}
