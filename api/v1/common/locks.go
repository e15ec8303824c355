package common

import (
	"context"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ctfer-io/covalic/global"
	errs "github.com/ctfer-io/covalic/pkg/errors"
	"github.com/ctfer-io/covalic/pkg/fs"
	"github.com/ctfer-io/covalic/pkg/lock"
)

const (
	// UsersKey serializes user registrations, so logins and emails stay
	// unique.
	UsersKey = "users"

	// ChallengesKey serializes challenge creations and renames, so names
	// stay unique.
	ChallengesKey = "challenges"
)

// PhaseKey serializes the saves of a phase with its submission folders
// access synchronization.
func PhaseKey(phaseID string) string {
	return filepath.Join("phase", fs.Hash(phaseID))
}

// SubmissionGroupKey serializes the scoring of the submissions sharing
// the "latest" flag, i.e. of the same phase, creator and approach.
func SubmissionGroupKey(phaseID, creatorID, approach string) string {
	return filepath.Join(PhaseKey(phaseID), "latest", fs.Hash(creatorID+"/"+approach))
}

// WithRWLock runs fn while holding the lock of the key in write mode.
// Locks of a same key must not be nested.
func WithRWLock(ctx context.Context, key string, fn func() error) error {
	logger := global.Log()

	l, err := lock.NewRWLock(ctx, key)
	if err != nil {
		err := &errs.ErrInternal{Sub: err}
		logger.Error(ctx, "build lock", zap.Error(err), zap.String("key", key))
		return err
	}
	defer LClose(l)

	if err := l.RWLock(ctx); err != nil {
		err := &errs.ErrInternal{Sub: err}
		logger.Error(ctx, "RW lock", zap.Error(err), zap.String("key", key))
		return err
	}

	ferr := fn()

	// Release even if the request context is canceled
	if err := l.RWUnlock(context.WithoutCancel(ctx)); err != nil {
		logger.Error(ctx, "RW unlock", zap.Error(err), zap.String("key", key))
		return multierr.Combine(ferr, &errs.ErrInternal{Sub: err})
	}
	return ferr
}

// LClose is a helper that logs any error during the lock close call.
func LClose(lock lock.RWLock) {
	logger := global.Log()
	if err := lock.Close(); err != nil {
		logger.Error(context.Background(), "lock close",
			zap.Error(err),
			zap.String("key", lock.Key()),
		)
	}
}
