package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// OfflineMarker flips stored online flags off for everyone not in keep whose
// last_seen is older than seenBefore.
type OfflineMarker interface {
	MarkOfflineExcept(ctx context.Context, keep []int64, seenBefore time.Time) (int64, error)
}

// OnlineSource hands out the users that hold a live connection on this node,
// with connects and disconnects held off until fn returns.
type OnlineSource interface {
	Snapshot(fn func(online []int64) error) error
}

// PresenceSweepJob repairs stored presence after a crash left users flagged online.
// Users seen within grace are left alone so a REST login has time to open its socket.
type PresenceSweepJob struct {
	users   OfflineMarker
	online  OnlineSource
	grace   time.Duration
	timeout time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

func NewPresenceSweepJob(users OfflineMarker, online OnlineSource, grace time.Duration, logger *zap.Logger) *PresenceSweepJob {
	return &PresenceSweepJob{
		users:   users,
		online:  online,
		grace:   grace,
		timeout: 30 * time.Second,
		now:     time.Now,
		logger:  logger,
	}
}

// Run satisfies cron.Job.
func (j *PresenceSweepJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	_, _ = j.Sweep(ctx)
}

func (j *PresenceSweepJob) Sweep(ctx context.Context) (int64, error) {
	var count int64
	var kept int
	err := j.online.Snapshot(func(keep []int64) error {
		kept = len(keep)
		var err error
		count, err = j.users.MarkOfflineExcept(ctx, keep, j.now().Add(-j.grace))
		return err
	})
	if err != nil {
		j.logger.Error("presence sweep failed", zap.Error(err))
		return 0, err
	}
	if count > 0 {
		j.logger.Info("presence sweep marked users offline", zap.Int64("count", count), zap.Int("online", kept))
	}
	return count, nil
}
