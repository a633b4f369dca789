package jobs

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Manager struct {
	engine *cron.Cron
	sweep  *PresenceSweepJob
	spec   string
	logger *zap.Logger
}

func NewManager(sweep *PresenceSweepJob, spec string, logger *zap.Logger) *Manager {
	return &Manager{
		engine: cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger))),
		sweep:  sweep,
		spec:   spec,
		logger: logger,
	}
}

// Start runs one sweep right away and then schedules it.
func (m *Manager) Start(ctx context.Context) error {
	if _, err := m.engine.AddJob(m.spec, m.sweep); err != nil {
		return fmt.Errorf("schedule presence sweep %q: %w", m.spec, err)
	}
	_, _ = m.sweep.Sweep(ctx)
	m.engine.Start()
	m.logger.Info("cron started", zap.String("presence_sweep", m.spec))
	return nil
}

// Stop waits for running jobs to finish or ctx to end.
func (m *Manager) Stop(ctx context.Context) {
	select {
	case <-m.engine.Stop().Done():
	case <-ctx.Done():
	}
	m.logger.Info("cron stopped")
}
