package usecase

import (
	"context"
	"fmt"
	"time"

	"EstateScanner/internal/ports"
)

// Refresh rederives the normalized columns and valuations for the whole
// store without crawling. Portal markup fixes and segment drift both get
// picked up this way.
func (p *Pipeline) Refresh(ctx context.Context) error {
	normalized, err := p.repository.NormalizeAll(ctx)
	if err != nil {
		return fmt.Errorf("normalize: %w", err)
	}
	scored, err := p.rescore(ctx)
	if err != nil {
		return err
	}
	p.logger.Info("refresh finished", "normalized", normalized, "scored", scored)
	return nil
}

// Maintenance wires the recurring-refresh driver with the pipeline.
type Maintenance struct {
	driver   ports.Scheduler
	pipeline *Pipeline
}

// NewMaintenance returns a helper to start/stop the recurring refresh.
func NewMaintenance(driver ports.Scheduler, pipeline *Pipeline) *Maintenance {
	return &Maintenance{driver: driver, pipeline: pipeline}
}

// Start registers the refresh job with the provided scheduler.
func (m *Maintenance) Start(ctx context.Context) error {
	if m.driver == nil || m.pipeline == nil {
		return nil
	}

	job := func(time.Time) {
		if err := m.pipeline.Refresh(ctx); err != nil {
			m.pipeline.logger.Error("scheduled refresh failed", "error", err)
		}
	}

	return m.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (m *Maintenance) Stop(ctx context.Context) error {
	if m.driver == nil {
		return nil
	}

	return m.driver.Stop(ctx)
}
