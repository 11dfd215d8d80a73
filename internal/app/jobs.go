package app

import (
	"context"
	"time"

	"github.com/garyellow/rentcar-bot/internal/config"
)

// updateGauges refreshes the in-memory state gauges until ctx is done.
func (a *Application) updateGauges(ctx context.Context) {
	a.logger.Debug("Gauge job started")
	defer a.logger.Debug("Gauge job stopped")

	ticker := time.NewTicker(config.MetricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.recordGauges()
		}
	}
}

func (a *Application) recordGauges() {
	if a.metrics == nil {
		return
	}
	a.metrics.SetActiveChats(a.sessions.ActiveChats(), a.navigation.ActiveChats())
	if a.pool != nil {
		st := a.pool.Stats()
		a.metrics.SetPoolQueueDepth(a.pool.Name(), st.Queued)
		a.metrics.SetPoolBurstWorkers(a.pool.Name(), st.BurstActive)
	}
	if a.limiter != nil {
		a.metrics.SetRateLimiterActive("chat", a.limiter.ActiveCount())
	}
	lost := a.logger.RemoteStats()
	a.metrics.SetLogRecordsLost(lost.BufferFull, lost.Closed, lost.Failed)
}
