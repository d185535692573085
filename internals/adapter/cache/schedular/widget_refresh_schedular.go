package schedular

import (
	"context"
	"time"

	"exchange-widget/internals/core/domain"
	"exchange-widget/internals/metrics"

	"go.uber.org/zap"
)

const LockKey = "exchange_widget_refresh_lock"

// LockTTL bounds one Reload in which every request runs into httpTimeout: the
// latest fetch, a max build of MaxSamples+1 dates, and the pacing between them.
func LockTTL(httpTimeout time.Duration) time.Duration {
	requests := time.Duration(domain.MaxSamples + 2)
	pauses := time.Duration(domain.MaxSamples + 1)
	return requests*httpTimeout + pauses*domain.PacingDelay + time.Minute
}

// lockWait is how long a cycle waits for another instance's refresh before skipping.
var lockWait = 15 * time.Second

// Locker is satisfied by cache.RedisLock.
type Locker interface {
	Acquire(ctx context.Context, maxWait time.Duration) (bool, error)
	Release(ctx context.Context) error
}

// Reloader is satisfied by service.WidgetService.
type Reloader interface {
	Reload(ctx context.Context) error
}

// StartBackgroundRefresh reloads the widget now and on every tick until ctx is
// done. A nil lock runs every cycle unlocked.
func StartBackgroundRefresh(ctx context.Context, interval time.Duration, widget Reloader, lock Locker, m *metrics.Metrics, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info("Background refresh worker started", zap.Duration("interval", interval), zap.Bool("locked", lock != nil))

	refreshWithLock(ctx, widget, lock, m, log)

	for {
		select {
		case <-ticker.C:
			log.Debug("Background refresh triggered")
			refreshWithLock(ctx, widget, lock, m, log)
		case <-ctx.Done():
			log.Info("Background refresh worker stopping")
			return
		}
	}
}

func refreshWithLock(ctx context.Context, widget Reloader, lock Locker, m *metrics.Metrics, log *zap.Logger) {
	if lock != nil {
		acquired, err := lock.Acquire(ctx, lockWait)
		if err != nil || !acquired {
			log.Info("Could not acquire refresh lock, skipping this cycle", zap.Error(err))
			m.BackgroundRefreshesTotal.WithLabelValues("skipped").Inc()
			return
		}
		defer func() {
			if err := lock.Release(context.Background()); err != nil {
				log.Error("Error releasing refresh lock", zap.Error(err))
			}
		}()
	}

	if err := widget.Reload(ctx); err != nil {
		log.Error("Background refresh failed", zap.Error(err))
		m.BackgroundRefreshesTotal.WithLabelValues("error").Inc()
		return
	}
	m.BackgroundRefreshesTotal.WithLabelValues("success").Inc()
	log.Debug("Widget refreshed")
}
