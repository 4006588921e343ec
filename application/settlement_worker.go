package application

import (
	"context"
	"errors"
	"time"

	"settler/models"

	log "github.com/sirupsen/logrus"
)

// Scanner runs one scan; satisfied by *ScanRunner
type Scanner interface {
	Run(ctx context.Context) (*models.ScanReport, error)
}

// DefaultScanInterval is used when a non-positive interval is given
const DefaultScanInterval = time.Minute

// SettlementWorker triggers a scan on a fixed interval
type SettlementWorker struct {
	scanner  Scanner
	interval time.Duration
}

// NewSettlementWorker creates a new settlement worker
func NewSettlementWorker(scanner Scanner, interval time.Duration) *SettlementWorker {
	if interval <= 0 {
		log.WithField("interval", interval).Warnf("Non-positive scan interval, using %s", DefaultScanInterval)
		interval = DefaultScanInterval
	}
	return &SettlementWorker{
		scanner:  scanner,
		interval: interval,
	}
}

// Start runs a scan immediately and then once per interval until ctx is done
// or the returned stop function is called.
func (w *SettlementWorker) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		log.WithField("interval", w.interval).Info("Settlement worker started")

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			w.runOnce(ctx)

			select {
			case <-ctx.Done():
				log.Info("Settlement worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Settlement worker shutting down (stop requested)...")
				return
			case <-ticker.C:
			}
		}
	}()

	var stopped bool
	return func() {
		if stopped {
			return
		}
		stopped = true
		close(stopChan)
		<-done
	}
}

func (w *SettlementWorker) runOnce(ctx context.Context) {
	report, err := w.scanner.Run(ctx)
	switch {
	case errors.Is(err, ErrScanInProgress):
		log.Debug("Skipping scheduled scan, another scan is running")
	case err != nil:
		log.WithError(err).Error("Scheduled scan failed")
	case len(report.Results) > 0:
		log.WithFields(log.Fields{
			"runID":    report.RunID,
			"entries":  len(report.Results),
			"failures": report.Failed(),
		}).Info("Scheduled scan settled events")
	}
}
