package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"settler/infrastructure"
	"settler/models"
	"settler/service"

	log "github.com/sirupsen/logrus"
)

// ErrScanInProgress is returned when another trigger holds the scan lock
var ErrScanInProgress = errors.New("scan already in progress")

// ScanObserver receives the outcome of every scan
type ScanObserver interface {
	ObserveScan(report *models.ScanReport, elapsed time.Duration)
}

// ScanRunner runs the due event scanner under the scan lock.
// Both the HTTP trigger and the periodic worker go through it.
type ScanRunner struct {
	scanner  service.DueEventScanner
	lock     infrastructure.ScanLock
	observer ScanObserver
	now      func() time.Time
}

// NewScanRunner creates a new scan runner
func NewScanRunner(scanner service.DueEventScanner, lock infrastructure.ScanLock, observer ScanObserver) *ScanRunner {
	return &ScanRunner{
		scanner:  scanner,
		lock:     lock,
		observer: observer,
		now:      time.Now,
	}
}

// Run scans once. It returns ErrScanInProgress without scanning if the lock is held elsewhere.
func (r *ScanRunner) Run(ctx context.Context) (*models.ScanReport, error) {
	release, acquired, err := r.lock.TryAcquire(ctx)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, ErrScanInProgress
	}
	defer release()

	start := r.now()
	report, err := r.scanner.ProcessDueEvents(ctx, start.UTC())
	elapsed := r.now().Sub(start)

	if r.observer != nil {
		r.observer.ObserveScan(report, elapsed)
	}

	if err != nil {
		return report, fmt.Errorf("due event scan failed: %w", err)
	}

	log.WithFields(log.Fields{
		"runID":    report.RunID,
		"entries":  len(report.Results),
		"failures": report.Failed(),
		"elapsed":  elapsed,
	}).Info("Scan run finished")

	return report, nil
}
