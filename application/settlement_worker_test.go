package application

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"settler/models"

	"github.com/stretchr/testify/assert"
)

type countingScanner struct {
	calls atomic.Int32
	err   error
}

func (s *countingScanner) Run(ctx context.Context) (*models.ScanReport, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return &models.ScanReport{Results: []models.ScanEntry{}}, nil
}

func TestSettlementWorker_ScansOnStartAndEveryInterval(t *testing.T) {
	scanner := &countingScanner{}
	worker := NewSettlementWorker(scanner, 20*time.Millisecond)

	stop := worker.Start(context.Background())
	assert.Eventually(t, func() bool { return scanner.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	stop()

	calls := scanner.calls.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, calls, scanner.calls.Load(), "no scans after stop")

	stop()
}

func TestSettlementWorker_StopsOnContextCancel(t *testing.T) {
	scanner := &countingScanner{err: ErrScanInProgress}
	worker := NewSettlementWorker(scanner, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	stop := worker.Start(ctx)

	assert.Eventually(t, func() bool { return scanner.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	finished := make(chan struct{})
	go func() {
		stop()
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}

func TestSettlementWorker_NonPositiveIntervalUsesDefault(t *testing.T) {
	scanner := &countingScanner{}
	worker := NewSettlementWorker(scanner, 0)
	assert.Equal(t, DefaultScanInterval, worker.interval)

	stop := worker.Start(context.Background())
	assert.Eventually(t, func() bool { return scanner.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	stop()
}
