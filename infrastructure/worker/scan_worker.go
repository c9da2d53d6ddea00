package worker

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"eals-backend/domain/services"
	"eals-backend/infrastructure/websocket"
	"eals-backend/pkg/logger"
)

// MatchSink receives sensor hits from the scan loop. The recognition
// dispatcher implements it.
type MatchSink interface {
	HandleFingerprintMatch(ctx context.Context, employeeID string, score int) (*services.LoginResult, error)
}

// ScanWorker drives the fingerprint sensor while a recognition session is
// up. The dispatcher arms it when the sensor opens and disarms it when the
// session tears down; between scans it idles on a short poll.
type ScanWorker struct {
	fingerprintSvc services.FingerprintService
	sink           MatchSink
	hub            *websocket.Hub

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	isRunning bool
	mu        sync.Mutex

	armed atomic.Bool

	pollInterval time.Duration

	circuitBreaker *CircuitBreaker
}

// CircuitBreaker stops the scan loop from hammering a sensor that keeps
// failing. Half-opens after the reset timeout.
type CircuitBreaker struct {
	failures     int32
	threshold    int32
	resetTimeout time.Duration
	lastFailure  time.Time
	mu           sync.RWMutex
}

func NewCircuitBreaker(threshold int32, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		threshold:    threshold,
		resetTimeout: resetTimeout,
	}
}

// IsOpen returns true if the circuit is open (should not proceed).
func (cb *CircuitBreaker) IsOpen() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	if atomic.LoadInt32(&cb.failures) >= cb.threshold {
		if time.Since(cb.lastFailure) > cb.resetTimeout {
			// Allow one request through (half-open state).
			return false
		}
		return true
	}
	return false
}

func (cb *CircuitBreaker) RecordSuccess() {
	atomic.StoreInt32(&cb.failures, 0)
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	atomic.AddInt32(&cb.failures, 1)
	cb.lastFailure = time.Now()
}

func (cb *CircuitBreaker) GetFailures() int32 {
	return atomic.LoadInt32(&cb.failures)
}

func NewScanWorker(fingerprintSvc services.FingerprintService, sink MatchSink, hub *websocket.Hub) *ScanWorker {
	return &ScanWorker{
		fingerprintSvc: fingerprintSvc,
		sink:           sink,
		hub:            hub,
		pollInterval:   250 * time.Millisecond,
		circuitBreaker: NewCircuitBreaker(10, 60*time.Second),
	}
}

// Start launches the scan loop. The loop stays idle until Arm.
func (w *ScanWorker) Start() {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return
	}
	w.isRunning = true
	w.ctx, w.cancel = context.WithCancel(context.Background())
	w.mu.Unlock()

	w.wg.Add(1)
	go w.run()

	logger.Worker("scan", "fingerprint scan worker started", nil)
}

// Stop shuts the loop down gracefully.
func (w *ScanWorker) Stop() {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return
	}
	w.isRunning = false
	w.mu.Unlock()

	w.armed.Store(false)
	w.cancel()
	w.wg.Wait()
	logger.Worker("scan", "fingerprint scan worker stopped", nil)
}

func (w *ScanWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.isRunning
}

// Arm lets the loop scan. Called by the dispatcher once the sensor is open.
func (w *ScanWorker) Arm() {
	w.armed.Store(true)
}

// Disarm idles the loop without touching the device; the dispatcher owns
// the sensor lifecycle.
func (w *ScanWorker) Disarm() {
	w.armed.Store(false)
}

func (w *ScanWorker) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			if w.armed.Load() {
				w.scanOnce()
			}
		}
	}
}

// scanOnce runs a single identify cycle. A capture timeout just means no
// finger was on the sensor, so it does not count against the breaker.
func (w *ScanWorker) scanOnce() {
	if w.circuitBreaker.IsOpen() {
		logger.Worker("scan", "circuit breaker open, skipping scan cycle", map[string]interface{}{
			"failures": w.circuitBreaker.GetFailures(),
		})
		return
	}

	err := w.fingerprintSvc.Identify(w.ctx, services.FingerprintCallbacks{
		OnDisplay: func(image []byte) {
			w.hub.Broadcast(websocket.EventFingerprintDisplay, map[string]interface{}{
				"image": base64.StdEncoding.EncodeToString(image),
			})
		},
		OnStatus: func(text string) {
			w.hub.Broadcast(websocket.EventFingerprintStatus, map[string]interface{}{
				"text": text,
			})
		},
		OnMatch: func(employeeID string, score int) {
			if _, err := w.sink.HandleFingerprintMatch(w.ctx, employeeID, score); err != nil {
				logger.WorkerError("scan", "match dispatch failed", err, map[string]interface{}{
					"employee_id": employeeID,
				})
			}
		},
		OnMiss: func() {},
	})

	switch {
	case err == nil:
		w.circuitBreaker.RecordSuccess()
	case errors.Is(err, services.ErrCaptureTimeout):
		// Idle sensor, not a failure.
	case errors.Is(err, context.Canceled):
	default:
		w.circuitBreaker.RecordFailure()
		logger.WorkerError("scan", "identify cycle failed", err, nil)
	}
}

// Stats reports loop state for the health endpoint.
func (w *ScanWorker) Stats() map[string]interface{} {
	return map[string]interface{}{
		"running":          w.IsRunning(),
		"armed":            w.armed.Load(),
		"circuit_closed":   !w.circuitBreaker.IsOpen(),
		"circuit_failures": w.circuitBreaker.GetFailures(),
	}
}
