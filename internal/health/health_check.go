package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/devrev/langdetect/internal/model"
	"go.uber.org/zap"
)

// HealthChecker tracks detector status and runs periodic resource checks
type HealthChecker struct {
	instanceID   string
	interval     time.Duration
	maxHeapBytes uint64
	logger       *zap.Logger
	mu           sync.RWMutex
	lastCheck    time.Time
	status       model.DetectorStatus
	training     model.TrainingSnapshot
	checks       map[string]CheckResult
	livenessOK   bool
	readinessOK  bool
	draining     bool
}

// CheckResult represents the result of a health check
type CheckResult struct {
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthCheckConfig holds configuration for health checks
type HealthCheckConfig struct {
	InstanceID string
	Interval   time.Duration
	// MaxHeapBytes marks the detector unready above this heap size; 0 disables the check
	MaxHeapBytes uint64
}

// NewHealthChecker creates a new health checker in the idle state
func NewHealthChecker(cfg *HealthCheckConfig, logger *zap.Logger) *HealthChecker {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &HealthChecker{
		instanceID:   cfg.InstanceID,
		interval:     cfg.Interval,
		maxHeapBytes: cfg.MaxHeapBytes,
		logger:       logger,
		checks:       make(map[string]CheckResult),
		livenessOK:   true,
		status:       model.DetectorStatusIdle,
		lastCheck:    time.Now(),
	}
}

// Start runs health checks until ctx is canceled
func (h *HealthChecker) Start(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.RunChecks()

	for {
		select {
		case <-ticker.C:
			h.RunChecks()
		case <-ctx.Done():
			h.logger.Info("Health checker stopped")
			return
		}
	}
}

// RunChecks runs all health checks once and recomputes readiness
func (h *HealthChecker) RunChecks() {
	checks := []func() CheckResult{
		h.checkDetector,
		h.checkHeap,
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastCheck = time.Now()
	for _, check := range checks {
		result := check()
		h.checks[result.Name] = result
	}
	h.recompute()

	h.logger.Debug("Health check completed",
		zap.String("status", string(h.status)),
		zap.Bool("liveness", h.livenessOK),
		zap.Bool("readiness", h.readinessOK))
}

// recompute derives readiness from status and check results. Caller holds mu.
func (h *HealthChecker) recompute() {
	ready := h.status == model.DetectorStatusReady && !h.draining
	for _, c := range h.checks {
		if c.Status == "critical" {
			ready = false
		}
	}
	h.readinessOK = ready
}

// checkDetector reports the training state. Caller holds mu.
func (h *HealthChecker) checkDetector() CheckResult {
	result := CheckResult{Name: "detector", Timestamp: time.Now()}

	switch h.status {
	case model.DetectorStatusReady:
		result.Status = "healthy"
		result.Message = fmt.Sprintf("%d languages trained", h.training.Languages)
	case model.DetectorStatusFailed:
		result.Status = "critical"
		result.Message = "last training run failed"
	default:
		result.Status = "warning"
		result.Message = fmt.Sprintf("detector is %s", h.status)
	}
	return result
}

// checkHeap checks heap usage against the configured ceiling
func (h *HealthChecker) checkHeap() CheckResult {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	if h.maxHeapBytes > 0 && ms.HeapAlloc > h.maxHeapBytes {
		return CheckResult{
			Name:      "heap",
			Status:    "critical",
			Message:   fmt.Sprintf("Heap usage %d exceeds limit %d", ms.HeapAlloc, h.maxHeapBytes),
			Timestamp: time.Now(),
		}
	}

	return CheckResult{
		Name:      "heap",
		Status:    "healthy",
		Message:   fmt.Sprintf("Heap usage: %.2f MB, goroutines: %d", float64(ms.HeapAlloc)/1024/1024, runtime.NumGoroutine()),
		Timestamp: time.Now(),
	}
}

// SetStatus records a detector status transition
func (h *HealthChecker) SetStatus(status model.DetectorStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.status != status {
		h.logger.Info("Detector status changed",
			zap.String("from", string(h.status)),
			zap.String("to", string(status)))
	}
	h.status = status
	h.checks["detector"] = h.checkDetector()
	h.recompute()
}

// SetTraining records the last published training run
func (h *HealthChecker) SetTraining(snapshot model.TrainingSnapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.training = snapshot
}

// IsLive returns whether the detector is live (liveness probe)
func (h *HealthChecker) IsLive() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.livenessOK
}

// IsReady returns whether the detector can classify (readiness probe)
func (h *HealthChecker) IsReady() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.readinessOK
}

// GetStatus returns the current health status
func (h *HealthChecker) GetStatus() model.HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.statusLocked()
}

func (h *HealthChecker) statusLocked() model.HealthStatus {
	return model.HealthStatus{
		InstanceID: h.instanceID,
		Status:     h.status,
		Timestamp:  h.lastCheck.Unix(),
		Training:   h.training,
	}
}

// GetChecks returns all check results
func (h *HealthChecker) GetChecks() map[string]CheckResult {
	h.mu.RLock()
	defer h.mu.RUnlock()

	checks := make(map[string]CheckResult, len(h.checks))
	for k, v := range h.checks {
		checks[k] = v
	}
	return checks
}

// SetLiveness manually sets liveness status
func (h *HealthChecker) SetLiveness(live bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.livenessOK = live
}

// SetDraining marks the detector unready for graceful shutdown
func (h *HealthChecker) SetDraining(draining bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.draining = draining
	h.recompute()
}

// LivenessHandler handles HTTP liveness probe requests
func (h *HealthChecker) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	live := h.livenessOK
	status := h.statusLocked()
	h.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if !live {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"healthy":     live,
		"status":      status.Status,
		"instance_id": status.InstanceID,
	})
}

// ReadinessHandler handles HTTP readiness probe requests
func (h *HealthChecker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	ready := h.readinessOK
	status := h.statusLocked()
	h.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if !ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"ready":     ready,
		"status":    status.Status,
		"languages": status.Training.Languages,
		"run_id":    status.Training.RunID,
	})
}
