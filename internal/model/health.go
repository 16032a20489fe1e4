package model

// HealthStatus represents the health state of the detector
type HealthStatus struct {
	InstanceID string
	Status     DetectorStatus
	Timestamp  int64
	Training   TrainingSnapshot
}

// DetectorStatus defines the operational status of the detector
type DetectorStatus string

const (
	DetectorStatusIdle     DetectorStatus = "idle"
	DetectorStatusTraining DetectorStatus = "training"
	DetectorStatusReady    DetectorStatus = "ready"
	DetectorStatusFailed   DetectorStatus = "failed"
)

// TrainingSnapshot summarizes the last completed training run
type TrainingSnapshot struct {
	RunID     string
	Languages int
	Records   uint64
}
