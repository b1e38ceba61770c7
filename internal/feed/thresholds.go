package feed

import (
	"context"
	"fmt"
	"log"

	"github.com/nixlim/mixwatch/internal/api"
	"github.com/nixlim/mixwatch/internal/scope"
)

// Default ratio limits used when a machine has none configured.
const (
	DefaultMinRatio    = 0.90
	DefaultMaxRatio    = 1.10
	DefaultTargetRatio = 1.00
)

// DefaultThresholds returns the fallback limits for a machine.
func DefaultThresholds(machineID string) api.Thresholds {
	return api.Thresholds{
		MachineID:   machineID,
		MinRatio:    DefaultMinRatio,
		MaxRatio:    DefaultMaxRatio,
		TargetRatio: DefaultTargetRatio,
	}
}

// Thresholds edits the per-machine ratio limits.
type Thresholds struct {
	backend  ThresholdBackend
	sessions SessionSource
}

// NewThresholds creates a Thresholds controller.
func NewThresholds(backend ThresholdBackend, sessions SessionSource) *Thresholds {
	return &Thresholds{backend: backend, sessions: sessions}
}

// Load returns the limits of a machine. A failed request, or a field left
// at zero, falls back to the defaults.
func (t *Thresholds) Load(ctx context.Context, machineID string) api.Thresholds {
	out := DefaultThresholds(machineID)
	got, err := t.backend.GetThresholds(ctx, machineID)
	if err != nil {
		log.Printf("WARNING: loading thresholds for machine %s: %v", machineID, err)
		return out
	}
	if got.MinRatio != 0 {
		out.MinRatio = got.MinRatio
	}
	if got.MaxRatio != 0 {
		out.MaxRatio = got.MaxRatio
	}
	if got.TargetRatio != 0 {
		out.TargetRatio = got.TargetRatio
	}
	return out
}

// CanEdit reports whether the signed-in user may change limits.
func (t *Thresholds) CanEdit() bool {
	s := t.sessions.Current()
	return s != nil && scope.CanConfigure(s.User)
}

// Save validates and stores new limits.
func (t *Thresholds) Save(ctx context.Context, th api.Thresholds) error {
	s := t.sessions.Current()
	if s == nil {
		return ErrNoSession
	}
	if !scope.CanConfigure(s.User) {
		return fmt.Errorf("update thresholds: %w", ErrForbidden)
	}
	if err := ValidateThresholds(th); err != nil {
		return err
	}
	if err := t.backend.UpdateThresholds(ctx, th); err != nil {
		return fmt.Errorf("update thresholds for machine %s: %w", th.MachineID, err)
	}
	return nil
}

// ValidateThresholds checks 0 < min <= target <= max and a machine id.
func ValidateThresholds(th api.Thresholds) error {
	switch {
	case th.MachineID == "":
		return api.Validationf("thresholds: machine id is required")
	case th.MinRatio <= 0:
		return api.Validationf("thresholds: min ratio must be positive, got %g", th.MinRatio)
	case th.TargetRatio < th.MinRatio:
		return api.Validationf("thresholds: target %g is below min %g", th.TargetRatio, th.MinRatio)
	case th.MaxRatio < th.TargetRatio:
		return api.Validationf("thresholds: max %g is below target %g", th.MaxRatio, th.TargetRatio)
	}
	return nil
}
