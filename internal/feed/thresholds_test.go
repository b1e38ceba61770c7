package feed

import (
	"context"
	"errors"
	"testing"

	"github.com/nixlim/mixwatch/internal/api"
	"github.com/nixlim/mixwatch/internal/scope"
)

func TestThresholds_LoadDefaults(t *testing.T) {
	tests := []struct {
		name    string
		backend *fakeThresholdBackend
		want    api.Thresholds
	}{
		{
			name:    "request fails",
			backend: &fakeThresholdBackend{getErr: errBackend},
			want:    api.Thresholds{MachineID: "4", MinRatio: 0.90, MaxRatio: 1.10, TargetRatio: 1.00},
		},
		{
			name:    "zero fields default",
			backend: &fakeThresholdBackend{got: api.Thresholds{MinRatio: 0.85}},
			want:    api.Thresholds{MachineID: "4", MinRatio: 0.85, MaxRatio: 1.10, TargetRatio: 1.00},
		},
		{
			name:    "configured",
			backend: &fakeThresholdBackend{got: api.Thresholds{MinRatio: 0.8, MaxRatio: 1.2, TargetRatio: 0.95}},
			want:    api.Thresholds{MachineID: "4", MinRatio: 0.8, MaxRatio: 1.2, TargetRatio: 0.95},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			th := NewThresholds(tc.backend, signedIn("1", scope.RightsAdmin))
			if got := th.Load(context.Background(), "4"); got != tc.want {
				t.Errorf("Load = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestValidateThresholds(t *testing.T) {
	tests := []struct {
		name string
		th   api.Thresholds
		ok   bool
	}{
		{"valid", api.Thresholds{MachineID: "1", MinRatio: 0.9, TargetRatio: 1, MaxRatio: 1.1}, true},
		{"equal bounds", api.Thresholds{MachineID: "1", MinRatio: 1, TargetRatio: 1, MaxRatio: 1}, true},
		{"missing machine", api.Thresholds{MinRatio: 0.9, TargetRatio: 1, MaxRatio: 1.1}, false},
		{"zero min", api.Thresholds{MachineID: "1", MinRatio: 0, TargetRatio: 1, MaxRatio: 1.1}, false},
		{"target below min", api.Thresholds{MachineID: "1", MinRatio: 0.9, TargetRatio: 0.8, MaxRatio: 1.1}, false},
		{"max below target", api.Thresholds{MachineID: "1", MinRatio: 0.9, TargetRatio: 1, MaxRatio: 0.95}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateThresholds(tc.th)
			if tc.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, api.ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}
}

func TestThresholds_Save(t *testing.T) {
	valid := api.Thresholds{MachineID: "1", MinRatio: 0.9, TargetRatio: 1, MaxRatio: 1.1}

	t.Run("specialist saves", func(t *testing.T) {
		backend := &fakeThresholdBackend{}
		th := NewThresholds(backend, signedIn("1", scope.RightsSpecialist))
		if !th.CanEdit() {
			t.Error("specialist should be able to edit")
		}
		if err := th.Save(context.Background(), valid); err != nil {
			t.Fatalf("Save: %v", err)
		}
		if len(backend.saved) != 1 || backend.saved[0] != valid {
			t.Errorf("saved = %+v", backend.saved)
		}
	})

	t.Run("operator forbidden", func(t *testing.T) {
		backend := &fakeThresholdBackend{}
		th := NewThresholds(backend, signedIn("1", scope.RightsOperator))
		if th.CanEdit() {
			t.Error("operator should not be able to edit")
		}
		if err := th.Save(context.Background(), valid); !errors.Is(err, ErrForbidden) {
			t.Errorf("err = %v, want ErrForbidden", err)
		}
		if len(backend.saved) != 0 {
			t.Error("forbidden save reached the backend")
		}
	})

	t.Run("backend failure", func(t *testing.T) {
		th := NewThresholds(&fakeThresholdBackend{saveErr: errBackend}, signedIn("1", scope.RightsAdmin))
		if err := th.Save(context.Background(), valid); !errors.Is(err, api.ErrNetwork) {
			t.Errorf("err = %v, want ErrNetwork", err)
		}
	})
}
