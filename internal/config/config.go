// Package config implements the validated, typed configuration surface
// described in spec.md §4.10 and §6. Validation is grounded on
// go-playground/validator, the same library and field-error-extraction
// idiom the pack's WMS platform uses in its shared/pkg/api/validation.go.
package config

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/go-playground/validator/v10"

	"github.com/sdwilson/roibot/internal/apperrors"
)

// Timing holds the simulation loop's pacing parameters.
type Timing struct {
	TargetFPS        int     `validate:"required,gte=1,lte=120"`
	SimulationSpeed  float64 `validate:"gte=0.1,lte=10.0"`
}

// Warehouse holds the grid's physical dimensions and packout location.
type Warehouse struct {
	Width        int `validate:"required,gt=0"`
	Height       int `validate:"required,gt=0"`
	PackoutAisle int `validate:"gt=0"`
	PackoutRack  int `validate:"gt=0"`
}

// Robot holds the robot's physical and timing parameters.
type Robot struct {
	Speed     float64 `validate:"gte=0.5,lte=10.0"`
	PickTimeS float64 `validate:"gte=0"`
	MaxItems  int     `validate:"required,gt=0"`
}

// Orders holds the order generator's cadence and bounds.
type Orders struct {
	IntervalS float64 `validate:"gt=0"`
	MinItems  int     `validate:"required,gt=0"`
	MaxItems  int     `validate:"required,gtfield=MinItems"`
	QueueCap  int     `validate:"required,gt=0"`
}

// Navigation holds the path engine's timing and cooldown parameters.
type Navigation struct {
	AisleTraversalS   float64 `validate:"gt=0"`
	DirectionCooldown float64 `validate:"gte=0"`
}

// Analytics holds the rolling-window and overrun-warning thresholds.
type Analytics struct {
	WindowS     float64 `validate:"gt=0"`
	WarnTickMS  float64 `validate:"gt=0"`
}

// Raw is the externally-supplied configuration shape (spec.md §6's
// "Configuration schema"), validated at the boundary before the core ever
// sees it.
type Raw struct {
	Timing     Timing     `validate:"required"`
	Warehouse  Warehouse  `validate:"required"`
	Robot      Robot      `validate:"required"`
	Orders     Orders     `validate:"required"`
	Navigation Navigation `validate:"required"`
	Analytics  Analytics  `validate:"required"`
}

// Default returns the Raw configuration populated with every default named
// in spec.md §6.
func Default() Raw {
	return Raw{
		Timing:     Timing{TargetFPS: 60, SimulationSpeed: 1.0},
		Warehouse:  Warehouse{Width: 25, Height: 20, PackoutAisle: 1, PackoutRack: 1},
		Robot:      Robot{Speed: 2.0, PickTimeS: 3.0, MaxItems: 5},
		Orders:     Orders{IntervalS: 30.0, MinItems: 1, MaxItems: 4, QueueCap: 50},
		Navigation: Navigation{AisleTraversalS: 7.0, DirectionCooldown: 0.5},
		Analytics:  Analytics{WindowS: 3600, WarnTickMS: 50},
	}
}

// Registry is the validated, immutable view of configuration that
// components are constructed from. A reload produces a brand new Registry
// and swaps it in atomically (spec.md §4.10); this type itself never
// mutates once returned by Load.
type Registry struct {
	raw Raw
}

// Raw returns the underlying validated configuration values.
func (r *Registry) Raw() Raw { return r.raw }

var validate = validator.New()

// Load validates raw and, on success, returns an immutable Registry. On
// failure it returns a KindValidation *apperrors.Error describing every
// failing field — callers (startup, or a reload handler) decide whether
// to abort or keep the prior registry, per spec.md §4.10.
func Load(raw Raw) (*Registry, error) {
	if err := validate.Struct(raw); err != nil {
		return nil, toValidationError(err)
	}
	return &Registry{raw: raw}, nil
}

func toValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !asValidationErrors(err, &fieldErrs) {
		return apperrors.Validationf("config.invalid", "configuration invalid: %v", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return apperrors.Validationf("config.invalid", "configuration invalid: %s", strings.Join(msgs, "; "))
}

func asValidationErrors(err error, out *validator.ValidationErrors) bool {
	if ve, ok := err.(validator.ValidationErrors); ok {
		*out = ve
		return true
	}
	return false
}

// Live holds the currently-active Registry behind an atomic pointer, so a
// reload swaps in a new validated Registry without any reader ever
// observing a partially-updated view (spec.md §4.10's atomic-reload
// requirement).
type Live struct {
	current atomic.Pointer[Registry]
}

// NewLive constructs a Live holder seeded with an already-validated
// Registry.
func NewLive(initial *Registry) *Live {
	l := &Live{}
	l.current.Store(initial)
	return l
}

// Get returns the currently-active Registry.
func (l *Live) Get() *Registry {
	return l.current.Load()
}

// Reload validates raw and, on success, atomically swaps it in. On
// failure the prior Registry remains active and the validation error is
// returned (spec.md §4.10: "validation failures on reload leave the prior
// registry in place and report the error").
func (l *Live) Reload(raw Raw) error {
	next, err := Load(raw)
	if err != nil {
		return err
	}
	l.current.Store(next)
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Namespace())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Namespace(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", fe.Namespace(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", fe.Namespace(), fe.Param())
	case "gtfield":
		return fmt.Sprintf("%s must be greater than %s", fe.Namespace(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag())
	}
}
