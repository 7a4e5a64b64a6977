package ai

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidSettings is returned when AI settings fail validation.
var ErrInvalidSettings = errors.New("invalid ai settings")

// Default settings.
const (
	DefaultAlertDelay      = 750 * time.Millisecond
	DefaultAttackDistance  = 2.0
	DefaultHearingDistance = 100.0
)

// Settings tune a single enemy.
type Settings struct {
	// AlertDelay is how long the enemy stays alert before turning aggressive.
	AlertDelay time.Duration `json:"alertDelay" yaml:"alertDelay"`

	// AttackDistance is how close the target must be before attacking.
	AttackDistance float64 `json:"attackDistance" yaml:"attackDistance"`

	// HearingDistance is the radius within which noises are heard.
	HearingDistance float64 `json:"hearingDistance" yaml:"hearingDistance"`

	// LoseTargetTime is how long a lost target is remembered. Zero, the
	// default, forgets it on the next tick.
	LoseTargetTime time.Duration `json:"loseTargetTime" yaml:"loseTargetTime"`
}

// DefaultSettings returns the stock enemy tuning.
func DefaultSettings() Settings {
	return Settings{
		AlertDelay:      DefaultAlertDelay,
		AttackDistance:  DefaultAttackDistance,
		HearingDistance: DefaultHearingDistance,
	}
}

// Validate rejects negative durations and distances.
func (s Settings) Validate() error {
	var errs []error

	if s.AlertDelay < 0 {
		errs = append(errs, fmt.Errorf("%w: alertDelay must not be negative", ErrInvalidSettings))
	}

	if s.AttackDistance < 0 {
		errs = append(errs, fmt.Errorf("%w: attackDistance must not be negative", ErrInvalidSettings))
	}

	if s.HearingDistance < 0 {
		errs = append(errs, fmt.Errorf("%w: hearingDistance must not be negative", ErrInvalidSettings))
	}

	if s.LoseTargetTime < 0 {
		errs = append(errs, fmt.Errorf("%w: loseTargetTime must not be negative", ErrInvalidSettings))
	}

	return errors.Join(errs...)
}
