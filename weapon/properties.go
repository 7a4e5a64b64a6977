package weapon

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidProperties is returned when weapon properties fail validation.
var ErrInvalidProperties = errors.New("invalid weapon properties")

// FireRateEndCheckRatio is the share of the fire rate that must pass after
// entering Firing before the machine looks for a way out.
const FireRateEndCheckRatio = 0.75

// DefaultDamage is the damage applied by anything the weapon touches.
const DefaultDamage = 25.0

// Properties tune a weapon. Rates are per second.
type Properties struct {
	// Damage applied by anything the weapon, or its children, touches.
	Damage float64 `json:"damage" yaml:"damage"`

	// RepeatCycleFire is true for automatic weapons.
	RepeatCycleFire bool `json:"repeatCycleFire" yaml:"repeatCycleFire"`

	// FireRate is the time between shots.
	FireRate time.Duration `json:"fireRate" yaml:"fireRate"`

	// WindupDelay is how long the trigger must be held before the first shot.
	WindupDelay time.Duration `json:"windupDelay" yaml:"windupDelay"`

	// HeatRate is the heat gained per second of firing. Zero disables overheating.
	HeatRate float64 `json:"heatRate" yaml:"heatRate"`

	// CooldownRate is the heat lost per second while not firing.
	CooldownRate float64 `json:"cooldownRate" yaml:"cooldownRate"`

	// MaxHeat is the heat at which the weapon overheats.
	MaxHeat float64 `json:"maxHeat" yaml:"maxHeat"`

	// RecoverFromOverheat lets Cooldown return to Idle once heat reaches zero.
	// Without it an overheated weapon stays in Cooldown for good.
	RecoverFromOverheat bool `json:"recoverFromOverheat" yaml:"recoverFromOverheat"`
}

// DefaultProperties returns a single-shot weapon with heat disabled.
func DefaultProperties() Properties {
	return Properties{Damage: DefaultDamage}
}

// Validate rejects negative values.
func (p Properties) Validate() error {
	var errs []error

	check := func(name string, negative bool) {
		if negative {
			errs = append(errs, fmt.Errorf("%w: %s must not be negative", ErrInvalidProperties, name))
		}
	}

	check("damage", p.Damage < 0)
	check("fireRate", p.FireRate < 0)
	check("windupDelay", p.WindupDelay < 0)
	check("heatRate", p.HeatRate < 0)
	check("cooldownRate", p.CooldownRate < 0)
	check("maxHeat", p.MaxHeat < 0)

	return errors.Join(errs...)
}

// endCheckDelay is the Firing entry delay.
func (p Properties) endCheckDelay() time.Duration {
	return time.Duration(float64(p.FireRate) * FireRateEndCheckRatio)
}
