package main

import (
	"log/slog"
	"testing"
	"time"

	"github.com/amp-labs/dungen/ai"
	"github.com/amp-labs/dungen/config"
	"github.com/amp-labs/dungen/logger"
	"github.com/amp-labs/dungen/statemachine"
	"github.com/amp-labs/dungen/weapon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Weapons: map[string]config.WeaponPreset{
			"pistol": config.WeaponPreset(weapon.DefaultProperties()),
		},
		Enemies: map[string]config.EnemyPreset{
			"grunt": config.EnemyPreset(ai.DefaultSettings()),
		},
	}
}

func TestBodyWalksTowardsDestination(t *testing.T) {
	t.Parallel()

	b := &body{}
	b.MoveTo(ai.Vec3{X: 6})

	b.integrate(statemachine.Tick{Now: time.Second, Delta: time.Second})
	assert.InDelta(t, moveSpeed, b.Position().X, 1e-9)

	b.integrate(statemachine.Tick{Now: 2 * time.Second, Delta: time.Second})
	assert.InDelta(t, 6, b.Position().X, 1e-9)

	b.integrate(statemachine.Tick{Now: 3 * time.Second, Delta: time.Second})
	assert.InDelta(t, 6, b.Position().X, 1e-9, "arrived bodies stay put")
}

func TestBodyAttackSwing(t *testing.T) {
	t.Parallel()

	p := &player{health: playerHealth}
	b := &body{player: p}

	b.Attack(p)
	assert.True(t, b.IsAttacking())
	assert.InDelta(t, playerHealth-weapon.DefaultDamage, p.health, 1e-9)

	b.integrate(statemachine.Tick{Now: swingTime})
	assert.False(t, b.IsAttacking())
}

func TestSpawnEnemies(t *testing.T) {
	t.Parallel()

	p := &player{health: playerHealth}
	spawns := []config.Spawn{
		{Name: "grunt", Enemy: "grunt", Count: 2},
		{Name: "gunner", Enemy: "grunt", Weapon: "pistol", Count: 1},
	}

	enemies, err := spawnEnemies(testConfig(), spawns, p)
	require.NoError(t, err)
	require.Len(t, enemies, 3)

	assert.Equal(t, "grunt1", enemies[0].name)
	assert.Equal(t, "grunt2", enemies[1].name)
	assert.Nil(t, enemies[0].gun)
	assert.Equal(t, "gunner", enemies[2].name)
	require.NotNil(t, enemies[2].gun)
	assert.Equal(t, "gunner", enemies[2].gun.Owner())
}

func TestEnemyLifecycle(t *testing.T) {
	t.Parallel()

	p := &player{health: playerHealth}

	enemies, err := spawnEnemies(testConfig(), []config.Spawn{{Name: "e", Enemy: "grunt", Weapon: "pistol", Count: 1}}, p)
	require.NoError(t, err)

	e := enemies[0]
	p.enemies = enemies

	ctx := t.Context()
	require.NoError(t, e.Start(ctx, statemachine.Tick{}))

	// The player spawns in sight, so the enemy becomes alert.
	require.NoError(t, p.Tick(ctx, statemachine.Tick{Now: 16 * time.Millisecond, Delta: 16 * time.Millisecond}))
	require.NoError(t, e.Tick(ctx, statemachine.Tick{Now: 16 * time.Millisecond, Delta: 16 * time.Millisecond}))
	assert.Equal(t, ai.Alert, e.ctrl.State())

	e.damage(enemyMaxHealth)
	require.ErrorIs(t, e.Tick(ctx, statemachine.Tick{Now: 32 * time.Millisecond, Delta: 16 * time.Millisecond}), ai.ErrDead)
	assert.False(t, e.gun.Equipped())
}

func TestQuietEnemyMutesTickLogs(t *testing.T) {
	t.Parallel()

	ctx := t.Context()

	loud := &enemy{}
	assert.True(t, logger.Get(loud.actorContext(ctx)).Enabled(ctx, slog.LevelError))

	quiet := &enemy{quiet: true}
	assert.False(t, logger.Get(quiet.actorContext(ctx)).Enabled(ctx, slog.LevelError))
}

func TestReloadWeapons(t *testing.T) {
	t.Parallel()

	p := &player{health: playerHealth}

	enemies, err := spawnEnemies(testConfig(), []config.Spawn{{Name: "e", Enemy: "grunt", Weapon: "pistol", Count: 1}}, p)
	require.NoError(t, err)

	next := testConfig()
	props := weapon.DefaultProperties()
	props.FireRate = 250 * time.Millisecond
	next.Weapons["pistol"] = config.WeaponPreset(props)

	reloadWeapons(t.Context(), next, enemies)

	assert.Equal(t, props, enemies[0].gun.Properties())
}
