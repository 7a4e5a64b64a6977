// Command dungen-sim runs a small arena: enemies built from config presets
// chase a player around a circle, shooting with their weapon presets.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"slices"
	"sort"

	"facette.io/natsort"
	"github.com/amp-labs/dungen/ai"
	"github.com/amp-labs/dungen/config"
	"github.com/amp-labs/dungen/logger"
	"github.com/amp-labs/dungen/shutdown"
	"github.com/amp-labs/dungen/sim"
	"github.com/amp-labs/dungen/statemachine"
	"github.com/amp-labs/dungen/statemachine/validator"
	"github.com/amp-labs/dungen/statemachine/visualizer"
	"github.com/amp-labs/dungen/telemetry"
	"github.com/amp-labs/dungen/weapon"
	"github.com/manifoldco/promptui"
	"go.uber.org/atomic"
)

var (
	configPath = flag.String("config", "dungen.yaml", "path to the config file")
	pick       = flag.Bool("pick", false, "choose a single spawn group interactively")
	graphs     = flag.Bool("graphs", false, "print the machine graphs as mermaid with lint results, then exit")
	duration   = flag.Duration("duration", 0, "stop after this long (0 runs until interrupted)")
	watch      = flag.Bool("watch", true, "reload weapon presets when the config file changes")
	verbose    = flag.Bool("verbose", false, "log every state change")
	quiet      = flag.Bool("quiet", false, "mute per-tick enemy logs; startup and summary logs stay")
)

func main() {
	flag.Parse()

	if *graphs {
		err := printGraphs()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger.ConfigureLoggingWithOptions(cfg.LoggerOptions("dungen-sim"))

	ctx := shutdown.SetupHandler(context.Background())

	if *duration > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	err = telemetry.Initialize(ctx, &cfg.Telemetry)
	if err != nil {
		logger.Fatal("initializing telemetry", "error", err)
	}

	shutdown.BeforeShutdown(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Telemetry.Timeout)
		defer cancel()

		err := telemetry.Shutdown(shutdownCtx)
		if err != nil {
			logger.Get().Warn("telemetry shutdown failed", "error", err)
		}
	})

	spawns := cfg.Spawns
	if *pick {
		spawns, err = pickSpawn(spawns)
		if err != nil {
			logger.Fatal("picking spawn group", "error", err)
		}
	}

	err = run(ctx, cfg, spawns)
	if err != nil {
		logger.Fatal("simulation failed", "error", err)
	}

	shutdown.Shutdown()
}

func run(ctx context.Context, cfg *config.Config, spawns []config.Spawn) error {
	log := logger.Get(ctx)

	var scheduler *sim.Scheduler

	scheduler = sim.NewScheduler(sim.NewWallClock(),
		sim.WithWorkers(cfg.Scheduler.Workers),
		sim.WithErrorHandler(func(ctx context.Context, id sim.ActorID, name string, err error) {
			if !errors.Is(err, ai.ErrDead) {
				return
			}

			logger.Get(ctx).Info("removing dead actor", "actor", name)

			_ = scheduler.Unregister(id)
		}),
	)
	defer scheduler.Close()

	target := &player{health: playerHealth}

	enemies, err := spawnEnemies(cfg, spawns, target)
	if err != nil {
		return err
	}

	target.enemies = enemies

	start := statemachine.Tick{}

	_, err = scheduler.Register("player", target)
	if err != nil {
		return err
	}

	for _, e := range enemies {
		id, err := scheduler.Register(e.name, e)
		if err != nil {
			return err
		}

		err = e.Start(logger.WithActor(ctx, id.String(), e.name), start)
		if err != nil {
			return fmt.Errorf("starting %s: %w", e.name, err)
		}
	}

	log.Info("arena ready", "enemies", len(enemies), "interval", cfg.Scheduler.Interval)

	if *watch {
		go func() {
			err := config.Watch(ctx, *configPath, func(next *config.Config, err error) {
				if err != nil {
					log.Warn("config reload failed", "error", err)

					return
				}

				reloadWeapons(ctx, next, enemies)
			})
			if err != nil {
				log.Warn("config watch stopped", "error", err)
			}
		}()
	}

	err = scheduler.Run(ctx, cfg.Scheduler.Interval)

	for _, info := range scheduler.Snapshot() {
		log.Info("actor summary", "actor", info.Name, "ticks", info.Ticks, "errors", info.Errors)
	}

	return err
}

func spawnEnemies(cfg *config.Config, spawns []config.Spawn, target *player) ([]*enemy, error) {
	opts := []statemachine.Option{statemachine.WithVerbose(*verbose)}

	var enemies []*enemy

	for _, spawn := range spawns {
		settings := cfg.Enemies[spawn.Enemy].Settings()

		for i := range spawn.Count {
			name := spawn.Name
			if spawn.Count > 1 {
				name = fmt.Sprintf("%s%d", spawn.Name, i+1)
			}

			b := &body{
				pos:    ai.Vec3{X: spawn.Position[0] + float64(i), Y: spawn.Position[1], Z: spawn.Position[2]},
				player: target,
			}

			if spawn.Weapon != "" {
				gun, err := weapon.New(spawn.Weapon, cfg.Weapons[spawn.Weapon].Properties(),
					weapon.WithOwner(name),
					weapon.WithEffects(gunEffects(target)),
					weapon.WithMachineOptions(opts...),
				)
				if err != nil {
					return nil, fmt.Errorf("spawning %s: %w", name, err)
				}

				b.gun = gun
			}

			ctrl, err := ai.NewController(name, b, b, settings, ai.WithMachineOptions(opts...))
			if err != nil {
				return nil, fmt.Errorf("spawning %s: %w", name, err)
			}

			enemies = append(enemies, &enemy{
				name:   name,
				preset: spawn.Weapon,
				body:   b,
				ctrl:   ctrl,
				gun:    b.gun,
				player: target,
				health: atomic.NewFloat64(enemyMaxHealth),
				quiet:  *quiet,
			})
		}
	}

	return enemies, nil
}

func gunEffects(target *player) weapon.Effects {
	return weapon.EffectFuncs{
		OnFire: func(_ context.Context, r weapon.Report) {
			target.hurt(r.Damage)
		},
		OnOverheated: func(ctx context.Context, r weapon.Report) {
			logger.Get(ctx).Info("weapon overheated", "weapon", r.Weapon, "owner", r.Owner)
		},
	}
}

// reloadWeapons pushes changed weapon presets into live weapons. Enemy
// settings are read once at spawn and need a restart.
func reloadWeapons(ctx context.Context, next *config.Config, enemies []*enemy) {
	log := logger.Get(ctx)

	for _, e := range enemies {
		if e.gun == nil {
			continue
		}

		preset, ok := next.Weapons[e.preset]
		if !ok {
			continue
		}

		err := e.gun.SetProperties(preset.Properties())
		if err != nil {
			log.Warn("weapon reload rejected", "enemy", e.name, "error", err)

			continue
		}
	}

	log.Info("weapon presets reloaded", "presets", len(next.Weapons))
}

func pickSpawn(spawns []config.Spawn) ([]config.Spawn, error) {
	if len(spawns) == 0 {
		return nil, errors.New("config has no spawns to pick from") //nolint:err113
	}

	names := make([]string, 0, len(spawns))
	for _, s := range spawns {
		names = append(names, s.Name)
	}

	sort.Slice(names, func(i, j int) bool {
		return natsort.Compare(names[i], names[j])
	})

	prompt := promptui.Select{
		Label: "Spawn group",
		Items: names,
	}

	_, chosen, err := prompt.Run()
	if err != nil {
		return nil, err
	}

	idx := slices.IndexFunc(spawns, func(s config.Spawn) bool { return s.Name == chosen })

	return spawns[idx : idx+1], nil
}

// printGraphs renders both machines built with default tuning.
func printGraphs() error {
	gun, err := weapon.New("preview", weapon.DefaultProperties())
	if err != nil {
		return err
	}

	b := &body{player: &player{}}

	ctrl, err := ai.NewController("preview", b, b, ai.DefaultSettings())
	if err != nil {
		return err
	}

	described := []statemachine.Graph{gun.Machine().Describe(), ctrl.Machine().Describe()}
	results := []validator.ValidationResult{validator.ValidateMachine(gun.Machine()), validator.ValidateMachine(ctrl.Machine())}

	opts := visualizer.DefaultOptions().WithShowTimings(true).WithShowConditions(true)

	for i := range described {
		out, err := visualizer.GenerateMermaidWithOptions(&described[i], opts)
		if err != nil {
			return err
		}

		fmt.Println(out)
		fmt.Println(results[i].String())
	}

	return nil
}
