package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"reflect"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oliverbestmann/tilecs"
	"github.com/oliverbestmann/tilecs/internal/config"
	"github.com/oliverbestmann/tilecs/schema"
	"github.com/oliverbestmann/tilecs/spoke"
)

type position struct {
	X, Y int32
}

type velocity struct {
	X, Y float32
}

type health int32

type frozen struct{}

type tree struct{}

// componentIds are the ids of the components the workload touches,
// resolved by name from the component table.
type componentIds struct {
	position tilecs.ComponentID
	velocity tilecs.ComponentID
	health   tilecs.ComponentID
	frozen   tilecs.ComponentID
	tree     tilecs.ComponentID
}

func builtinTable() *spoke.ComponentTable {
	return spoke.MustComponentTable(
		spoke.Describe[position](0, "Position"),
		spoke.Describe[velocity](1, "Velocity"),
		spoke.Describe[health](2, "Health"),
		spoke.Describe[frozen](3, "Frozen"),
		spoke.DescribePrototype[tree](128, "Tree"),
	)
}

func loadTable(path string) (*spoke.ComponentTable, error) {
	if path == "" {
		return builtinTable(), nil
	}

	return schema.LoadTable(path)
}

func resolveComponents(table *spoke.ComponentTable) (componentIds, error) {
	var ids componentIds
	var err error

	resolve := func(target *tilecs.ComponentID, name string, ty reflect.Type, prototype bool) {
		if err != nil {
			return
		}

		id, ok := table.Lookup(name)
		if !ok {
			err = fmt.Errorf("component %q is missing in the schema", name)
			return
		}

		info := table.Info(id)

		switch {
		case info.PrototypeOnly != prototype:
			err = fmt.Errorf("component %q: expected prototype_only=%t", name, prototype)
		case !prototype && (uintptr(info.Size) != ty.Size() || uintptr(info.Align) < uintptr(ty.Align())):
			err = fmt.Errorf("component %q: layout does not match %s", name, ty)
		}

		*target = id
	}

	resolve(&ids.position, "Position", reflect.TypeFor[position](), false)
	resolve(&ids.velocity, "Velocity", reflect.TypeFor[velocity](), false)
	resolve(&ids.health, "Health", reflect.TypeFor[health](), false)
	resolve(&ids.frozen, "Frozen", reflect.TypeFor[frozen](), false)
	resolve(&ids.tree, "Tree", reflect.TypeFor[tree](), true)

	return ids, err
}

type worldResult struct {
	Stats  tilecs.Stats
	Ticks  tilecs.Timings
	Frozen int
}

func run(ctx context.Context, cfg *config.Config) error {
	table, err := loadTable(cfg.Workload.Schema)
	if err != nil {
		return err
	}

	ids, err := resolveComponents(table)
	if err != nil {
		return err
	}

	slog.Info(
		"Starting workload",
		slog.Int("worlds", cfg.Workload.Worlds),
		slog.Int("entities", cfg.Workload.Entities),
		slog.Int("ticks", cfg.Workload.Ticks),
		slog.Float64("churn", cfg.Workload.Churn),
	)

	results := make([]worldResult, cfg.Workload.Worlds)

	group, ctx := errgroup.WithContext(ctx)

	for idx := range results {
		group.Go(func() error {
			result, err := simulate(ctx, idx, table, ids, cfg)
			results[idx] = result
			return err
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}

	for idx, result := range results {
		slog.Info(
			"World finished",
			slog.Int("world", idx),
			slog.Int("entities", result.Stats.Entities),
			slog.Int("archetypes", result.Stats.Archetypes),
			slog.Int("created", result.Stats.Created),
			slog.Int("deleted", result.Stats.Deleted),
			slog.Int("transitions", result.Stats.Transitions),
			slog.Int("frozen", result.Frozen),
			slog.Duration("tickAvg", result.Ticks.MovingAverage),
			slog.Duration("tickMin", result.Ticks.Min),
			slog.Duration("tickMax", result.Ticks.Max),
		)
	}

	return nil
}

// world is the state of one simulated manager.
type world struct {
	manager  *tilecs.Manager
	commands *tilecs.Commands
	rng      *rand.Rand
	ids      componentIds

	moving *tilecs.Query
	frozen *tilecs.Watcher

	// live entities to pick mutation targets from
	entities []tilecs.Entity
}

func simulate(ctx context.Context, idx int, table *spoke.ComponentTable, ids componentIds, cfg *config.Config) (worldResult, error) {
	logger := slog.Default().With(slog.Int("world", idx))

	manager := tilecs.New(table, tilecs.Options{
		MaxEntities:     cfg.Manager.MaxEntities,
		InitialCapacity: cfg.Manager.InitialCapacity,
		Logger:          logger,
	})

	w := &world{
		manager:  manager,
		commands: manager.Commands(),
		rng:      rand.New(rand.NewPCG(cfg.Workload.Seed, uint64(idx))),
		ids:      ids,
		moving:   manager.Query(tilecs.SignatureOf(ids.position, ids.velocity), tilecs.SignatureOf(ids.frozen)),
		frozen:   manager.AddWatcher(tilecs.SignatureOf(ids.frozen), tilecs.Signature{}, tilecs.WatchEntered),
	}

	if err := w.populate(cfg.Workload.Entities); err != nil {
		return worldResult{}, err
	}

	var result worldResult

	lastReport := time.Now()

	for tick := range cfg.Workload.Ticks {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		result.Ticks.Measure(func() {
			w.integrate()
			w.churn(int(float64(len(w.entities)) * cfg.Workload.Churn))
			w.commands.Apply()
		})

		result.Frozen += w.frozen.Len()
		w.frozen.Clear()

		if cfg.Workload.Report > 0 && time.Since(lastReport) >= cfg.Workload.Report {
			lastReport = time.Now()

			logger.Info(
				"Progress",
				slog.Int("tick", tick),
				slog.Int("entities", manager.EntityCount()),
				slog.Int("moving", w.moving.Count()),
				slog.Duration("tickAvg", result.Ticks.MovingAverage),
			)
		}
	}

	result.Stats = manager.Stats()

	return result, nil
}

func (w *world) randomPosition() position {
	return position{X: w.rng.Int32N(1024), Y: w.rng.Int32N(1024)}
}

func (w *world) randomVelocity() velocity {
	return velocity{X: w.rng.Float32()*2 - 1, Y: w.rng.Float32()*2 - 1}
}

// populate creates half of the entities as moving tiles and the rest as
// clones of a tree.
func (w *world) populate(count int) error {
	if count == 0 {
		return nil
	}

	m := w.manager

	moving := m.CreateEntities(count/2, tilecs.SignatureOf(w.ids.position, w.ids.velocity))
	for _, entity := range moving {
		tilecs.Set(m, entity, w.ids.position, w.randomPosition())
		tilecs.Set(m, entity, w.ids.velocity, w.randomVelocity())
	}

	template := m.CreateEntity(w.ids.tree)
	tilecs.Add(m, template, w.ids.position, w.randomPosition())
	tilecs.Add(m, template, w.ids.health, health(100))

	trees, err := m.Clone(template, count-len(moving)-1)
	if err != nil {
		return fmt.Errorf("populate world: %w", err)
	}

	w.entities = append(w.entities, moving...)
	w.entities = append(w.entities, template)
	w.entities = append(w.entities, trees...)

	return nil
}

func (w *world) integrate() {
	for archetype := range w.moving.Archetypes() {
		positions := spoke.ColumnOf[position](archetype, w.ids.position)
		velocities := spoke.ColumnOf[velocity](archetype, w.ids.velocity)

		for idx := range positions {
			positions[idx].X += int32(velocities[idx].X * 4)
			positions[idx].Y += int32(velocities[idx].Y * 4)
		}
	}
}

// take removes an entity from the list of mutation targets.
func (w *world) take(idx int) tilecs.Entity {
	entity := w.entities[idx]

	last := len(w.entities) - 1
	w.entities[idx] = w.entities[last]
	w.entities = w.entities[:last]

	return entity
}

// churn applies count random structural changes. The number of live
// entities does not change.
func (w *world) churn(count int) {
	m := w.manager

	var created []tilecs.EntityCommands

	for range count {
		if len(w.entities) == 0 {
			break
		}

		idx := w.rng.IntN(len(w.entities))
		entity := w.entities[idx]

		switch w.rng.IntN(4) {
		case 0:
			if m.HasComponent(entity, w.ids.frozen) {
				m.RemoveComponent(entity, w.ids.frozen)
			} else {
				m.AddComponent(entity, w.ids.frozen, nil)
			}

		case 1:
			if m.HasComponent(entity, w.ids.health) {
				m.RemoveComponent(entity, w.ids.health)
			} else {
				tilecs.Add(m, entity, w.ids.health, health(w.rng.Int32N(100)))
			}

		case 2:
			// replace the entity with a fresh moving tile
			w.commands.Entity(w.take(idx)).Delete()

			created = append(created, w.commands.Create(
				tilecs.NoPrototype,
				tilecs.Insert(w.ids.position, w.randomPosition()),
				tilecs.Insert(w.ids.velocity, w.randomVelocity()),
			))

		case 3:
			// move the entity to a new identity
			clones, err := m.Clone(entity, 1)
			if err != nil {
				continue
			}

			w.commands.Entity(w.take(idx)).Delete()
			w.entities = append(w.entities, clones...)
		}
	}

	if len(created) == 0 {
		return
	}

	// the queued entities exist after this tick's commands were applied
	w.commands.Queue(func(*tilecs.Manager) {
		for _, entity := range created {
			w.entities = append(w.entities, entity.Entity())
		}
	})
}
