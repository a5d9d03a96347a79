package tilecs

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oliverbestmann/tilecs/spoke"
)

type position struct {
	X, Y int32
}

type velocity struct {
	X, Y float64
}

type health int32

type frozen struct{}

type chunk struct {
	Index uint16
}

const (
	positionId ComponentID = 0
	velocityId ComponentID = 1
	frozenId   ComponentID = 2
	healthId   ComponentID = 3
	chunkId    ComponentID = 70
	treeId     ComponentID = 200
)

func testTable() *spoke.ComponentTable {
	return spoke.MustComponentTable(
		spoke.Describe[position](positionId, "Position"),
		spoke.Describe[velocity](velocityId, "Velocity"),
		spoke.Describe[frozen](frozenId, "Frozen"),
		spoke.Describe[health](healthId, "Health"),
		spoke.Describe[chunk](chunkId, "Chunk"),
		spoke.DescribePrototype[struct{}](treeId, "Tree"),
	)
}

func newTestManager(opts ...Options) *Manager {
	return New(testTable(), opts...)
}

func requirePanicsWithError(t *testing.T, target error, fn func()) {
	t.Helper()

	defer func() {
		err, ok := recover().(error)
		require.True(t, ok, "expected a panic with an error value")
		require.ErrorIs(t, err, target)
	}()

	fn()
}

func TestManager_CreateEntity(t *testing.T) {
	m := newTestManager()

	entity := m.CreateEntity(NoPrototype)
	require.Equal(t, Entity{ID: 1, Version: 1}, entity)
	require.True(t, m.IsAlive(entity))
	require.True(t, m.EntitySignature(entity).IsZero())
	require.Equal(t, 1, m.EntityCount())

	loc, ok := m.LookupEntity(entity)
	require.True(t, ok)
	require.Equal(t, m.Archetypes()[0], loc.Archetype)
	require.Equal(t, Row(0), loc.Row)

	tree := m.CreateEntity(treeId)
	prototype, ok := m.Prototype(tree)
	require.True(t, ok)
	require.Equal(t, treeId, prototype)

	prototype, ok = m.Prototype(entity)
	require.True(t, ok)
	require.Equal(t, NoPrototype, prototype)
}

func TestManager_CreateEntityRequiresPrototype(t *testing.T) {
	m := newTestManager()

	require.Panics(t, func() { m.CreateEntity(positionId) })
	require.Panics(t, func() { m.CreateEntity(99) })
	require.Equal(t, 0, m.EntityCount())
}

func TestManager_NullEntity(t *testing.T) {
	m := newTestManager()

	require.False(t, m.IsAlive(NullEntity))
	require.Nil(t, m.GetComponent(NullEntity, positionId))

	_, ok := m.LookupEntity(NullEntity)
	require.False(t, ok)

	// all of these are no-ops
	m.AddComponent(NullEntity, positionId, nil)
	m.RemoveComponent(NullEntity, positionId)
	m.DeleteEntity(NullEntity)

	require.Equal(t, 1, m.registry.Len())
}

func TestManager_ComponentCarryover(t *testing.T) {
	m := newTestManager()

	entity := m.CreateEntity(NoPrototype)

	Add(m, entity, positionId, position{X: 5})
	require.True(t, m.HasComponent(entity, positionId))
	require.Equal(t, position{X: 5}, *Get[position](m, entity, positionId))

	Add(m, entity, healthId, health(7))
	require.Equal(t, SignatureOf(positionId, healthId), m.EntitySignature(entity))
	require.Equal(t, position{X: 5}, *Get[position](m, entity, positionId))
	require.Equal(t, health(7), *Get[health](m, entity, healthId))

	m.RemoveComponent(entity, positionId)
	require.Equal(t, SignatureOf(healthId), m.EntitySignature(entity))
	require.False(t, m.HasComponent(entity, positionId))
	require.Nil(t, Get[position](m, entity, positionId))
	require.Equal(t, health(7), *Get[health](m, entity, healthId))
}

func TestManager_DeleteFixesDisplacedEntity(t *testing.T) {
	m := newTestManager()

	entities := m.CreateEntities(3, SignatureOf(positionId, velocityId))
	for idx, entity := range entities {
		Set(m, entity, positionId, position{X: int32(idx), Y: 10})
		Set(m, entity, velocityId, velocity{X: float64(idx)})
	}

	e1, e2, e3 := entities[0], entities[1], entities[2]

	before, _ := m.LookupEntity(e2)

	m.DeleteEntity(e2)
	require.False(t, m.IsAlive(e2))

	loc, ok := m.LookupEntity(e3)
	require.True(t, ok)
	require.Equal(t, before, loc)
	require.Equal(t, e3, loc.Archetype.EntityAt(loc.Row))

	require.Equal(t, position{X: 2, Y: 10}, *Get[position](m, e3, positionId))
	require.Equal(t, velocity{X: 2}, *Get[velocity](m, e3, velocityId))
	require.Equal(t, position{X: 0, Y: 10}, *Get[position](m, e1, positionId))

	require.Equal(t, 2, m.EntityCount())
}

func TestManager_IdentityStableAcrossMoves(t *testing.T) {
	m := newTestManager()

	entity := m.CreateEntity(NoPrototype)
	others := m.CreateEntities(5, SignatureOf(positionId))

	Add(m, entity, positionId, position{X: 1, Y: 2})
	Add(m, entity, velocityId, velocity{X: 3})
	m.DeleteEntity(others[0])
	Add(m, entity, chunkId, chunk{Index: 12})
	m.RemoveComponent(entity, velocityId)

	require.True(t, m.IsAlive(entity))
	require.Equal(t, SignatureOf(positionId, chunkId), m.EntitySignature(entity))
	require.Equal(t, position{X: 1, Y: 2}, *Get[position](m, entity, positionId))
	require.Equal(t, chunk{Index: 12}, *Get[chunk](m, entity, chunkId))

	loc, ok := m.LookupEntity(entity)
	require.True(t, ok)
	require.Equal(t, entity, loc.Archetype.EntityAt(loc.Row))
}

func TestManager_AddComponentIsIdempotent(t *testing.T) {
	m := newTestManager()

	entity := m.CreateEntity(NoPrototype)

	Add(m, entity, positionId, position{X: 1})
	first, _ := m.LookupEntity(entity)
	archetypes := m.registry.Len()
	transitions := m.Stats().Transitions

	Add(m, entity, positionId, position{X: 2})
	second, _ := m.LookupEntity(entity)

	require.Equal(t, first, second)
	require.Equal(t, archetypes, m.registry.Len())
	require.Equal(t, transitions, m.Stats().Transitions)
	require.Equal(t, position{X: 2}, *Get[position](m, entity, positionId))

	// a nil value keeps the existing value of an existing component
	m.AddComponent(entity, positionId, nil)
	require.Equal(t, position{X: 2}, *Get[position](m, entity, positionId))
}

func TestManager_RemoveMissingComponent(t *testing.T) {
	m := newTestManager()

	entity := m.CreateEntity(NoPrototype)
	Add(m, entity, positionId, position{X: 1})

	before, _ := m.LookupEntity(entity)
	m.RemoveComponent(entity, velocityId)
	after, _ := m.LookupEntity(entity)

	require.Equal(t, before, after)
}

func TestManager_StaleHandles(t *testing.T) {
	m := newTestManager()

	stale := m.CreateEntity(NoPrototype)
	Add(m, stale, positionId, position{X: 1})
	m.DeleteEntity(stale)

	// the id is recycled with a new version
	fresh := m.CreateEntity(NoPrototype)
	require.Equal(t, stale.ID, fresh.ID)
	require.Equal(t, stale.Version+1, fresh.Version)

	require.False(t, m.IsAlive(stale))
	require.Nil(t, m.GetComponent(stale, positionId))
	require.True(t, m.EntitySignature(stale).IsZero())

	_, ok := m.Prototype(stale)
	require.False(t, ok)

	m.AddComponent(stale, velocityId, nil)
	m.DeleteEntity(stale)

	require.True(t, m.IsAlive(fresh))
	require.True(t, m.EntitySignature(fresh).IsZero())

	_, err := m.Clone(stale, 1)
	require.ErrorIs(t, err, ErrInvalidEntity)
}

func TestManager_VersionWrapsToOne(t *testing.T) {
	m := newTestManager()

	entity := m.CreateEntity(NoPrototype)
	m.directory.entries[entity.ID].version = ^uint32(0)
	m.DeleteEntity(Entity{ID: entity.ID, Version: ^uint32(0)})

	recycled := m.CreateEntity(NoPrototype)
	require.Equal(t, entity.ID, recycled.ID)
	require.Equal(t, uint32(1), recycled.Version)
}

func TestManager_EntityLimit(t *testing.T) {
	m := newTestManager(Options{MaxEntities: 2})

	first := m.CreateEntity(NoPrototype)
	m.CreateEntity(NoPrototype)

	requirePanicsWithError(t, ErrEntityLimitReached, func() {
		m.CreateEntity(NoPrototype)
	})

	archetypes := m.registry.Len()

	requirePanicsWithError(t, ErrEntityLimitReached, func() {
		m.CreateEntities(1, SignatureOf(positionId))
	})

	// nothing was modified before the panic
	require.Equal(t, archetypes, m.registry.Len())
	require.Equal(t, 2, m.EntityCount())

	_, err := m.Clone(first, 1)
	require.ErrorIs(t, err, ErrEntityLimitReached)

	// freeing an id allows creating an entity again
	m.DeleteEntity(first)
	require.NotPanics(t, func() { m.CreateEntity(NoPrototype) })
}

func TestManager_TypedAccessRejectsPointers(t *testing.T) {
	table := spoke.MustComponentTable(spoke.ComponentInfo{ID: 0, Name: "Handle", Size: 8, Align: 8})
	m := New(table)

	entity := m.CreateEntity(NoPrototype)

	value := 42
	require.Panics(t, func() { Add(m, entity, 0, &value) })
	require.False(t, m.HasComponent(entity, 0))

	m.AddComponent(entity, 0, nil)
	require.Panics(t, func() { Get[*int](m, entity, 0) })
	require.Panics(t, func() { Set(m, entity, 0, &value) })

	commands := m.Commands()
	commands.Entity(entity).Update(Insert(0, &value))
	require.Panics(t, commands.Apply)

	require.NotPanics(t, func() { Add(m, entity, 0, uint64(42)) })
	require.Equal(t, uint64(42), *Get[uint64](m, entity, 0))
}

func TestManager_CreateEntities(t *testing.T) {
	m := newTestManager()

	sig := SignatureOf(positionId, frozenId)
	entities := m.CreateEntities(4, sig)
	require.Len(t, entities, 4)

	archetype, ok := m.registry.Lookup(sig)
	require.True(t, ok)
	require.Equal(t, entities, archetype.Entities())

	for idx, entity := range entities {
		loc, ok := m.LookupEntity(entity)
		require.True(t, ok)
		require.Equal(t, Row(idx), loc.Row)
		require.Equal(t, position{}, *Get[position](m, entity, positionId))
	}

	require.Nil(t, m.CreateEntities(0, sig))
	require.Panics(t, func() { m.CreateEntities(1, SignatureOf(treeId)) })
}

func TestManager_Clone(t *testing.T) {
	m := newTestManager()

	original := m.CreateEntity(treeId)
	Add(m, original, positionId, position{X: 4, Y: 2})
	Add(m, original, frozenId, frozen{})

	clones, err := m.Clone(original, 3)
	require.NoError(t, err)
	require.Len(t, clones, 3)

	for _, clone := range clones {
		require.NotEqual(t, original, clone)
		require.Equal(t, m.EntitySignature(original), m.EntitySignature(clone))
		require.Equal(t, position{X: 4, Y: 2}, *Get[position](m, clone, positionId))

		prototype, _ := m.Prototype(clone)
		require.Equal(t, treeId, prototype)
	}

	// clones are independent
	Set(m, clones[0], positionId, position{X: 9})
	require.Equal(t, position{X: 4, Y: 2}, *Get[position](m, original, positionId))

	clones, err = m.Clone(original, 0)
	require.NoError(t, err)
	require.Empty(t, clones)
}

func TestManager_AddAndRemoveSignature(t *testing.T) {
	m := newTestManager()

	entity := m.CreateEntity(NoPrototype)
	Add(m, entity, healthId, health(3))

	transitions := m.Stats().Transitions
	m.AddSignature(entity, SignatureOf(positionId, velocityId, chunkId))

	require.Equal(t, transitions+1, m.Stats().Transitions)
	require.Equal(t, SignatureOf(positionId, velocityId, healthId, chunkId), m.EntitySignature(entity))
	require.Equal(t, health(3), *Get[health](m, entity, healthId))
	require.Equal(t, velocity{}, *Get[velocity](m, entity, velocityId))

	m.RemoveSignature(entity, SignatureOf(positionId, chunkId, frozenId))
	require.Equal(t, transitions+2, m.Stats().Transitions)
	require.Equal(t, SignatureOf(velocityId, healthId), m.EntitySignature(entity))
	require.Equal(t, health(3), *Get[health](m, entity, healthId))
}

func TestManager_ContractViolations(t *testing.T) {
	m := newTestManager()
	entity := m.CreateEntity(NoPrototype)

	require.Panics(t, func() { m.AddComponent(entity, treeId, nil) })
	require.Panics(t, func() { m.AddComponent(entity, 99, nil) })
	require.Panics(t, func() { m.AddComponent(entity, positionId, []byte{1, 2}) })
	require.Panics(t, func() { m.AddSignature(entity, SignatureOf(positionId, treeId)) })
	require.Panics(t, func() { Add(m, entity, positionId, velocity{}) })

	require.True(t, m.EntitySignature(entity).IsZero())
}

func TestManager_DeleteMatching(t *testing.T) {
	m := newTestManager()

	moving := m.CreateEntities(3, SignatureOf(positionId, velocityId))
	stuck := m.CreateEntities(2, SignatureOf(positionId, velocityId, frozenId))
	static := m.CreateEntities(2, SignatureOf(positionId))

	deleted := m.DeleteMatching(SignatureOf(velocityId), SignatureOf(frozenId))
	require.Equal(t, 3, deleted)

	for _, entity := range moving {
		require.False(t, m.IsAlive(entity))
	}

	for _, entity := range append(stuck, static...) {
		require.True(t, m.IsAlive(entity))
	}
}

func TestManager_GetComponentWritesThrough(t *testing.T) {
	m := newTestManager()

	entity := m.CreateEntity(NoPrototype)
	Add(m, entity, positionId, position{X: 1})

	Get[position](m, entity, positionId).Y = 7
	require.Equal(t, position{X: 1, Y: 7}, *Get[position](m, entity, positionId))

	require.True(t, Set(m, entity, positionId, position{X: 3}))
	require.False(t, Set(m, entity, velocityId, velocity{}))

	value := m.GetComponent(entity, frozenId)
	require.Nil(t, value)

	Add(m, entity, frozenId, frozen{})
	require.NotNil(t, m.GetComponent(entity, frozenId))
	require.Empty(t, m.GetComponent(entity, frozenId))
}

// TestManager_RandomOperations compares the manager to a simple model after
// every operation.
func TestManager_RandomOperations(t *testing.T) {
	const maxEntities = 64

	m := newTestManager(Options{MaxEntities: maxEntities})
	rng := rand.New(rand.NewPCG(1, 2))

	type modelEntity struct {
		sig Signature
		pos position
	}

	model := map[Entity]*modelEntity{}
	var dead []Entity

	live := func() []Entity {
		var entities []Entity
		for _, archetype := range m.Archetypes() {
			entities = append(entities, archetype.Entities()...)
		}

		return entities
	}

	components := []ComponentID{positionId, velocityId, frozenId, healthId, chunkId}

	for range 5000 {
		entities := live()

		switch op := rng.IntN(10); {
		case (op < 2 || len(entities) == 0) && m.EntityCount() < maxEntities:
			model[m.CreateEntity(NoPrototype)] = &modelEntity{}

		case op < 3 || len(entities) == maxEntities:
			entity := entities[rng.IntN(len(entities))]
			m.DeleteEntity(entity)
			delete(model, entity)
			dead = append(dead, entity)

		case op < 7:
			entity := entities[rng.IntN(len(entities))]
			id := components[rng.IntN(len(components))]

			if id == positionId {
				value := position{X: rng.Int32(), Y: rng.Int32()}
				Add(m, entity, id, value)
				model[entity].pos = value
			} else {
				m.AddComponent(entity, id, nil)
			}

			model[entity].sig.Set(id)

		case op < 9:
			entity := entities[rng.IntN(len(entities))]
			id := components[rng.IntN(len(components))]
			m.RemoveComponent(entity, id)
			model[entity].sig.Clear(id)

			if id == positionId {
				model[entity].pos = position{}
			}

		default:
			if len(dead) > 0 {
				// stale handles must never change anything
				m.AddComponent(dead[rng.IntN(len(dead))], frozenId, nil)
				m.DeleteEntity(dead[rng.IntN(len(dead))])
			}
		}

		require.Equal(t, len(model), m.EntityCount())

		for entity, expected := range model {
			require.Equal(t, expected.sig, m.EntitySignature(entity))

			loc, ok := m.LookupEntity(entity)
			require.True(t, ok)
			require.Equal(t, entity, loc.Archetype.EntityAt(loc.Row))

			for _, id := range components {
				require.Equal(t, expected.sig.Has(id), m.HasComponent(entity, id))
			}

			if expected.sig.Has(positionId) {
				require.Equal(t, expected.pos, *Get[position](m, entity, positionId))
			}
		}

		for _, entity := range dead {
			if _, alive := model[entity]; !alive {
				require.False(t, m.IsAlive(entity))
			}
		}
	}

	for _, archetype := range m.Archetypes() {
		require.NoError(t, archetype.CheckInvariants())
	}
}

func BenchmarkManager_AddRemoveComponent(b *testing.B) {
	m := newTestManager()

	entities := m.CreateEntities(1024, SignatureOf(positionId))

	for b.Loop() {
		for _, entity := range entities {
			Add(m, entity, velocityId, velocity{X: 1})
		}

		for _, entity := range entities {
			m.RemoveComponent(entity, velocityId)
		}
	}
}

func BenchmarkManager_CreateDelete(b *testing.B) {
	m := newTestManager()

	for b.Loop() {
		entities := m.CreateEntities(1024, SignatureOf(positionId, velocityId))
		m.DeleteEntities(entities)
	}
}
