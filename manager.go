package tilecs

import (
	"fmt"
	"log/slog"

	"github.com/oliverbestmann/tilecs/internal/typedpool"
	"github.com/oliverbestmann/tilecs/spoke"
)

// Location is the physical position of an entity.
// It is only valid until the next structural change.
type Location struct {
	Archetype *spoke.Archetype
	Row       Row
}

// Manager owns all entities, their components and the archetype pools
// storing them.
type Manager struct {
	noCopy noCopy

	table     *spoke.ComponentTable
	registry  *spoke.Registry
	directory directory
	watchers  watcherIndex
	queries   queryCache

	logger *slog.Logger
	stats  Stats
}

var scratchEntities = typedpool.New(func(entities *[]Entity) {
	clear(*entities)
	*entities = (*entities)[:0]
})

// New creates a manager storing components described by table.
// The table can not be changed after the manager is created.
func New(table *spoke.ComponentTable, opts ...Options) *Manager {
	var options Options
	if len(opts) > 0 {
		options = opts[0]
	}

	options = options.withDefaults()

	m := &Manager{
		table:     table,
		registry:  spoke.NewRegistry(table),
		directory: newDirectory(options.MaxEntities, options.InitialCapacity),
		logger:    options.Logger,
	}

	m.registry.OnCreate(m.archetypeCreated)

	return m
}

func (m *Manager) archetypeCreated(archetype *spoke.Archetype) {
	m.logger.Debug(
		"New archetype registered",
		slog.Int("id", int(archetype.Id)),
		slog.String("archetype", archetype.String()),
	)

	m.queries.archetypeCreated(archetype)
}

// fatal logs and panics. It is used for states the caller is not expected
// to handle, like running out of entity ids. It is called before anything was
// modified, so a caller that recovers the panic can keep using the manager.
func (m *Manager) fatal(err error) {
	m.logger.Error("Entity manager failed", slog.String("err", err.Error()))
	panic(err)
}

func (m *Manager) Table() *spoke.ComponentTable {
	return m.table
}

// Archetypes returns all archetypes created so far, including empty ones.
func (m *Manager) Archetypes() []*spoke.Archetype {
	return m.registry.All()
}

func (m *Manager) Stats() Stats {
	stats := m.stats
	stats.Entities = m.directory.alive
	stats.Archetypes = m.registry.Len()
	stats.Watchers = len(m.watchers.watchers)
	return stats
}

// EntityCount returns the number of live entities.
func (m *Manager) EntityCount() int {
	return m.directory.alive
}

func (m *Manager) checkPrototype(prototype ComponentID) {
	if prototype == NoPrototype {
		return
	}

	if !m.table.Has(prototype) || !m.table.Info(prototype).PrototypeOnly {
		panic(fmt.Sprintf("component %d is not a prototype", prototype))
	}
}

func (m *Manager) allocate() Entity {
	entity, ok := m.directory.allocate()
	if !ok {
		m.fatal(fmt.Errorf("create entity with %d live entities: %w", m.directory.alive, ErrEntityLimitReached))
	}

	return entity
}

// CreateEntity creates an entity without components, tagged with the given
// prototype or NoPrototype. Running out of entity ids is fatal.
func (m *Manager) CreateEntity(prototype ComponentID) Entity {
	m.checkPrototype(prototype)

	entity := m.allocate()

	null := m.registry.Null()
	row := null.AddNew(entity)
	m.directory.place(entity.ID, null.Id, row, prototype)

	m.stats.Created += 1

	m.watchers.dispatch([]Entity{entity}, signatureChange{existsAfter: true})

	return entity
}

// CreateEntities creates count entities with zeroed components of the
// given signature. The destination archetype is resolved once.
func (m *Manager) CreateEntities(count int, sig Signature) []Entity {
	if count <= 0 {
		return nil
	}

	if available := m.directory.available(); available < count {
		m.fatal(fmt.Errorf("create %d entities, %d ids available: %w", count, available, ErrEntityLimitReached))
	}

	archetype, _ := m.registry.GetOrCreate(sig)

	entities := make([]Entity, count)
	for idx := range entities {
		entities[idx] = m.allocate()
	}

	start := archetype.AddNew(entities...)
	for idx, entity := range entities {
		m.directory.place(entity.ID, archetype.Id, start+Row(idx), NoPrototype)
	}

	m.stats.Created += count

	m.watchers.dispatch(entities, signatureChange{after: sig, existsAfter: true})

	return entities
}

// Clone creates count copies of an entity, each with the same components,
// values and prototype.
func (m *Manager) Clone(entity Entity, count int) ([]Entity, error) {
	// copy, the directory might grow while allocating
	entry, ok := m.directory.lookup(entity)
	if !ok {
		return nil, fmt.Errorf("clone %s: %w", entity, ErrInvalidEntity)
	}

	if count <= 0 {
		return nil, nil
	}

	if available := m.directory.available(); available < count {
		return nil, fmt.Errorf("clone %s %d times, %d ids available: %w", entity, count, available, ErrEntityLimitReached)
	}

	clones := make([]Entity, count)
	for idx := range clones {
		clones[idx] = m.allocate()
	}

	archetype := m.registry.Get(entry.archetype)

	start := archetype.CloneRow(entry.row, clones)
	for idx, clone := range clones {
		m.directory.place(clone.ID, archetype.Id, start+Row(idx), entry.prototype)
	}

	m.stats.Created += count

	m.watchers.dispatch(clones, signatureChange{after: archetype.Signature, existsAfter: true})

	return clones, nil
}

// DeleteEntity removes an entity and all its components.
// Null and stale handles are ignored.
func (m *Manager) DeleteEntity(entity Entity) {
	entry, ok := m.directory.lookup(entity)
	if !ok {
		return
	}

	archetype := m.registry.Get(entry.archetype)

	m.watchers.dispatch([]Entity{entity}, signatureChange{before: archetype.Signature, existedBefore: true})

	m.removeRow(archetype, entry.row)
	m.directory.release(entity.ID)

	m.stats.Deleted += 1
}

func (m *Manager) DeleteEntities(entities []Entity) {
	for _, entity := range entities {
		m.DeleteEntity(entity)
	}
}

// DeleteMatching deletes all entities having all required and none of the
// rejected components and returns the number of deleted entities.
func (m *Manager) DeleteMatching(required, rejected Signature) int {
	scratch := scratchEntities.Get()
	defer scratchEntities.Put(scratch)

	for _, archetype := range m.registry.All() {
		if archetype.Signature.Matches(required, rejected) {
			*scratch = append(*scratch, archetype.Entities()...)
		}
	}

	m.DeleteEntities(*scratch)

	return len(*scratch)
}

// removeRow swap-removes a row and fixes the location of the entity
// that moved into its place.
func (m *Manager) removeRow(archetype *spoke.Archetype, row Row) {
	if moved, ok := archetype.Remove(row); ok {
		m.directory.relocate(moved.ID, row)
	}
}

// LookupEntity returns the current location of a live entity.
func (m *Manager) LookupEntity(entity Entity) (Location, bool) {
	entry, ok := m.directory.lookup(entity)
	if !ok {
		return Location{}, false
	}

	return Location{
		Archetype: m.registry.Get(entry.archetype),
		Row:       entry.row,
	}, true
}

func (m *Manager) IsAlive(entity Entity) bool {
	_, ok := m.directory.lookup(entity)
	return ok
}

// Prototype returns the prototype the entity was created with.
func (m *Manager) Prototype(entity Entity) (ComponentID, bool) {
	entry, ok := m.directory.lookup(entity)
	if !ok {
		return NoPrototype, false
	}

	return entry.prototype, true
}

// EntitySignature returns the components of an entity. Stale handles
// yield an empty signature.
func (m *Manager) EntitySignature(entity Entity) Signature {
	entry, ok := m.directory.lookup(entity)
	if !ok {
		return Signature{}
	}

	return m.registry.Get(entry.archetype).Signature
}

func (m *Manager) HasComponent(entity Entity, id ComponentID) bool {
	return m.EntitySignature(entity).Has(id)
}

// GetComponent returns the bytes of a component value of an entity, or nil if
// the entity is stale or does not have the component. Writes to the slice
// change the component. The slice is only valid until the next structural change.
func (m *Manager) GetComponent(entity Entity, id ComponentID) []byte {
	entry, ok := m.directory.lookup(entity)
	if !ok {
		return nil
	}

	return m.registry.Get(entry.archetype).Component(id, entry.row)
}

// AddWatcher registers a watcher for the group of entities having all
// required and none of the rejected components. Only changes after this
// call are recorded.
func (m *Manager) AddWatcher(required, rejected Signature, kind WatchKind) *Watcher {
	if kind&WatchBoth == 0 || kind&^WatchBoth != 0 {
		panic(fmt.Sprintf("invalid watch kind %s", kind))
	}

	if overlap := required.And(rejected); !overlap.IsZero() {
		panic(fmt.Sprintf("components %s are both required and rejected", overlap))
	}

	watcher := newWatcher(required, rejected, kind)
	m.watchers.add(watcher)

	m.logger.Debug("Watcher registered", slog.String("watcher", watcher.String()))

	return watcher
}

// Query returns the archetypes holding entities with all required and none of
// the rejected components. The result stays up to date as new archetypes are created.
func (m *Manager) Query(required, rejected Signature) *Query {
	return m.queries.get(required, rejected, m.registry.All())
}
