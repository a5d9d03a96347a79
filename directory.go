package tilecs

import (
	"github.com/oliverbestmann/tilecs/spoke"
)

// directoryEntry is the location of one entity id. A free id has no archetype
// and keeps the version the next entity using the id will get.
type directoryEntry struct {
	version   uint32
	archetype spoke.ArchetypeId
	row       spoke.Row
	prototype ComponentID
}

func (e *directoryEntry) alive() bool {
	return e.archetype != spoke.NoArchetype
}

// directory maps entity ids to their location and recycles ids.
// Index 0 belongs to the null entity and is never handed out.
type directory struct {
	entries []directoryEntry
	free    []EntityID
	max     int
	alive   int
}

func newDirectory(maxEntities, initialCapacity int) directory {
	entries := make([]directoryEntry, 1, min(initialCapacity, maxEntities)+1)
	entries[0] = directoryEntry{archetype: spoke.NoArchetype}

	return directory{
		entries: entries,
		max:     maxEntities,
	}
}

// available returns how many entities can still be allocated.
func (d *directory) available() int {
	return len(d.free) + d.max - (len(d.entries) - 1)
}

// allocate hands out an unused id, preferring recycled ones.
// The entity is not alive until placed.
func (d *directory) allocate() (Entity, bool) {
	if n := len(d.free); n > 0 {
		id := d.free[n-1]
		d.free = d.free[:n-1]
		return Entity{ID: id, Version: d.entries[id].version}, true
	}

	if len(d.entries) > d.max {
		return NullEntity, false
	}

	id := EntityID(len(d.entries))
	d.entries = append(d.entries, directoryEntry{version: 1, archetype: spoke.NoArchetype})

	return Entity{ID: id, Version: 1}, true
}

// place marks a freshly allocated entity alive at the given location.
func (d *directory) place(id EntityID, archetype spoke.ArchetypeId, row spoke.Row, prototype ComponentID) {
	entry := &d.entries[id]
	entry.archetype = archetype
	entry.row = row
	entry.prototype = prototype
	d.alive += 1
}

// lookup returns a copy of the entry of a live entity. Stale and null handles
// report false. This is the only guard against use after free.
func (d *directory) lookup(entity Entity) (directoryEntry, bool) {
	if entity.ID == spoke.NullEntityID || int(entity.ID) >= len(d.entries) {
		return directoryEntry{}, false
	}

	entry := d.entries[entity.ID]
	if !entry.alive() || entry.version != entity.Version {
		return directoryEntry{}, false
	}

	return entry, true
}

func (d *directory) move(id EntityID, archetype spoke.ArchetypeId, row spoke.Row) {
	entry := &d.entries[id]
	entry.archetype = archetype
	entry.row = row
}

// relocate updates the row of an entity that was moved within its archetype.
func (d *directory) relocate(id EntityID, row spoke.Row) {
	d.entries[id].row = row
}

// release frees an id and invalidates all handles to it.
func (d *directory) release(id EntityID) {
	entry := &d.entries[id]
	entry.archetype = spoke.NoArchetype
	entry.row = 0
	entry.prototype = NoPrototype

	entry.version += 1
	if entry.version == 0 {
		// wrapped around, zero is never a valid version
		entry.version = 1
	}

	d.free = append(d.free, id)
	d.alive -= 1
}
