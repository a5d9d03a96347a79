package spoke

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Registry maps signatures to archetypes. Archetypes are created on first use
// and live as long as the registry, so their ids and pointers stay valid.
type Registry struct {
	table      *ComponentTable
	archetypes []*Archetype
	buckets    map[uint64][]ArchetypeId
	graph      ArchetypeGraph
	onCreate   []func(*Archetype)

	// hash is replaceable so tests can force collisions.
	hash func(Signature) uint64
}

// NewRegistry creates a registry holding only the null archetype with an empty signature.
func NewRegistry(table *ComponentTable) *Registry {
	r := &Registry{
		table:   table,
		buckets: map[uint64][]ArchetypeId{},
		hash:    hashSignature,
	}

	r.GetOrCreate(Signature{})

	return r
}

func hashSignature(sig Signature) uint64 {
	var buf [signatureWords * 8]byte
	for idx, word := range sig {
		binary.LittleEndian.PutUint64(buf[idx*8:], word)
	}

	return xxhash.Sum64(buf[:])
}

func (r *Registry) Table() *ComponentTable {
	return r.table
}

// Null returns the archetype with the empty signature.
func (r *Registry) Null() *Archetype {
	return r.archetypes[0]
}

// OnCreate registers a callback that runs for every archetype created after this call.
func (r *Registry) OnCreate(fn func(*Archetype)) {
	r.onCreate = append(r.onCreate, fn)
}

// Lookup returns the archetype for the signature, if it exists.
func (r *Registry) Lookup(sig Signature) (*Archetype, bool) {
	for _, id := range r.buckets[r.hash(sig)] {
		if archetype := r.archetypes[id]; archetype.Signature == sig {
			return archetype, true
		}
	}

	return nil, false
}

// GetOrCreate returns the archetype for the signature, creating it if needed.
// The second return value reports whether the archetype was created.
func (r *Registry) GetOrCreate(sig Signature) (*Archetype, bool) {
	hash := r.hash(sig)

	for _, id := range r.buckets[hash] {
		if archetype := r.archetypes[id]; archetype.Signature == sig {
			return archetype, false
		}
	}

	if invalid := sig.AndNot(r.table.LiveMask()); !invalid.IsZero() {
		panic(fmt.Sprintf("signature %s contains unknown or prototype only components %s", sig, invalid))
	}

	archetype := NewArchetype(ArchetypeId(len(r.archetypes)), sig, r.table)

	r.archetypes = append(r.archetypes, archetype)
	r.buckets[hash] = append(r.buckets[hash], archetype.Id)

	for _, fn := range r.onCreate {
		fn(archetype)
	}

	return archetype, true
}

// Get returns the archetype with the given id. It panics on unknown ids.
func (r *Registry) Get(id ArchetypeId) *Archetype {
	if int(id) >= len(r.archetypes) {
		panic(fmt.Sprintf("unknown archetype id %d", id))
	}

	return r.archetypes[id]
}

// All returns every archetype in creation order. The slice must not be modified.
func (r *Registry) All() []*Archetype {
	return r.archetypes
}

func (r *Registry) Len() int {
	return len(r.archetypes)
}

// NextWith returns the archetype reached by adding a component to current.
func (r *Registry) NextWith(current *Archetype, id ComponentID) *Archetype {
	return r.graph.next(r, current, id, true)
}

// NextWithout returns the archetype reached by removing a component from current.
func (r *Registry) NextWithout(current *Archetype, id ComponentID) *Archetype {
	return r.graph.next(r, current, id, false)
}
