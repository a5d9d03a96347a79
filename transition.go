package tilecs

import (
	"fmt"

	"github.com/oliverbestmann/tilecs/spoke"
)

// transition is a structural change of one entity. Components in add are
// added, components in remove are removed. If value is set, it initializes
// the component valueId after the move.
type transition struct {
	add     Signature
	remove  Signature
	valueId ComponentID
	value   []byte
}

// AddComponent adds a component to an entity and initializes it with value.
// A nil value yields the zero value. If the entity already has the component,
// its value is overwritten in place. Stale handles are ignored.
func (m *Manager) AddComponent(entity Entity, id ComponentID, value []byte) {
	m.apply(entity, transition{
		add:     spoke.SignatureOf(id),
		valueId: id,
		value:   value,
	})
}

// RemoveComponent removes a component from an entity. Removing a component
// the entity does not have is a no-op.
func (m *Manager) RemoveComponent(entity Entity, id ComponentID) {
	m.apply(entity, transition{
		remove:  spoke.SignatureOf(id),
		valueId: NoPrototype,
	})
}

// AddSignature adds all components of sig in a single move. New components are zeroed.
func (m *Manager) AddSignature(entity Entity, sig Signature) {
	m.apply(entity, transition{add: sig, valueId: NoPrototype})
}

// RemoveSignature removes all components of sig in a single move.
func (m *Manager) RemoveSignature(entity Entity, sig Signature) {
	m.apply(entity, transition{remove: sig, valueId: NoPrototype})
}

func (m *Manager) validate(tr transition) {
	changed := tr.add.Or(tr.remove)

	if unknown := changed.AndNot(m.table.Known()); !unknown.IsZero() {
		panic(fmt.Sprintf("unknown components %s", unknown))
	}

	if prototypes := changed.And(m.table.PrototypeMask()); !prototypes.IsZero() {
		panic(fmt.Sprintf("prototype components %s can not be added or removed", prototypes))
	}

	if tr.value == nil || tr.valueId == NoPrototype {
		return
	}

	if info := m.table.Info(tr.valueId); int(info.Size) != len(tr.value) {
		panic(fmt.Sprintf("value for %s has %d bytes, expected %d", info, len(tr.value), info.Size))
	}
}

func (m *Manager) apply(entity Entity, tr transition) {
	m.validate(tr)

	entry, ok := m.directory.lookup(entity)
	if !ok {
		return
	}

	source := m.registry.Get(entry.archetype)

	target := source.Signature.Or(tr.add).AndNot(tr.remove)
	if target == source.Signature {
		// nothing moves, but an added value still overwrites the existing one
		if tr.value != nil && tr.valueId != NoPrototype {
			source.SetComponent(tr.valueId, entry.row, tr.value)
		}

		return
	}

	destination := m.resolve(source, target)

	row := destination.Import(source, entry.row, entity)

	if tr.value != nil && tr.valueId != NoPrototype && destination.ContainsType(tr.valueId) {
		destination.SetComponent(tr.valueId, row, tr.value)
	}

	m.removeRow(source, entry.row)
	m.directory.move(entity.ID, destination.Id, row)

	m.stats.Transitions += 1

	m.watchers.dispatch([]Entity{entity}, signatureChange{
		before:        source.Signature,
		after:         destination.Signature,
		existedBefore: true,
		existsAfter:   true,
	})
}

// resolve finds the destination archetype, using the cached transition
// edges for single component changes.
func (m *Manager) resolve(source *spoke.Archetype, target Signature) *spoke.Archetype {
	changed := source.Signature.Xor(target)

	if changed.Count() == 1 {
		for id := range changed.IDs() {
			if target.Has(id) {
				return m.registry.NextWith(source, id)
			}

			return m.registry.NextWithout(source, id)
		}
	}

	archetype, _ := m.registry.GetOrCreate(target)
	return archetype
}
