package tilecs

import (
	"github.com/oliverbestmann/tilecs/spoke"
)

// Add adds a component to an entity, initialized with value.
// T must match the size and alignment of the registered component.
func Add[T any](m *Manager, entity Entity, id ComponentID, value T) {
	spoke.CheckLayout[T](m.table.Info(id))
	m.AddComponent(entity, id, spoke.BytesOf(&value))
}

// Get returns a pointer to a component of an entity, or nil if the entity
// is stale or does not have the component. The pointer is only valid until
// the next structural change.
func Get[T any](m *Manager, entity Entity, id ComponentID) *T {
	spoke.CheckLayout[T](m.table.Info(id))
	return spoke.As[T](m.GetComponent(entity, id))
}

// Set overwrites an existing component of an entity. It returns false if the
// entity is stale or does not have the component.
func Set[T any](m *Manager, entity Entity, id ComponentID, value T) bool {
	target := Get[T](m, entity, id)
	if target == nil {
		return false
	}

	*target = value
	return true
}
