// Package tilecs stores entities and their components in archetype pools.
//
// Every entity lives in exactly one archetype, the pool for its exact set of
// component types. Component values are plain data and are moved between
// pools by copying bytes, so adding or removing a component costs a copy of
// the entity's row, independent of the number of entities.
//
// A Manager is not safe for concurrent use. Slices and pointers returned by
// the Manager alias pool memory and are only valid until the next structural
// change (create, delete, add or remove of a component).
package tilecs

import (
	"github.com/oliverbestmann/tilecs/spoke"
)

type Entity = spoke.Entity

type EntityID = spoke.EntityID

type ComponentID = spoke.ComponentID

type Signature = spoke.Signature

type Row = spoke.Row

// NullEntity never refers to a live entity.
var NullEntity = spoke.NullEntity

// NoPrototype creates an entity without a prototype tag.
const NoPrototype = spoke.NoComponent

// SignatureOf returns a signature containing the given component ids.
func SignatureOf(ids ...ComponentID) Signature {
	return spoke.SignatureOf(ids...)
}
