package spoke

import (
	"fmt"
	"math"
	"math/bits"
	"strings"

	"github.com/oliverbestmann/tilecs/internal/assert"
)

type ArchetypeId uint32

// NoArchetype is never the id of a registered archetype.
const NoArchetype ArchetypeId = math.MaxUint32

// Archetype stores all entities sharing one exact Signature. Every component
// type of the signature has one column, all columns are indexed by the same row.
// Rows are not stable: removing a row moves the last row into its place.
type Archetype struct {
	Id        ArchetypeId
	Signature Signature

	// Types holds the component types of the signature in ascending id order.
	Types []*ComponentInfo

	// prefix[w] is the number of component ids set in signature words before w.
	// Together with a popcount this gives the position of a type in Types in O(1).
	prefix [signatureWords]uint16

	// columns is parallel to Types. Zero sized types have no column.
	columns []*Column

	entities []Entity
	cap      int
}

// NewArchetype builds an empty archetype for the given signature.
// Pass a nil table only for an empty signature.
func NewArchetype(id ArchetypeId, sig Signature, table *ComponentTable) *Archetype {
	a := &Archetype{
		Id:        id,
		Signature: sig,
	}

	var count uint16
	for idx, word := range sig {
		a.prefix[idx] = count
		count += uint16(bits.OnesCount64(word))
	}

	for componentId := range sig.IDs() {
		info := table.Info(componentId)
		assert.That(!info.PrototypeOnly, "prototype only component %s can not be stored", info)

		a.Types = append(a.Types, info)

		var column *Column
		if info.Size > 0 {
			column = newColumn(info)
		}

		a.columns = append(a.columns, column)
	}

	return a
}

func (a *Archetype) String() string {
	var value strings.Builder

	value.WriteString("Archetype(")
	for idx, ty := range a.Types {
		if idx > 0 {
			value.WriteString(", ")
		}

		value.WriteString(ty.String())
	}

	value.WriteString(")")

	return value.String()
}

// typeIndex returns the position of the component in Types, or -1.
func (a *Archetype) typeIndex(id ComponentID) int {
	if !a.Signature.Has(id) {
		return -1
	}

	word, bit := id>>6, id&63
	below := a.Signature[word] & (uint64(1)<<bit - 1)
	return int(a.prefix[word]) + bits.OnesCount64(below)
}

func (a *Archetype) ContainsType(id ComponentID) bool {
	return a.Signature.Has(id)
}

// Len returns the number of rows.
func (a *Archetype) Len() int {
	return len(a.entities)
}

// Cap returns the number of rows that fit before the next growth.
func (a *Archetype) Cap() int {
	return a.cap
}

// Entities returns the entity of every row. The slice must not be modified and
// is only valid until the next structural change of the archetype.
func (a *Archetype) Entities() []Entity {
	return a.entities
}

func (a *Archetype) EntityAt(row Row) Entity {
	assert.InRange(int(row), len(a.entities), "row")
	return a.entities[row]
}

// Column returns the column of a component type, or nil if the archetype does
// not contain the type or the type is zero sized.
func (a *Archetype) Column(id ComponentID) *Column {
	idx := a.typeIndex(id)
	if idx < 0 {
		return nil
	}

	return a.columns[idx]
}

// Component returns the bytes of a component value in the given row, or nil if
// the archetype does not contain the component. Zero sized components yield an
// empty, non nil slice. The slice is only valid until the next structural change.
func (a *Archetype) Component(id ComponentID, row Row) []byte {
	idx := a.typeIndex(id)
	if idx < 0 {
		return nil
	}

	column := a.columns[idx]
	if column == nil {
		assert.InRange(int(row), len(a.entities), "row")
		return []byte{}
	}

	return column.At(row)
}

// SetComponent copies value into the component of the given row.
// A nil value resets the component to its zero value.
func (a *Archetype) SetComponent(id ComponentID, row Row, value []byte) {
	idx := a.typeIndex(id)
	assert.That(idx >= 0, "%s does not contain component %d", a, id)

	if column := a.columns[idx]; column != nil {
		column.Set(row, value)
	}
}

// reserve makes room for n more rows. All columns grow together.
func (a *Archetype) reserve(n int) {
	required := len(a.entities) + n
	if required <= a.cap {
		return
	}

	capacity := max(a.cap*2, required)

	entities := make([]Entity, len(a.entities), capacity)
	copy(entities, a.entities)
	a.entities = entities

	for _, column := range a.columns {
		if column != nil {
			column.grow(capacity)
		}
	}

	a.cap = capacity
}

// AddNew appends one zeroed row per entity and returns the first new row.
func (a *Archetype) AddNew(entities ...Entity) Row {
	start := Row(len(a.entities))

	a.reserve(len(entities))
	a.entities = append(a.entities, entities...)

	for _, column := range a.columns {
		if column != nil {
			column.extend(len(entities))
		}
	}

	assert.Invariants(a.CheckInvariants)

	return start
}

// Remove deletes a row by moving the last row into its place. If a row was
// moved, its entity is returned with ok set to true so the caller can update
// the entity's location.
func (a *Archetype) Remove(row Row) (moved Entity, ok bool) {
	assert.InRange(int(row), len(a.entities), "row")

	last := Row(len(a.entities) - 1)

	if row != last {
		moved = a.entities[last]
		a.entities[row] = moved

		for _, column := range a.columns {
			if column != nil {
				column.copyRow(last, row)
			}
		}

		ok = true
	}

	a.entities[last] = Entity{}
	a.entities = a.entities[:last]

	for _, column := range a.columns {
		if column != nil {
			column.truncate(int(last))
		}
	}

	assert.Invariants(a.CheckInvariants)

	return moved, ok
}

// Import appends a row for entity and copies the values of all component
// types shared with the source row. Types only present in a stay zeroed.
// The source row is not removed.
func (a *Archetype) Import(source *Archetype, sourceRow Row, entity Entity) Row {
	assert.InRange(int(sourceRow), source.Len(), "source row")

	row := a.AddNew(entity)

	shared := a.Signature.And(source.Signature)
	for componentId := range shared.IDs() {
		target := a.columns[a.typeIndex(componentId)]
		if target == nil {
			continue
		}

		from := source.columns[source.typeIndex(componentId)]
		copy(target.At(row), from.At(sourceRow))
	}

	return row
}

// CloneRow appends one row per entity, each a copy of the given row.
// Returns the first new row.
func (a *Archetype) CloneRow(row Row, entities []Entity) Row {
	assert.InRange(int(row), a.Len(), "row")

	start := a.AddNew(entities...)

	for _, column := range a.columns {
		if column == nil {
			continue
		}

		source := column.At(row)
		for idx := range entities {
			copy(column.At(start+Row(idx)), source)
		}
	}

	return start
}

// Reset removes all rows but keeps the allocated memory.
func (a *Archetype) Reset() {
	clear(a.entities)
	a.entities = a.entities[:0]

	for _, column := range a.columns {
		if column != nil {
			column.truncate(0)
		}
	}
}

// CheckInvariants verifies that all columns agree on the number of rows.
func (a *Archetype) CheckInvariants() error {
	entityCount := len(a.entities)

	if a.cap < entityCount {
		return fmt.Errorf("%s: capacity %d below row count %d", a, a.cap, entityCount)
	}

	for idx, column := range a.columns {
		if column == nil {
			continue
		}

		if column.Len() != entityCount {
			return fmt.Errorf("%s: expected %d values in column %s, got %d", a, entityCount, a.Types[idx], column.Len())
		}

		if column.Cap() != a.cap {
			return fmt.Errorf("%s: column %s has capacity %d, expected %d", a, a.Types[idx], column.Cap(), a.cap)
		}
	}

	return nil
}
