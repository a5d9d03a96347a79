package spoke

import (
	"fmt"
	"log/slog"
	"math"
	"math/bits"
	"reflect"
)

// ComponentID identifies a component type. Valid ids are below MaxComponentTypes.
type ComponentID uint16

// NoComponent is never a registered component id.
const NoComponent ComponentID = math.MaxUint16

const maxComponentAlign = 4096

// ComponentInfo describes the memory layout of a component type.
// Components are plain data: values are moved between archetypes by copying
// their bytes, so a component must not hold Go pointers or own resources.
type ComponentInfo struct {
	ID    ComponentID
	Size  uint32
	Align uint32
	Name  string

	// PrototypeOnly marks types that describe spawn time defaults. They are
	// never part of a live signature and have no column storage.
	PrototypeOnly bool
}

func (c *ComponentInfo) String() string {
	return c.Name
}

// Describe derives a ComponentInfo from the Go type T.
// It panics if T contains pointers.
func Describe[T any](id ComponentID, name string) ComponentInfo {
	ty := reflect.TypeFor[T]()

	if name == "" {
		name = ty.String()
	}

	if typeHasPointers(ty) {
		panic(fmt.Sprintf("component %s of type %s contains pointers", name, ty))
	}

	return ComponentInfo{
		ID:    id,
		Size:  uint32(ty.Size()),
		Align: uint32(ty.Align()),
		Name:  name,
	}
}

// DescribePrototype is like Describe but marks the type as prototype only.
func DescribePrototype[T any](id ComponentID, name string) ComponentInfo {
	info := Describe[T](id, name)
	info.PrototypeOnly = true
	return info
}

func typeHasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.String, reflect.Slice,
		reflect.Map, reflect.Chan, reflect.Func, reflect.Interface:
		return true

	case reflect.Array:
		return t.Len() > 0 && typeHasPointers(t.Elem())

	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if typeHasPointers(t.Field(i).Type) {
				return true
			}
		}

		return false

	default:
		return false
	}
}

// ComponentTable holds the layout of every component type known to a world.
// It is immutable once built.
type ComponentTable struct {
	infos      []ComponentInfo
	known      Signature
	prototypes Signature
	byName     map[string]ComponentID
}

// NewComponentTable validates the given descriptors and builds a table from them.
// Ids do not need to be dense, but must be unique and below MaxComponentTypes.
func NewComponentTable(infos []ComponentInfo) (*ComponentTable, error) {
	table := &ComponentTable{
		byName: map[string]ComponentID{},
	}

	for _, info := range infos {
		if err := validateComponentInfo(info); err != nil {
			return nil, err
		}

		if table.known.Has(info.ID) {
			return nil, fmt.Errorf("component %q: duplicate id %d", info.Name, info.ID)
		}

		if info.Name != "" {
			if _, exists := table.byName[info.Name]; exists {
				return nil, fmt.Errorf("component %q: duplicate name", info.Name)
			}

			table.byName[info.Name] = info.ID
		}

		if info.Align == 0 {
			info.Align = 1
		}

		if int(info.ID) >= len(table.infos) {
			table.infos = append(table.infos, make([]ComponentInfo, int(info.ID)+1-len(table.infos))...)
		}

		table.infos[info.ID] = info
		table.known.Set(info.ID)

		if info.PrototypeOnly {
			table.prototypes.Set(info.ID)
		}

		slog.Debug(
			"Component type registered",
			slog.String("name", info.Name),
			slog.Int("id", int(info.ID)),
			slog.Int("size", int(info.Size)),
			slog.Int("align", int(info.Align)),
			slog.Bool("prototypeOnly", info.PrototypeOnly),
		)
	}

	return table, nil
}

// MustComponentTable is like NewComponentTable but panics on invalid input.
func MustComponentTable(infos ...ComponentInfo) *ComponentTable {
	table, err := NewComponentTable(infos)
	if err != nil {
		panic(err)
	}

	return table
}

func validateComponentInfo(info ComponentInfo) error {
	if int(info.ID) >= MaxComponentTypes {
		return fmt.Errorf("component %q: id %d exceeds maximum of %d", info.Name, info.ID, MaxComponentTypes-1)
	}

	align := max(info.Align, 1)
	if bits.OnesCount32(align) != 1 || align > maxComponentAlign {
		return fmt.Errorf("component %q: invalid alignment %d", info.Name, info.Align)
	}

	if info.Size%align != 0 {
		return fmt.Errorf("component %q: size %d is not a multiple of alignment %d", info.Name, info.Size, align)
	}

	return nil
}

// Info returns the descriptor of a registered component. It panics on unknown ids.
func (t *ComponentTable) Info(id ComponentID) *ComponentInfo {
	if !t.known.Has(id) {
		panic(fmt.Sprintf("unknown component id %d", id))
	}

	return &t.infos[id]
}

func (t *ComponentTable) Has(id ComponentID) bool {
	return t.known.Has(id)
}

// Lookup finds a component id by its registered name.
func (t *ComponentTable) Lookup(name string) (ComponentID, bool) {
	id, ok := t.byName[name]
	return id, ok
}

// Len returns the number of registered component types.
func (t *ComponentTable) Len() int {
	return t.known.Count()
}

// Known returns the signature of all registered component types.
func (t *ComponentTable) Known() Signature {
	return t.known
}

// PrototypeMask returns the signature of the prototype only component types.
func (t *ComponentTable) PrototypeMask() Signature {
	return t.prototypes
}

// LiveMask returns the signature of component types that may be stored on entities.
func (t *ComponentTable) LiveMask() Signature {
	return t.known.AndNot(t.prototypes)
}

// MaxID returns one past the highest registered component id.
func (t *ComponentTable) MaxID() int {
	return len(t.infos)
}
