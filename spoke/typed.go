package spoke

import (
	"fmt"
	"reflect"
	"unsafe"
)

// checkPointerFree panics if T holds Go pointers. Column memory is not
// scanned by the garbage collector, pointers stored there would dangle.
func checkPointerFree(ty reflect.Type) {
	if typeHasPointers(ty) {
		panic(fmt.Sprintf("type %s contains pointers and can not be stored in a component", ty))
	}
}

// CheckLayout panics if T can not hold values of the component type.
func CheckLayout[T any](info *ComponentInfo) {
	ty := reflect.TypeFor[T]()
	checkPointerFree(ty)

	if uint32(ty.Size()) != info.Size || uint32(ty.Align()) > max(info.Align, 1) {
		panic(fmt.Sprintf(
			"type %s (size %d, align %d) does not match component %s (size %d, align %d)",
			ty, ty.Size(), ty.Align(), info, info.Size, info.Align,
		))
	}
}

// As reinterprets the bytes of a component value as a *T.
// The slice must have been returned by Archetype.Component or Column.At.
func As[T any](value []byte) *T {
	if value == nil {
		return nil
	}

	checkPointerFree(reflect.TypeFor[T]())

	var zero T
	if uintptr(len(value)) != unsafe.Sizeof(zero) {
		panic(fmt.Sprintf("expected %d bytes for %T, got %d", unsafe.Sizeof(zero), zero, len(value)))
	}

	if len(value) == 0 {
		return new(T)
	}

	return (*T)(unsafe.Pointer(unsafe.SliceData(value)))
}

// BytesOf returns the memory of value as a byte slice, without copying.
func BytesOf[T any](value *T) []byte {
	size := unsafe.Sizeof(*value)
	if size == 0 {
		return []byte{}
	}

	return unsafe.Slice((*byte)(unsafe.Pointer(value)), size)
}

// ColumnOf returns the values of a component type in the archetype as a typed
// slice, indexed by row. It returns nil if the archetype does not contain the type.
// The slice aliases the column and is only valid until the next structural change.
func ColumnOf[T any](a *Archetype, id ComponentID) []T {
	idx := a.typeIndex(id)
	if idx < 0 {
		return nil
	}

	CheckLayout[T](a.Types[idx])

	column := a.columns[idx]
	if column == nil {
		// zero sized type, no memory is backing the slice
		return make([]T, a.Len())
	}

	if column.Len() == 0 {
		return nil
	}

	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(column.data))), column.Len())
}
