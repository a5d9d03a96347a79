package spoke

import (
	"fmt"
	"unsafe"

	"github.com/oliverbestmann/tilecs/internal/assert"
)

type Row uint32

// Column holds the values of one component type for every row of an archetype.
// Values are stored back to back with a stride of the component size, starting
// at an address aligned to the component alignment.
type Column struct {
	Info *ComponentInfo

	stride int
	align  int

	// data has a length of capacity*stride
	data []byte

	len int
}

func newColumn(info *ComponentInfo) *Column {
	return &Column{
		Info:   info,
		stride: int(info.Size),
		align:  int(max(info.Align, 1)),
	}
}

// alignedBytes allocates n zeroed bytes starting at an address aligned to align.
// The memory is backed by a []uint64, so it is at least 8 byte aligned and is
// never scanned by the garbage collector.
func alignedBytes(n, align int) []byte {
	if n == 0 {
		return nil
	}

	padding := max(align-8, 0)
	words := make([]uint64, (n+padding+7)/8)

	base := unsafe.Pointer(unsafe.SliceData(words))

	var offset uintptr
	if align > 8 {
		mask := uintptr(align - 1)
		offset = (uintptr(align) - uintptr(base)&mask) & mask
	}

	return unsafe.Slice((*byte)(unsafe.Add(base, offset)), n)
}

func (c *Column) Len() int {
	return c.len
}

// Cap returns the number of rows the column can hold before growing.
func (c *Column) Cap() int {
	if c.stride == 0 {
		return 0
	}

	return len(c.data) / c.stride
}

// Bytes returns the raw bytes of all rows. The slice is invalidated when the
// column grows.
func (c *Column) Bytes() []byte {
	return c.data[:c.len*c.stride]
}

// At returns the bytes of the value stored in the given row.
func (c *Column) At(row Row) []byte {
	assert.InRange(int(row), c.len, "row")

	offset := int(row) * c.stride
	return c.data[offset : offset+c.stride : offset+c.stride]
}

// Set copies value into the given row. A nil value resets the row to zero.
func (c *Column) Set(row Row, value []byte) {
	target := c.At(row)

	if value == nil {
		clear(target)
		return
	}

	if len(value) != c.stride {
		panic(fmt.Sprintf("component %s: expected %d bytes, got %d", c.Info, c.stride, len(value)))
	}

	copy(target, value)
}

func (c *Column) grow(capacity int) {
	data := alignedBytes(capacity*c.stride, c.align)
	copy(data, c.data[:c.len*c.stride])
	c.data = data
}

// extend appends n zeroed rows. The caller guarantees the capacity.
func (c *Column) extend(n int) {
	start := c.len * c.stride
	c.len += n
	clear(c.data[start : c.len*c.stride])
}

func (c *Column) copyRow(from, to Row) {
	copy(c.At(to), c.At(from))
}

func (c *Column) truncate(n int) {
	c.len = n
}
