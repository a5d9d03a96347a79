package spoke

import (
	"log/slog"
	"strconv"
)

// EntityID indexes the entity directory. The id 0 is reserved for the null entity.
type EntityID uint32

const NullEntityID EntityID = 0

func (e EntityID) String() string {
	return strconv.Itoa(int(e))
}

func (e EntityID) LogValue() slog.Value {
	return slog.StringValue(e.String())
}

// Entity is a handle to an entity. The Version is bumped every time the id is
// reused, which makes handles to a destroyed entity detectably stale.
type Entity struct {
	ID      EntityID
	Version uint32
}

// NullEntity never refers to a live entity.
var NullEntity = Entity{}

func (e Entity) IsNull() bool {
	return e.ID == NullEntityID
}

func (e Entity) String() string {
	return strconv.Itoa(int(e.ID)) + "v" + strconv.FormatUint(uint64(e.Version), 10)
}

func (e Entity) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("id", int(e.ID)),
		slog.Int("version", int(e.Version)),
	)
}
