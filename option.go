package tilecs

import (
	"log/slog"
)

// DefaultMaxEntities is the size of the entity id space if not configured otherwise.
const DefaultMaxEntities = 1<<24 - 1

// Options configure a Manager. The zero value is valid.
type Options struct {
	// MaxEntities is the highest entity id that will be handed out.
	// Running out of ids is fatal. Defaults to DefaultMaxEntities.
	MaxEntities int

	// InitialCapacity pre-allocates directory space for this many entities.
	InitialCapacity int

	// Logger receives debug output and a final message before a fatal panic.
	// Defaults to slog.Default().
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxEntities <= 0 || o.MaxEntities > int(^uint32(0)>>1) {
		o.MaxEntities = DefaultMaxEntities
	}

	if o.InitialCapacity < 0 {
		o.InitialCapacity = 0
	}

	if o.Logger == nil {
		o.Logger = slog.Default()
	}

	return o
}
