package tilecs

import (
	"fmt"

	"github.com/oliverbestmann/tilecs/internal/set"
	"github.com/oliverbestmann/tilecs/spoke"
)

type WatchKind uint8

const (
	// WatchEntered records entities that start matching the watcher.
	WatchEntered WatchKind = 1 << iota

	// WatchExited records entities that stop matching the watcher,
	// including matching entities that are deleted.
	WatchExited

	WatchBoth = WatchEntered | WatchExited
)

func (k WatchKind) String() string {
	switch k {
	case WatchEntered:
		return "Entered"
	case WatchExited:
		return "Exited"
	case WatchBoth:
		return "Both"
	default:
		return fmt.Sprintf("WatchKind(%d)", uint8(k))
	}
}

// Watcher collects entities whose membership in a group changes. An entity is
// a member if its signature contains all required and none of the rejected
// components. Entries accumulate until the caller clears or drains them.
type Watcher struct {
	required Signature
	rejected Signature
	kind     WatchKind

	// pool without columns, only holding entities
	pool *spoke.Archetype
}

func newWatcher(required, rejected Signature, kind WatchKind) *Watcher {
	return &Watcher{
		required: required,
		rejected: rejected,
		kind:     kind,
		pool:     spoke.NewArchetype(spoke.NoArchetype, Signature{}, nil),
	}
}

func (w *Watcher) Required() Signature {
	return w.required
}

func (w *Watcher) Rejected() Signature {
	return w.rejected
}

func (w *Watcher) Kind() WatchKind {
	return w.kind
}

// Entities returns the collected entities in the order they were recorded.
// The slice is only valid until the watcher is cleared or records the next entity.
func (w *Watcher) Entities() []Entity {
	return w.pool.Entities()
}

func (w *Watcher) Len() int {
	return w.pool.Len()
}

func (w *Watcher) Clear() {
	w.pool.Reset()
}

// Drain appends all collected entities to dst and clears the watcher.
func (w *Watcher) Drain(dst []Entity) []Entity {
	dst = append(dst, w.pool.Entities()...)
	w.pool.Reset()
	return dst
}

func (w *Watcher) String() string {
	return fmt.Sprintf("Watcher(%s, required=%s, rejected=%s)", w.kind, w.required, w.rejected)
}

func (w *Watcher) matches(sig Signature) bool {
	return sig.Matches(w.required, w.rejected)
}

// watcherIndex finds the watchers affected by a structural change
// without looking at every registered watcher.
type watcherIndex struct {
	watchers []*Watcher

	// onAdd[id] lists watchers whose membership may change when id is added:
	// entered watchers requiring id, exited watchers rejecting id.
	onAdd [][]int

	// onRemove[id] is the mirror of onAdd for removal of id.
	onRemove [][]int

	// universal lists watchers without required components. Only entity
	// creation and deletion can change their membership without touching
	// an indexed component.
	universal []int

	seen set.Dense
}

func (ix *watcherIndex) add(w *Watcher) {
	idx := len(ix.watchers)
	ix.watchers = append(ix.watchers, w)

	entered := w.kind&WatchEntered != 0
	exited := w.kind&WatchExited != 0

	for id := range w.required.IDs() {
		if entered {
			ix.onAdd = appendAt(ix.onAdd, id, idx)
		}

		if exited {
			ix.onRemove = appendAt(ix.onRemove, id, idx)
		}
	}

	for id := range w.rejected.IDs() {
		if exited {
			ix.onAdd = appendAt(ix.onAdd, id, idx)
		}

		if entered {
			ix.onRemove = appendAt(ix.onRemove, id, idx)
		}
	}

	if w.required.IsZero() {
		ix.universal = append(ix.universal, idx)
	}
}

func appendAt(lists [][]int, id ComponentID, idx int) [][]int {
	if int(id) >= len(lists) {
		grown := make([][]int, int(id)+1)
		copy(grown, lists)
		lists = grown
	}

	lists[id] = append(lists[id], idx)
	return lists
}

// signatureChange describes a structural change applied to a batch of
// entities sharing the same signatures.
type signatureChange struct {
	before        Signature
	after         Signature
	existedBefore bool
	existsAfter   bool
}

func (ix *watcherIndex) dispatch(entities []Entity, change signatureChange) {
	if len(ix.watchers) == 0 || len(entities) == 0 {
		return
	}

	var added, removed Signature

	switch {
	case change.existedBefore && change.existsAfter:
		added = change.after.AndNot(change.before)
		removed = change.before.AndNot(change.after)

	case change.existsAfter:
		added = change.after

	case change.existedBefore:
		removed = change.before

	default:
		return
	}

	ix.seen.Reset()

	for id := range added.IDs() {
		if int(id) < len(ix.onAdd) {
			ix.visit(ix.onAdd[id], entities, change)
		}
	}

	for id := range removed.IDs() {
		if int(id) < len(ix.onRemove) {
			ix.visit(ix.onRemove[id], entities, change)
		}
	}

	if !change.existedBefore || !change.existsAfter {
		ix.visit(ix.universal, entities, change)
	}
}

func (ix *watcherIndex) visit(candidates []int, entities []Entity, change signatureChange) {
	for _, idx := range candidates {
		if !ix.seen.Insert(idx) {
			continue
		}

		w := ix.watchers[idx]

		matchedBefore := change.existedBefore && w.matches(change.before)
		matchesAfter := change.existsAfter && w.matches(change.after)

		switch {
		case !matchedBefore && matchesAfter && w.kind&WatchEntered != 0:
			w.pool.AddNew(entities...)

		case matchedBefore && !matchesAfter && w.kind&WatchExited != 0:
			w.pool.AddNew(entities...)
		}
	}
}
