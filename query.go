package tilecs

import (
	"iter"
	"weak"

	"github.com/oliverbestmann/tilecs/spoke"
)

// Query is a cached list of archetypes matching a required and rejected
// signature. Archetypes created later are added automatically.
type Query struct {
	required Signature
	rejected Signature

	archetypes []*spoke.Archetype
}

func (q *Query) Required() Signature {
	return q.required
}

func (q *Query) Rejected() Signature {
	return q.rejected
}

// Matches reports whether entities with the given signature are matched by the query.
func (q *Query) Matches(sig Signature) bool {
	return sig.Matches(q.required, q.rejected)
}

// Archetypes yields all matching archetypes that currently hold entities.
func (q *Query) Archetypes() iter.Seq[*spoke.Archetype] {
	return func(yield func(*spoke.Archetype) bool) {
		for _, archetype := range q.archetypes {
			if archetype.Len() == 0 {
				continue
			}

			if !yield(archetype) {
				return
			}
		}
	}
}

// Entities yields every matching entity. Structural changes are not allowed
// during iteration, queue them with Commands instead.
func (q *Query) Entities() iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		for archetype := range q.Archetypes() {
			for _, entity := range archetype.Entities() {
				if !yield(entity) {
					return
				}
			}
		}
	}
}

// Count returns the number of matching entities.
func (q *Query) Count() int {
	var count int
	for _, archetype := range q.archetypes {
		count += archetype.Len()
	}

	return count
}

// queryCache keeps queries up to date without keeping them alive.
type queryCache struct {
	queries []weak.Pointer[Query]
}

func (qc *queryCache) get(required, rejected Signature, archetypes []*spoke.Archetype) *Query {
	qc.prune()

	for _, weakQuery := range qc.queries {
		query := weakQuery.Value()
		if query != nil && query.required == required && query.rejected == rejected {
			return query
		}
	}

	query := &Query{
		required: required,
		rejected: rejected,
	}

	for _, archetype := range archetypes {
		if query.Matches(archetype.Signature) {
			query.archetypes = append(query.archetypes, archetype)
		}
	}

	qc.queries = append(qc.queries, weak.Make(query))

	return query
}

func (qc *queryCache) archetypeCreated(archetype *spoke.Archetype) {
	qc.prune()

	for _, weakQuery := range qc.queries {
		if query := weakQuery.Value(); query != nil && query.Matches(archetype.Signature) {
			query.archetypes = append(query.archetypes, archetype)
		}
	}
}

// prune drops queries that were garbage collected.
func (qc *queryCache) prune() {
	// reuse slice memory
	alive := qc.queries[:0]

	for _, weakQuery := range qc.queries {
		if weakQuery.Value() != nil {
			alive = append(alive, weakQuery)
		}
	}

	clear(qc.queries[len(alive):])
	qc.queries = alive
}

// len returns the number of cached queries, including collected ones
// not yet pruned.
func (qc *queryCache) len() int {
	return len(qc.queries)
}
