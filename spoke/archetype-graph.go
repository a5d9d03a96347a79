package spoke

// ArchetypeGraph caches single component transitions between archetypes,
// so repeatedly adding or removing the same component skips the signature lookup.
type ArchetypeGraph struct {
	transitions map[ArchetypeTransition]ArchetypeId
}

type ArchetypeTransition struct {
	Archetype ArchetypeId
	Component ComponentID
	IsInsert  bool
}

func (g *ArchetypeGraph) next(r *Registry, current *Archetype, id ComponentID, insert bool) *Archetype {
	tr := ArchetypeTransition{
		Archetype: current.Id,
		Component: id,
		IsInsert:  insert,
	}

	if next, ok := g.transitions[tr]; ok {
		return r.archetypes[next]
	}

	sig := current.Signature.Without(id)
	if insert {
		sig = current.Signature.With(id)
	}

	next, _ := r.GetOrCreate(sig)

	if g.transitions == nil {
		g.transitions = map[ArchetypeTransition]ArchetypeId{}
	}

	g.transitions[tr] = next.Id

	return next
}

// Len returns the number of cached transitions.
func (g *ArchetypeGraph) Len() int {
	return len(g.transitions)
}
