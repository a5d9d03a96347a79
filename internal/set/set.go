package set

// Dense is a set of small integers that can be emptied in O(1).
// Every slot stores the generation it was inserted in; a slot is in the set
// only if its stamp matches the current generation.
type Dense struct {
	stamps     []uint32
	generation uint32
}

// Reset removes all values.
func (s *Dense) Reset() {
	s.generation += 1

	if s.generation == 0 {
		// stamps from 2^32 generations ago would look current again
		clear(s.stamps)
		s.generation = 1
	}
}

// Insert adds value and reports whether it was not present before.
func (s *Dense) Insert(value int) bool {
	if s.generation == 0 {
		s.generation = 1
	}

	if value >= len(s.stamps) {
		stamps := make([]uint32, max(value+1, 2*len(s.stamps)))
		copy(stamps, s.stamps)
		s.stamps = stamps
	}

	if s.stamps[value] == s.generation {
		return false
	}

	s.stamps[value] = s.generation
	return true
}

func (s *Dense) Has(value int) bool {
	return s.generation != 0 &&
		value < len(s.stamps) &&
		s.stamps[value] == s.generation
}
