package spoke

import (
	"fmt"
	"iter"
	"math/bits"
	"strconv"
	"strings"
)

const signatureWords = 4

// MaxComponentTypes is the number of distinct component ids a Signature can hold.
const MaxComponentTypes = signatureWords * 64

// Signature is a fixed width set of component ids. Two signatures describe
// the same archetype iff they are equal.
type Signature [signatureWords]uint64

// SignatureOf returns a signature containing the given ids.
func SignatureOf(ids ...ComponentID) Signature {
	var sig Signature
	for _, id := range ids {
		sig.Set(id)
	}

	return sig
}

func checkComponentID(id ComponentID) {
	if int(id) >= MaxComponentTypes {
		panic(fmt.Sprintf("component id %d exceeds maximum of %d", id, MaxComponentTypes-1))
	}
}

func (s *Signature) Set(id ComponentID) {
	checkComponentID(id)
	s[id>>6] |= uint64(1) << (id & 63)
}

func (s *Signature) Clear(id ComponentID) {
	checkComponentID(id)
	s[id>>6] &^= uint64(1) << (id & 63)
}

// With returns a copy of the signature with id added.
func (s Signature) With(id ComponentID) Signature {
	s.Set(id)
	return s
}

// Without returns a copy of the signature with id removed.
func (s Signature) Without(id ComponentID) Signature {
	s.Clear(id)
	return s
}

func (s Signature) Has(id ComponentID) bool {
	if int(id) >= MaxComponentTypes {
		return false
	}

	return s[id>>6]&(uint64(1)<<(id&63)) != 0
}

// HasAll returns true if every id in other is also in s.
func (s Signature) HasAll(other Signature) bool {
	return s[0]&other[0] == other[0] &&
		s[1]&other[1] == other[1] &&
		s[2]&other[2] == other[2] &&
		s[3]&other[3] == other[3]
}

// HasNone returns true if s and other have no id in common.
func (s Signature) HasNone(other Signature) bool {
	return s[0]&other[0] == 0 &&
		s[1]&other[1] == 0 &&
		s[2]&other[2] == 0 &&
		s[3]&other[3] == 0
}

// Matches is the group predicate: all of required and none of rejected.
func (s Signature) Matches(required, rejected Signature) bool {
	return s.HasAll(required) && s.HasNone(rejected)
}

func (s Signature) Or(other Signature) Signature {
	for i := range s {
		s[i] |= other[i]
	}

	return s
}

func (s Signature) And(other Signature) Signature {
	for i := range s {
		s[i] &= other[i]
	}

	return s
}

func (s Signature) AndNot(other Signature) Signature {
	for i := range s {
		s[i] &^= other[i]
	}

	return s
}

func (s Signature) Xor(other Signature) Signature {
	for i := range s {
		s[i] ^= other[i]
	}

	return s
}

func (s Signature) IsZero() bool {
	return s[0] == 0 && s[1] == 0 && s[2] == 0 && s[3] == 0
}

func (s Signature) Count() int {
	return bits.OnesCount64(s[0]) +
		bits.OnesCount64(s[1]) +
		bits.OnesCount64(s[2]) +
		bits.OnesCount64(s[3])
}

// IDs yields the ids in the signature in ascending order.
func (s Signature) IDs() iter.Seq[ComponentID] {
	return func(yield func(ComponentID) bool) {
		for wordIdx, word := range s {
			for word != 0 {
				bit := bits.TrailingZeros64(word)
				if !yield(ComponentID(wordIdx*64 + bit)) {
					return
				}

				// clear the lowest set bit
				word &= word - 1
			}
		}
	}
}

func (s Signature) String() string {
	var value strings.Builder

	value.WriteString("{")
	for id := range s.IDs() {
		if value.Len() > 1 {
			value.WriteString(", ")
		}

		value.WriteString(strconv.Itoa(int(id)))
	}
	value.WriteString("}")

	return value.String()
}
