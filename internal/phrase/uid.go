// Package phrase implements the 64-bit content-addressed phrase/word uid
// scheme shared by the language model, translation model, and reordering
// model: a commutative-free hash combinator plus the sentinel-shift rule
// from spec.md §3, grounded on
// original_source/inc/server/common/models/phrase_uid.hpp.
package phrase

import "strings"

// UID is a 64-bit content hash of a source/target phrase, or of a single
// token when used as a word uid.
type UID uint64

const (
	// Undefined is the reserved "no phrase" sentinel.
	Undefined UID = 0
	// Unknown is the reserved "out of vocabulary" sentinel.
	Unknown UID = Undefined + 1
	// MinValid is the smallest uid value a real hash is allowed to take;
	// any natural hash colliding with a sentinel is shifted above it.
	MinValid UID = Unknown + 1
)

// fnvOffset and fnvPrime are the 64-bit FNV-1a constants used as the base
// string hash; the mixing step below is what actually defines phrase
// identity, not the choice of string hash.
const (
	fnvOffset uint64 = 14695981039346656037
	fnvPrime  uint64 = 1099511628211
)

// hashString computes a 64-bit FNV-1a hash of s.
func hashString(s string) uint64 {
	h := fnvOffset
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime
	}
	return h
}

// mix is a 64-bit avalanche mix (splitmix64 finalizer) that Combine uses to
// merge two uids; a single token's uid is its FNV-1a hash, shifted, with no
// mix applied. It must not be
// commutative so that combine(a, b) != combine(b, a) in general, matching
// the contract in spec.md §4.3.
func mix(a, b uint64) uint64 {
	x := a ^ (b + 0x9E3779B97F4A7C15 + (a << 6) + (a >> 2))
	x ^= x >> 33
	x *= 0xFF51AFD7ED558CCD
	x ^= x >> 33
	x *= 0xC4CEB9FE1A85EC53
	x ^= x >> 33
	return x
}

// shift moves a raw hash value above the sentinel range if it happens to
// collide with one of Undefined/Unknown.
func shift(raw uint64) UID {
	u := UID(raw)
	if u < MinValid {
		u += MinValid
	}
	return u
}

// Combine merges two uids into one, in the same argument order as the
// original's get_phrase_uid(p1_uid, p2_uid) = combine_hash(p2_uid, p1_uid):
// the second argument is mixed first. This is the single combinator used
// both for multi-token phrase uids and for m-gram hash reuse in the LM.
//
// Undefined marks "no prior phrase", not a real hash of zero, so combining
// onto it is a pass-through rather than a mix: Combine(Undefined, p2) ==
// shift(p2), the base case spec.md §8 scenario 6 describes for a single
// token's uid.
func Combine(p1, p2 UID) UID {
	if p1 == Undefined {
		return shift(uint64(p2))
	}
	return shift(mix(uint64(p2), uint64(p1)))
}

// OfToken computes the uid of a single token (treated as one atomic word),
// per spec.md §8 scenario 6: combine(UNDEFINED_PHRASE_ID, hash(token))
// after sentinel-shifting.
func OfToken(token string) UID {
	return Combine(Undefined, UID(hashString(token)))
}

// OfPhrase computes the uid of a whitespace-separated phrase by folding
// OfToken over each token left to right with Combine, matching
// get_phrase_uid<false> in the original.
func OfPhrase(phrase string) UID {
	tokens := strings.Fields(phrase)
	if len(tokens) == 0 {
		return shift(hashString(""))
	}
	uid := OfToken(tokens[0])
	for _, tok := range tokens[1:] {
		uid = Combine(uid, OfToken(tok))
	}
	return uid
}

// OfTokens is the slice-input equivalent of OfPhrase, used by the decoder
// when it already has a tokenised sentence and wants the uid of the span
// [begin, end] (inclusive) without re-joining into a string.
func OfTokens(tokens []string, begin, end int) UID {
	if begin > end || begin < 0 || end >= len(tokens) {
		return Undefined
	}
	uid := OfToken(tokens[begin])
	for i := begin + 1; i <= end; i++ {
		uid = Combine(uid, OfToken(tokens[i]))
	}
	return uid
}
