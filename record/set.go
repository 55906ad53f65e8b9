package record

import "iter"

// Match is one query result: a record handle and the number of addresses in
// the query range attributed to it.
type Match struct {
	Record *Record
	Count  uint64
}

// Set is a reusable, append-only result container for one query.
//
// A Set is created once by the caller and reused across many queries: Reset
// drops the results but keeps the allocated capacity. A Set carries an
// internal cursor for Next-style iteration; Rewind moves it back to the
// first match.
//
// Within one query each distinct record appears at most once; backends
// aggregate per-record counts before appending.
type Set struct {
	matches []Match
	cursor  int
}

// NewSet returns an empty result set.
func NewSet() *Set {
	return &Set{}
}

// Add appends a match. It does not check for duplicates; deduplication is
// the appending backend's job.
func (s *Set) Add(rec *Record, count uint64) {
	s.matches = append(s.matches, Match{Record: rec, Count: count})
}

// Len returns the number of matches.
func (s *Set) Len() int {
	return len(s.matches)
}

// Reset clears the set for reuse, retaining capacity, and rewinds the
// cursor.
func (s *Set) Reset() {
	s.matches = s.matches[:0]
	s.cursor = 0
}

// Rewind moves the iteration cursor back to the first match.
func (s *Set) Rewind() {
	s.cursor = 0
}

// Next returns the match under the cursor and advances it. It returns false
// once all matches have been consumed.
func (s *Set) Next() (m Match, ok bool) {
	if s.cursor >= len(s.matches) {
		return Match{}, false
	}
	m = s.matches[s.cursor]
	s.cursor++
	return m, true
}

// Matches returns the underlying matches in append order. The slice is
// valid until the next Add or Reset.
func (s *Set) Matches() []Match {
	return s.matches
}

// All ranges over the matches in append order without moving the cursor.
func (s *Set) All() iter.Seq2[*Record, uint64] {
	return func(yield func(*Record, uint64) bool) {
		for _, m := range s.matches {
			if !yield(m.Record, m.Count) {
				return
			}
		}
	}
}
