// Package keyword provides full-text lookup over the chunks of one knowledge-base generation.
package keyword

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// FuzzyEnabled enables fuzzy matching for typo tolerance.
	FuzzyEnabled bool
	// Fuzziness is the maximum Levenshtein edit distance for fuzzy matching (1 or 2).
	// Default is 2 when FuzzyEnabled is true.
	Fuzziness int
	// Column restricts matches to chunks whose record has this column.
	Column string
}

// KeywordResult is a single keyword search hit. Position is the chunk's position in the
// snapshot the index was built from.
type KeywordResult struct {
	Position int
	Score    float64
}
