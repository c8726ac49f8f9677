// Package diff parses unified diff text as returned by platform APIs.
//
// It serves two jobs: deriving addition/deletion counts for platforms whose
// change listings omit them, and checking whether a new-side line number is
// actually part of the diff before a line comment is anchored to it.
package diff
