// Package output encodes reports as deterministic JSON.
//
// Identical inputs produce byte-identical output:
//
//  1. Object keys are sorted alphabetically
//  2. Floats are rounded to at most 6 decimal places
//  3. Nil values, empty collections and omitempty zero values are omitted
//  4. Values implementing encoding.TextMarshaler encode as their text form
//  5. HTML characters are not escaped, so C++ template brackets stay readable
package output
