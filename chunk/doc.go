// Package chunk splits document text into overlapping chunks for embedding.
//
// Four strategies are supported:
//
//   - fixed: windows of Size runes advancing by Size-Overlap
//   - sentence: whole sentences packed up to Size runes, with trailing
//     sentences of the previous chunk repeated while they fit in Overlap
//   - paragraph: whole paragraphs (separated by blank lines) packed up to Size runes
//   - semantic: currently the sentence strategy under its own name
//
// Every chunk records the rune offsets [Start, End) of its text in the
// source, so Text == string([]rune(source)[Start:End]) always holds.
package chunk
