// Package chunk implements the text segmentation strategies used by the
// indexing pipeline.
//
// Three strategies are provided:
//
//   - ByLines: accumulate whole lines up to a byte budget. A chunk is
//     flushed the moment appending the next line would exceed the budget;
//     a single line that alone exceeds the budget becomes its own
//     oversized chunk. Lines are never split.
//
//   - ByParagraphs: the identical rule applied to blank-line-delimited
//     paragraphs. Used for prose where paragraph boundaries carry meaning.
//
//   - TokenSplit: a token-count window (default 200-400) with breaks
//     preferred at statement or sentence boundaries. Used for symbol-level
//     code and docstring chunks.
//
// All strategies are deterministic: identical input always yields an
// identical chunk sequence. The diffing layer and the tests depend on this.
package chunk
