// Package symbols extracts documented code units from source files and
// turns them into retrieval chunks.
//
// The extractor recognizes Go (via go/ast) and Python (via an
// indentation-aware line parser). For every symbol carrying a non-empty
// docstring it emits docs-domain chunks (the docstring prefixed with the
// fully-qualified symbol name) and code-domain chunks (the symbol body),
// both token-split. Symbols without a docstring produce nothing: the
// index is deliberately biased toward documented code.
//
// A file that yields no symbol chunks still contributes one searchable
// unit: its module docstring when present, otherwise a placeholder chunk
// naming the file.
package symbols
