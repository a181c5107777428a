package symbols

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/elgui/mcp-ragdocs/internal/chunk"
	"github.com/elgui/mcp-ragdocs/pkg/types"
)

// fileUnits is the parse result for one source file: the module-level
// docstring (may be empty) and the extracted symbols in source order.
type fileUnits struct {
	ModuleDoc string
	Symbols   []types.Symbol
}

// Extractor parses recognized code files into symbol units and builds
// domain-tagged chunks from the documented ones.
type Extractor struct {
	minTokens int
	maxTokens int
}

// New creates an Extractor with the default token-split window.
func New() *Extractor {
	return &Extractor{
		minTokens: chunk.DefaultMinTokens,
		maxTokens: chunk.DefaultMaxTokens,
	}
}

// Supported reports whether the extension has an AST parser.
func (e *Extractor) Supported(ext string) bool {
	switch strings.ToLower(ext) {
	case ".go", ".py":
		return true
	}
	return false
}

// Language maps a recognized extension to its language tag.
func Language(ext string) string {
	switch strings.ToLower(ext) {
	case ".go":
		return "go"
	case ".py":
		return "python"
	}
	return ""
}

// ChunkFile parses content and returns the file's chunks with ChunkIndex
// and TotalChunks finalized. Every indexed file contributes at least one
// chunk.
func (e *Extractor) ChunkFile(relPath string, content []byte, fileID string) ([]types.Chunk, error) {
	ext := strings.ToLower(filepath.Ext(relPath))

	var units *fileUnits
	var err error
	switch ext {
	case ".go":
		units, err = parseGo(relPath, content)
	case ".py":
		units = parsePython(content)
	default:
		return nil, fmt.Errorf("%w: no symbol parser for %q", types.ErrInvalidInput, ext)
	}
	if err != nil {
		return nil, err
	}

	language := Language(ext)
	var chunks []types.Chunk

	for i := range units.Symbols {
		sym := &units.Symbols[i]
		if strings.TrimSpace(sym.Docstring) == "" {
			continue
		}
		chunks = append(chunks, e.symbolChunks(sym, fileID, language)...)
	}

	// Fallback: module docstring, else a minimal placeholder. Every
	// indexed file must contribute at least one searchable unit.
	if len(chunks) == 0 {
		chunks = append(chunks, e.fallbackChunk(units, relPath, fileID, language))
	}

	for i := range chunks {
		chunks[i].ChunkIndex = i
		chunks[i].TotalChunks = len(chunks)
	}
	return chunks, nil
}

// symbolChunks emits the docs-domain and code-domain chunks for one
// documented symbol.
func (e *Extractor) symbolChunks(sym *types.Symbol, fileID, language string) []types.Chunk {
	var out []types.Chunk
	qname := sym.QualifiedName()

	docText := qname + "\n\n" + strings.TrimSpace(sym.Docstring)
	for _, text := range chunk.TokenSplit(docText, e.minTokens, e.maxTokens) {
		out = append(out, types.Chunk{
			Text:      text,
			FileID:    fileID,
			Symbol:    qname,
			Domain:    types.DomainDocs,
			Language:  language,
			StartLine: sym.StartLine,
			EndLine:   sym.EndLine,
		})
	}

	for _, text := range chunk.TokenSplit(sym.Body, e.minTokens, e.maxTokens) {
		out = append(out, types.Chunk{
			Text:      text,
			FileID:    fileID,
			Symbol:    qname,
			Domain:    types.DomainCode,
			Language:  language,
			StartLine: sym.StartLine,
			EndLine:   sym.EndLine,
		})
	}
	return out
}

func (e *Extractor) fallbackChunk(units *fileUnits, relPath, fileID, language string) types.Chunk {
	if strings.TrimSpace(units.ModuleDoc) != "" {
		return types.Chunk{
			Text:      strings.TrimSpace(units.ModuleDoc),
			FileID:    fileID,
			Domain:    types.DomainDocs,
			Language:  language,
			StartLine: 1,
			EndLine:   1,
		}
	}
	return types.Chunk{
		Text:      fmt.Sprintf("Source file %s (no documented symbols)", relPath),
		FileID:    fileID,
		Domain:    types.DomainDocs,
		Language:  language,
		StartLine: 1,
		EndLine:   1,
	}
}
