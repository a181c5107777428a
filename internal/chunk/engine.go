package chunk

import (
	"strings"

	"github.com/elgui/mcp-ragdocs/pkg/types"
)

const (
	// DefaultMinTokens and DefaultMaxTokens bound the token-split window
	// used for symbol-level chunks.
	DefaultMinTokens = 200
	DefaultMaxTokens = 400
)

// statementBoundary reports whether a token is a safe place to end a
// token-split chunk: end of a sentence, a statement, or a block.
func statementBoundary(token string) bool {
	switch {
	case strings.HasSuffix(token, "."),
		strings.HasSuffix(token, ";"),
		strings.HasSuffix(token, ":"),
		strings.HasSuffix(token, "}"),
		strings.HasSuffix(token, ")"):
		return true
	}
	return false
}

// Split segments content using the given strategy. The semantic strategy
// is handled upstream by the symbol extractor; when it reaches Split it
// degrades to line chunking (non-code file routed to semantic by config).
func Split(content string, strategy types.ChunkStrategy, maxSize int) []string {
	switch strategy {
	case types.StrategyParagraph:
		return ByParagraphs(content, maxSize)
	case types.StrategyLine, types.StrategySemantic:
		return ByLines(content, maxSize)
	default:
		return ByLines(content, maxSize)
	}
}

// ByLines accumulates whole lines into chunks of at most maxSize bytes,
// counting the joining newlines. A chunk is flushed the moment appending
// the next line would exceed maxSize. A single line longer than maxSize
// becomes its own chunk; lines are never split.
func ByLines(content string, maxSize int) []string {
	return accumulate(strings.Split(content, "\n"), "\n", maxSize)
}

// ByParagraphs applies the line-accumulation rule to blank-line-delimited
// paragraphs, re-joining them with blank lines.
func ByParagraphs(content string, maxSize int) []string {
	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	raw := strings.Split(normalized, "\n\n")
	paras := make([]string, 0, len(raw))
	for _, p := range raw {
		if strings.TrimSpace(p) == "" {
			continue
		}
		paras = append(paras, strings.TrimRight(p, "\n"))
	}
	return accumulate(paras, "\n\n", maxSize)
}

// accumulate implements the shared flush rule for both unit kinds.
func accumulate(units []string, sep string, maxSize int) []string {
	if maxSize <= 0 {
		maxSize = types.DefaultChunkSize
	}

	var chunks []string
	var current strings.Builder

	for _, unit := range units {
		if current.Len() == 0 {
			current.WriteString(unit)
			continue
		}
		if current.Len()+len(sep)+len(unit) > maxSize {
			chunks = append(chunks, current.String())
			current.Reset()
			current.WriteString(unit)
			continue
		}
		current.WriteString(sep)
		current.WriteString(unit)
	}

	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}

	// A trailing empty accumulation can only come from all-empty input.
	if len(chunks) == 1 && strings.TrimSpace(chunks[0]) == "" {
		return nil
	}
	return chunks
}

// TokenSplit splits text on a token-count window. Every chunk except
// possibly the final one holds between minTokens and maxTokens whitespace
// tokens; within the window the split prefers statement and sentence
// boundaries so code and prose are not cut mid-thought.
func TokenSplit(text string, minTokens, maxTokens int) []string {
	if minTokens <= 0 {
		minTokens = DefaultMinTokens
	}
	if maxTokens < minTokens {
		maxTokens = minTokens
	}

	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil
	}
	if len(tokens) <= maxTokens {
		return []string{strings.Join(tokens, " ")}
	}

	var chunks []string
	start := 0
	for start < len(tokens) {
		remaining := len(tokens) - start
		if remaining <= maxTokens {
			chunks = append(chunks, strings.Join(tokens[start:], " "))
			break
		}

		// Hard limit, then walk back to the last safe boundary at or
		// after the minimum.
		end := start + maxTokens
		cut := end
		for i := end - 1; i >= start+minTokens; i-- {
			if statementBoundary(tokens[i]) {
				cut = i + 1
				break
			}
		}

		chunks = append(chunks, strings.Join(tokens[start:cut], " "))
		start = cut
	}

	return chunks
}
