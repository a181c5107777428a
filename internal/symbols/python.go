package symbols

import (
	"regexp"
	"strings"

	"github.com/elgui/mcp-ragdocs/pkg/types"
)

// pyDefPattern matches a top-of-block def or class statement and captures
// the indentation, keyword, and name.
var pyDefPattern = regexp.MustCompile(`^(\s*)(def|class)\s+([A-Za-z_][A-Za-z0-9_]*)`)

// pyScope tracks an enclosing class while walking indentation.
type pyScope struct {
	name   string
	indent int
}

// parsePython extracts the module docstring and def/class units from a
// Python source file. Python has no exported AST here, so the parser
// works on indentation: a symbol's body extends until the next non-blank
// line at or below its indentation level.
func parsePython(content []byte) *fileUnits {
	lines := strings.Split(string(content), "\n")
	units := &fileUnits{
		ModuleDoc: pyModuleDoc(lines),
	}

	var stack []pyScope

	for i := 0; i < len(lines); i++ {
		m := pyDefPattern.FindStringSubmatch(lines[i])
		if m == nil {
			continue
		}
		indent := len(m[1])
		keyword, name := m[2], m[3]

		// Leaving a block pops every scope at or beyond this indent.
		for len(stack) > 0 && stack[len(stack)-1].indent >= indent {
			stack = stack[:len(stack)-1]
		}

		end := pyBlockEnd(lines, i, indent)
		sym := types.Symbol{
			Name:      name,
			StartLine: i + 1,
			EndLine:   end + 1,
			Body:      strings.Join(lines[i:end+1], "\n"),
			Docstring: pyDocstring(lines, i, end),
		}

		switch {
		case keyword == "class":
			sym.Kind = types.KindClass
		case len(stack) > 0:
			sym.Kind = types.KindMethod
			sym.Parent = stack[len(stack)-1].name
		default:
			sym.Kind = types.KindFunction
		}

		units.Symbols = append(units.Symbols, sym)

		if keyword == "class" {
			stack = append(stack, pyScope{name: name, indent: indent})
		}
	}

	return units
}

// pyModuleDoc returns the module-level docstring, if the first statement
// in the file is a triple-quoted string.
func pyModuleDoc(lines []string) string {
	for i := 0; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if delim := tripleQuote(trimmed); delim != "" {
			doc, _ := readTripleQuoted(lines, i, delim)
			return doc
		}
		return ""
	}
	return ""
}

// pyBlockEnd returns the index of the last line belonging to the block
// opened at defLine with the given indentation.
func pyBlockEnd(lines []string, defLine, indent int) int {
	end := defLine
	for i := defLine + 1; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}
		if lineIndent(lines[i]) <= indent {
			break
		}
		end = i
	}
	return end
}

// pyDocstring returns the docstring of the block opened at defLine: the
// first statement of the body when it is a triple-quoted string.
func pyDocstring(lines []string, defLine, end int) string {
	// The signature may span lines; the body starts after the line whose
	// trimmed content ends with ":".
	sigEnd := defLine
	for sigEnd <= end {
		t := strings.TrimSpace(lines[sigEnd])
		if strings.HasSuffix(t, ":") {
			break
		}
		sigEnd++
	}

	for i := sigEnd + 1; i <= end && i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}
		if delim := tripleQuote(trimmed); delim != "" {
			doc, _ := readTripleQuoted(lines, i, delim)
			return doc
		}
		return ""
	}
	return ""
}

func tripleQuote(trimmed string) string {
	for _, delim := range []string{`"""`, "'''"} {
		if strings.HasPrefix(trimmed, delim) {
			return delim
		}
	}
	return ""
}

// readTripleQuoted reads a triple-quoted string starting at line start and
// returns its content with delimiters stripped plus the closing line index.
func readTripleQuoted(lines []string, start int, delim string) (string, int) {
	first := strings.TrimSpace(lines[start])
	rest := strings.TrimPrefix(first, delim)

	// Single-line docstring: """text"""
	if strings.Contains(rest, delim) {
		return strings.TrimSpace(strings.TrimSuffix(rest, delim)), start
	}

	var parts []string
	if strings.TrimSpace(rest) != "" {
		parts = append(parts, strings.TrimSpace(rest))
	}
	for i := start + 1; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if idx := strings.Index(trimmed, delim); idx >= 0 {
			if before := strings.TrimSpace(trimmed[:idx]); before != "" {
				parts = append(parts, before)
			}
			return strings.Join(parts, "\n"), i
		}
		parts = append(parts, trimmed)
	}
	return strings.Join(parts, "\n"), len(lines) - 1
}

func lineIndent(line string) int {
	n := 0
	for _, r := range line {
		switch r {
		case ' ':
			n++
		case '\t':
			n += 8
		default:
			return n
		}
	}
	return n
}
