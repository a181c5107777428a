package symbols

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"

	"github.com/elgui/mcp-ragdocs/pkg/types"
)

// parseGo extracts package doc and documented declarations from a Go
// source file. Syntax errors are non-fatal: whatever partial AST the
// parser produced is still mined for symbols.
func parseGo(filename string, content []byte) (*fileUnits, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filename, content, parser.ParseComments)
	if file == nil {
		return nil, fmt.Errorf("%w: parse %s: %v", types.ErrInvalidInput, filename, err)
	}

	units := &fileUnits{}
	if file.Doc != nil {
		units.ModuleDoc = file.Doc.Text()
	}

	lines := strings.Split(string(content), "\n")

	ast.Inspect(file, func(node ast.Node) bool {
		switch n := node.(type) {
		case *ast.FuncDecl:
			units.Symbols = append(units.Symbols, goFunc(fset, n, lines))
			return false
		case *ast.GenDecl:
			if n.Tok == token.TYPE {
				for _, spec := range n.Specs {
					ts, ok := spec.(*ast.TypeSpec)
					if !ok {
						continue
					}
					units.Symbols = append(units.Symbols, goType(fset, n, ts, lines))
				}
			}
			return false
		}
		return true
	})

	return units, nil
}

func goFunc(fset *token.FileSet, decl *ast.FuncDecl, lines []string) types.Symbol {
	sym := types.Symbol{
		Name:      decl.Name.Name,
		Kind:      types.KindFunction,
		StartLine: fset.Position(decl.Pos()).Line,
		EndLine:   fset.Position(decl.End()).Line,
	}
	if decl.Doc != nil {
		sym.Docstring = decl.Doc.Text()
	}
	if decl.Recv != nil && len(decl.Recv.List) > 0 {
		sym.Kind = types.KindMethod
		sym.Parent = receiverName(decl.Recv.List[0].Type)
	}
	sym.Body = sliceLines(lines, sym.StartLine, sym.EndLine)
	return sym
}

func goType(fset *token.FileSet, decl *ast.GenDecl, spec *ast.TypeSpec, lines []string) types.Symbol {
	sym := types.Symbol{
		Name:      spec.Name.Name,
		Kind:      types.KindClass,
		StartLine: fset.Position(decl.Pos()).Line,
		EndLine:   fset.Position(decl.End()).Line,
	}
	// Doc may sit on the decl group or on the spec itself.
	if spec.Doc != nil {
		sym.Docstring = spec.Doc.Text()
	} else if decl.Doc != nil {
		sym.Docstring = decl.Doc.Text()
	}
	sym.Body = sliceLines(lines, sym.StartLine, sym.EndLine)
	return sym
}

// receiverName unwraps pointer and generic receivers to the base type name.
func receiverName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return receiverName(t.X)
	case *ast.IndexExpr:
		return receiverName(t.X)
	case *ast.IndexListExpr:
		return receiverName(t.X)
	}
	return ""
}

func sliceLines(lines []string, start, end int) string {
	if start <= 0 || start > len(lines) {
		return ""
	}
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start-1:end], "\n")
}
