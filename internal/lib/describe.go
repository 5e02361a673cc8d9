package lib

import (
	"os"
	"strings"

	"go.starlark.net/syntax"
)

// FuncDoc describes a public function of a lib file.
type FuncDoc struct {
	Name   string   `json:"name"`
	Params []string `json:"params"`
	Doc    string   `json:"doc,omitempty"`
	Line   int      `json:"line"`
}

// Signature renders the function as it is called from a template.
func (f *FuncDoc) Signature() string {
	return f.Name + "(" + strings.Join(f.Params, ", ") + ")"
}

// Summary is the first line of the docstring.
func (f *FuncDoc) Summary() string {
	line, _, _ := strings.Cut(f.Doc, "\n")
	return strings.TrimSpace(line)
}

// NamespaceDoc describes one lib file.
type NamespaceDoc struct {
	Namespace string     `json:"namespace"`
	Path      string     `json:"path"`
	Funcs     []*FuncDoc `json:"funcs"`
}

// Describe reads every lib file in dir from its syntax tree. Nothing is
// executed, so files with runtime errors are still described.
func Describe(dir string) ([]*NamespaceDoc, error) {
	files, err := Files(dir)
	if err != nil {
		return nil, err
	}
	docs := make([]*NamespaceDoc, 0, len(files))
	for _, path := range files {
		content, err := os.ReadFile(path) //nolint:gosec // G304: path is inside the lib directory
		if err != nil {
			return nil, &LoadError{File: path, Message: "failed to read file", Err: err}
		}
		doc, err := DescribeFile(path, content)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// DescribeFile lists the public top-level functions of one lib file, in
// source order. Namespace and visibility follow the same rules as Load.
func DescribeFile(path string, content []byte) (*NamespaceDoc, error) {
	namespace := namespaceOf(path)
	if err := validateNamespace(namespace); err != nil {
		return nil, &LoadError{File: path, Message: err.Error()}
	}
	f, err := FileOptions.Parse(path, content, 0)
	if err != nil {
		return nil, &LoadError{File: path, Message: "syntax error", Err: err}
	}

	doc := &NamespaceDoc{Namespace: namespace, Path: path}
	for _, stmt := range f.Stmts {
		def, ok := stmt.(*syntax.DefStmt)
		if !ok || !IsPublic(def.Name.Name) {
			continue
		}
		params := make([]string, len(def.Params))
		for i, p := range def.Params {
			params[i] = exprString(p)
		}
		doc.Funcs = append(doc.Funcs, &FuncDoc{
			Name:   def.Name.Name,
			Params: params,
			Doc:    docstring(def.Body),
			Line:   int(def.Name.NamePos.Line),
		})
	}
	return doc, nil
}

func docstring(body []syntax.Stmt) string {
	if len(body) == 0 {
		return ""
	}
	stmt, ok := body[0].(*syntax.ExprStmt)
	if !ok {
		return ""
	}
	lit, ok := stmt.X.(*syntax.Literal)
	if !ok || lit.Token != syntax.STRING {
		return ""
	}
	s, _ := lit.Value.(string)
	return strings.TrimSpace(s)
}

// exprString renders a parameter or default value compactly. Collections
// with elements and call arguments are elided.
func exprString(e syntax.Expr) string {
	switch e := e.(type) {
	case *syntax.Ident:
		return e.Name
	case *syntax.Literal:
		return e.Raw
	case *syntax.BinaryExpr:
		if e.Op == syntax.EQ {
			return exprString(e.X) + "=" + exprString(e.Y)
		}
		return exprString(e.X) + " " + e.Op.String() + " " + exprString(e.Y)
	case *syntax.UnaryExpr:
		switch {
		case e.X == nil:
			return e.Op.String()
		case e.Op == syntax.NOT:
			return "not " + exprString(e.X)
		}
		return e.Op.String() + exprString(e.X)
	case *syntax.DotExpr:
		return exprString(e.X) + "." + e.Name.Name
	case *syntax.ParenExpr:
		if _, ok := e.X.(*syntax.TupleExpr); ok {
			return exprString(e.X)
		}
		return "(" + exprString(e.X) + ")"
	case *syntax.CallExpr:
		if len(e.Args) == 0 {
			return exprString(e.Fn) + "()"
		}
		return exprString(e.Fn) + "(...)"
	case *syntax.ListExpr:
		return elided("[", "]", len(e.List))
	case *syntax.DictExpr:
		return elided("{", "}", len(e.List))
	case *syntax.TupleExpr:
		return elided("(", ")", len(e.List))
	}
	return "..."
}

func elided(open, closing string, n int) string {
	if n == 0 {
		return open + closing
	}
	return open + "..." + closing
}
