package detect

import (
	"context"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/scano/internal/keyword"
)

// ScriptDetector parses JavaScript and TypeScript sources with tree-sitter
// and applies the node matchers to every node of the tree.
type ScriptDetector struct {
	index *keyword.Index
}

// NewScriptDetector returns a detector reading from idx.
func NewScriptDetector(idx *keyword.Index) *ScriptDetector {
	return &ScriptDetector{index: idx}
}

// Detect scans one script. A source with syntax errors yields a
// *ParseError and no detections.
func (d *ScriptDetector) Detect(ctx context.Context, path string, content []byte) FileResult {
	lang, ok := LanguageForFile(path)
	if !ok || !IsScript(lang) {
		lang = "javascript"
	}
	res := FileResult{Path: path, Language: lang}

	grammar, _ := grammarFor(lang)
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar)

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		res.Err = &ParseError{Path: path, Msg: err.Error()}
		return res
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		res.Err = syntaxError(path, root)
		return res
	}
	allowJSX := lang != "javascript" || strings.EqualFold(filepath.Ext(path), ".jsx")
	if pe := rejectedSyntax(path, root, allowJSX); pe != nil {
		res.Err = pe
		return res
	}

	set := NewSet()
	walk(root, func(n *sitter.Node) {
		m, ok := matchers[n.Type()]
		if !ok {
			return
		}
		h, ok := m(n, content, d.index)
		if !ok {
			return
		}
		set.Add(Detection{FeatureID: h.featureID, Keyword: h.keyword, File: path, Line: h.line})
	})
	res.Detections = set.Items()
	return res
}

// walk visits every node below root in document order.
func walk(root *sitter.Node, visit func(*sitter.Node)) {
	c := sitter.NewTreeCursor(root)
	defer c.Close()
	for {
		visit(c.CurrentNode())
		if c.GoToFirstChild() {
			continue
		}
		for !c.GoToNextSibling() {
			if !c.GoToParent() {
				return
			}
		}
	}
}

// syntaxError locates the first error or missing node under root.
func syntaxError(path string, root *sitter.Node) *ParseError {
	e := &ParseError{Path: path, Line: 1, Column: 1, Msg: "syntax error"}
	found := false
	walk(root, func(n *sitter.Node) {
		if found {
			return
		}
		switch {
		case n.IsMissing():
			e.Msg = "missing " + n.Type()
		case n.IsError():
			e.Msg = "unexpected token"
		default:
			return
		}
		found = true
		p := n.StartPoint()
		e.Line = int(p.Row) + 1
		e.Column = int(p.Column) + 1
	})
	return e
}

// functionKinds open a new await scope.
var functionKinds = map[string]bool{
	"function_declaration":           true,
	"function_expression":            true,
	"function":                       true,
	"arrow_function":                 true,
	"method_definition":              true,
	"generator_function":             true,
	"generator_function_declaration": true,
}

// rejectedSyntax finds constructs the grammar accepts but a standard
// module parser does not: await outside an async function, and JSX in a
// plain script file.
func rejectedSyntax(path string, root *sitter.Node, allowJSX bool) *ParseError {
	var e *ParseError
	walk(root, func(n *sitter.Node) {
		if e != nil {
			return
		}
		var msg string
		switch n.Type() {
		case "await_expression":
			if inAsyncScope(n) {
				return
			}
			msg = "cannot use keyword 'await' outside an async function"
		case "jsx_element", "jsx_self_closing_element":
			if allowJSX {
				return
			}
			msg = "unexpected token"
		default:
			return
		}
		p := n.StartPoint()
		e = &ParseError{Path: path, Line: int(p.Row) + 1, Column: int(p.Column) + 1, Msg: msg}
	})
	return e
}

// inAsyncScope reports whether n sits at module top level or inside an
// async function.
func inAsyncScope(n *sitter.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if !functionKinds[p.Type()] {
			continue
		}
		for i := 0; i < int(p.ChildCount()); i++ {
			if p.Child(i).Type() == "async" {
				return true
			}
		}
		return false
	}
	return true
}
