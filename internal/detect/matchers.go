package detect

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/scano/internal/keyword"
)

// hit is what a matcher reports for a single node.
type hit struct {
	featureID string
	keyword   string
	line      int
}

// matcher inspects one node of a given kind.
type matcher func(n *sitter.Node, src []byte, idx *keyword.Index) (hit, bool)

// matchers is the closed set of node kinds the script detector handles.
var matchers = map[string]matcher{
	"identifier":                    matchIdentifier,
	"shorthand_property_identifier": matchIdentifier,
	"member_expression":             matchNavigatorBluetooth,
	"optional_chain":                matchOptionalChain,
	"?.":                            matchOptionalChain,
	"binary_expression":             matchNullishCoalescing,
	"await_expression":              matchAwait,
	"call_expression":               matchDynamicImport,
}

func lineOf(n *sitter.Node) int {
	return int(n.StartPoint().Row) + 1
}

// matchIdentifier matches identifier references. Names being declared or
// assigned to are not references.
func matchIdentifier(n *sitter.Node, src []byte, idx *keyword.Index) (hit, bool) {
	if isBinding(n) {
		return hit{}, false
	}
	name := strings.ToLower(n.Content(src))
	id, ok := idx.Lookup(name)
	if !ok {
		return hit{}, false
	}
	return hit{featureID: id, keyword: name, line: lineOf(n)}, true
}

// isBinding reports whether identifier n declares or assigns a name.
func isBinding(n *sitter.Node) bool {
	p := n.Parent()
	if p == nil {
		return false
	}
	switch p.Type() {
	case "formal_parameters", "array_pattern", "object_pattern", "rest_pattern",
		"import_specifier", "namespace_import", "import_clause", "export_specifier":
		return true
	case "variable_declarator", "function_declaration", "function", "function_expression",
		"generator_function", "generator_function_declaration", "class_declaration", "class":
		return isField(p, "name", n)
	case "assignment_expression", "augmented_assignment_expression", "assignment_pattern":
		return isField(p, "left", n)
	case "pair_pattern":
		return isField(p, "value", n)
	case "arrow_function", "catch_clause":
		return isField(p, "parameter", n)
	case "required_parameter", "optional_parameter":
		return isField(p, "pattern", n)
	case "for_in_statement":
		// for (x of xs) reads x; for (const x of xs) declares it.
		return isField(p, "left", n) && p.ChildByFieldName("kind") != nil
	}
	return false
}

// isField reports whether n is the child stored under field in p.
func isField(p *sitter.Node, field string, n *sitter.Node) bool {
	c := p.ChildByFieldName(field)
	return c != nil && c.StartByte() == n.StartByte() && c.EndByte() == n.EndByte()
}

func matchNavigatorBluetooth(n *sitter.Node, src []byte, idx *keyword.Index) (hit, bool) {
	obj := n.ChildByFieldName("object")
	prop := n.ChildByFieldName("property")
	if obj == nil || prop == nil {
		return hit{}, false
	}
	if obj.Type() != "identifier" || obj.Content(src) != "navigator" {
		return hit{}, false
	}
	if prop.Type() != "property_identifier" || prop.Content(src) != "bluetooth" {
		return hit{}, false
	}
	id, ok := idx.Lookup(keyword.NavigatorBluetooth)
	if !ok {
		return hit{}, false
	}
	return hit{featureID: id, keyword: keyword.NavigatorBluetooth, line: lineOf(n)}, true
}

// matchOptionalChain reports at the line where the chained expression
// starts, not where the ?. token sits.
func matchOptionalChain(n *sitter.Node, _ []byte, idx *keyword.Index) (hit, bool) {
	at := n
	if p := n.Parent(); p != nil && p.Type() != "optional_chain" {
		at = p
	} else if p != nil {
		if gp := p.Parent(); gp != nil {
			at = gp
		}
	}
	return hit{
		featureID: idx.FeatureFor(keyword.OptionalChaining),
		keyword:   keyword.OptionalChaining,
		line:      lineOf(at),
	}, true
}

func matchNullishCoalescing(n *sitter.Node, _ []byte, idx *keyword.Index) (hit, bool) {
	op := n.ChildByFieldName("operator")
	if op == nil || op.Type() != "??" {
		return hit{}, false
	}
	return hit{featureID: idx.FeatureFor(keyword.NullishCoalescing), keyword: "??", line: lineOf(n)}, true
}

// matchAwait maps every await to top-level await, wherever it appears.
func matchAwait(n *sitter.Node, _ []byte, idx *keyword.Index) (hit, bool) {
	return hit{featureID: idx.FeatureFor(keyword.TopLevelAwait), keyword: "await", line: lineOf(n)}, true
}

func matchDynamicImport(n *sitter.Node, _ []byte, idx *keyword.Index) (hit, bool) {
	fn := n.ChildByFieldName("function")
	if fn == nil || fn.Type() != "import" {
		return hit{}, false
	}
	return hit{featureID: idx.FeatureFor(keyword.DynamicImport), keyword: "import()", line: lineOf(n)}, true
}
