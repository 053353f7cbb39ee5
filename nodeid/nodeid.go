// Package nodeid parses hierarchical test node identifiers such as
// "tests/test_api.py::TestUser::test_create[admin-1]".
package nodeid

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Separator joins the file, suite and function parts of a node id.
const Separator = "::"

// ErrMalformed is returned for node ids that do not match the grammar.
var ErrMalformed = errors.New("nodeid: malformed node id")

// The parametrization suffix runs from the first "[" to the last "]" and is
// kept verbatim, nested brackets included.
var idLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Params", Pattern: `(?s)\[.*\]`},
	{Name: "Sep", Pattern: `::`},
	{Name: "Segment", Pattern: `[^:\[\]]+(?::[^:\[\]]+)*`},
})

type grammar struct {
	Segments []string `parser:"@Segment ( Sep @Segment )*"`
	Params   *string  `parser:"@Params?"`
}

var parser = participle.MustBuild[grammar](
	participle.Lexer(idLexer),
)

// NodeID is the parsed form of a raw node id.
type NodeID struct {
	Raw       string
	File      string
	Classes   []string
	Function  string
	Params    string
	HasParams bool
}

// Parse splits a raw node id into its parts.
//
// An id without "::" is a bare file or directory id and has no function.
// Otherwise the first part must look like a file path, the last part is the
// function and the parts in between are enclosing suites.
func Parse(raw string) (NodeID, error) {
	if raw == "" {
		return NodeID{}, fmt.Errorf("%w: empty", ErrMalformed)
	}

	g, err := parser.ParseString("", raw)
	if err != nil {
		return NodeID{}, fmt.Errorf("%w %q: %w", ErrMalformed, raw, err)
	}

	id := NodeID{Raw: raw, File: g.Segments[0]}

	if g.Params != nil {
		id.HasParams = true
		id.Params = strings.TrimSuffix(strings.TrimPrefix(*g.Params, "["), "]")
	}

	if len(g.Segments) == 1 {
		if id.HasParams {
			return NodeID{}, fmt.Errorf("%w %q: parametrization without function", ErrMalformed, raw)
		}

		return id, nil
	}

	if !looksLikeFile(id.File) {
		return NodeID{}, fmt.Errorf("%w %q: %q is not a file path", ErrMalformed, raw, id.File)
	}

	last := len(g.Segments) - 1
	id.Function = g.Segments[last]

	if last > 1 {
		id.Classes = g.Segments[1:last]
	}

	return id, nil
}

// MustParse is like Parse but panics on malformed input.
func MustParse(raw string) NodeID {
	id, err := Parse(raw)
	if err != nil {
		panic(err)
	}

	return id
}

func looksLikeFile(s string) bool {
	return strings.Contains(s, "/") || strings.Contains(s, `\`) || path.Ext(s) != ""
}

// Name is the display name: the function, followed by "[params]" when parametrized.
// Bare file ids are named after their last path element.
func (n NodeID) Name() string {
	if n.Function == "" {
		return path.Base(strings.ReplaceAll(n.File, `\`, "/"))
	}

	if n.HasParams {
		return n.Function + "[" + n.Params + "]"
	}

	return n.Function
}

// Module is the file name without its extension, or "" for ids without an extension.
func (n NodeID) Module() string {
	base := path.Base(strings.ReplaceAll(n.File, `\`, "/"))

	ext := path.Ext(base)
	if ext == "" {
		return ""
	}

	return strings.TrimSuffix(base, ext)
}

// Suite joins the enclosing suites with "::", or returns "" at module level.
func (n NodeID) Suite() string {
	return strings.Join(n.Classes, Separator)
}

// IsFile reports whether the id names a file or directory rather than a test.
func (n NodeID) IsFile() bool {
	return n.Function == ""
}

// Format rebuilds the raw id from its parts.
func (n NodeID) Format() string {
	parts := make([]string, 0, len(n.Classes)+2)
	parts = append(parts, n.File)
	parts = append(parts, n.Classes...)

	if n.Function != "" {
		parts = append(parts, n.Function)
	}

	s := strings.Join(parts, Separator)
	if n.HasParams {
		s += "[" + n.Params + "]"
	}

	return s
}

func (n NodeID) String() string {
	return n.Raw
}
