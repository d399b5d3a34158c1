// Package filter decides which paths take part in a sync.
//
// A filter is a boolean expression tree. Leaves hold a compiled glob, regular
// expression or gitignore rule set; groups combine their children with AND,
// NAND, OR or NOR. Trees are built once from configuration and are immutable,
// so they can be consulted for every path of a traversal.
package filter

import (
	"fmt"
	"os"
	"path"
	"regexp"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Node is one node of a filter expression tree.
type Node interface {
	// Matches reports whether the path satisfies the node.
	Matches(path string) bool
}

// Logic is the combinator of a Group.
type Logic int

const (
	// And is true unless a child is false.
	And Logic = iota
	// Nand is the negation of And.
	Nand
	// Or is true if any child is true.
	Or
	// Nor is the negation of Or.
	Nor
)

// String returns the name of the combinator.
func (l Logic) String() string {
	switch l {
	case And:
		return "AND"
	case Nand:
		return "NAND"
	case Or:
		return "OR"
	case Nor:
		return "NOR"
	default:
		return "UNKNOWN"
	}
}

// Leaf matches a path against a single compiled pattern.
type Leaf struct {
	pattern  *regexp.Regexp
	source   string
	inverted bool
}

// NewLeaf creates a leaf from a compiled pattern. The source text is kept for
// String only.
func NewLeaf(pattern *regexp.Regexp, source string, inverted bool) *Leaf {
	return &Leaf{pattern: pattern, source: source, inverted: inverted}
}

// Matches implements Node.
func (l *Leaf) Matches(p string) bool {
	return l.pattern.MatchString(p) != l.inverted
}

// String returns the leaf in its configuration syntax.
func (l *Leaf) String() string {
	if l.inverted {
		return "not:" + l.source
	}
	return l.source
}

// IgnoreLeaf matches paths against a gitignore rule set.
type IgnoreLeaf struct {
	ignore *gitignore.GitIgnore
	source string
}

// Matches implements Node.
func (l *IgnoreLeaf) Matches(p string) bool {
	return l.ignore.MatchesPath(p)
}

// String returns the file the rules were loaded from.
func (l *IgnoreLeaf) String() string {
	return "ignore-file:" + l.source
}

// Group combines child nodes with a Logic.
type Group struct {
	logic    Logic
	children []Node
}

// NewGroup creates a group. A group without children has no meaning, so
// passing none is a programming error and panics.
func NewGroup(logic Logic, children ...Node) *Group {
	if len(children) == 0 {
		panic("filter: group " + logic.String() + " requires at least one child")
	}
	return &Group{logic: logic, children: append([]Node(nil), children...)}
}

// Logic returns the group combinator.
func (g *Group) Logic() Logic {
	return g.logic
}

// Children returns a copy of the group's children.
func (g *Group) Children() []Node {
	return append([]Node(nil), g.children...)
}

// Matches implements Node.
func (g *Group) Matches(p string) bool {
	switch g.logic {
	case And:
		return g.all(p)
	case Nand:
		return !g.all(p)
	case Or:
		return g.any(p)
	case Nor:
		return !g.any(p)
	default:
		panic(fmt.Sprintf("filter: unknown logic %d", g.logic))
	}
}

func (g *Group) all(p string) bool {
	for _, c := range g.children {
		if !c.Matches(p) {
			return false
		}
	}
	return true
}

func (g *Group) any(p string) bool {
	for _, c := range g.children {
		if c.Matches(p) {
			return true
		}
	}
	return false
}

// String renders the tree, e.g. AND(OR(*.go), NOR(*_test.go)).
func (g *Group) String() string {
	parts := make([]string, len(g.children))
	for i, c := range g.children {
		parts[i] = fmt.Sprint(c)
	}
	return g.logic.String() + "(" + strings.Join(parts, ", ") + ")"
}

// Pattern prefixes recognized by ParsePattern.
const (
	PrefixGlob  = "glob:"
	PrefixRegex = "regex:"
	PrefixNot   = "not:"
)

// ParsePattern compiles one pattern string into a leaf.
//
// The expression is a glob unless prefixed with "regex:"; "glob:" may be used
// to be explicit. A leading "not:" inverts the leaf.
func ParsePattern(s string) (*Leaf, error) {
	expr := s
	inverted := false
	if strings.HasPrefix(expr, PrefixNot) {
		inverted = true
		expr = strings.TrimPrefix(expr, PrefixNot)
	}

	switch {
	case strings.HasPrefix(expr, PrefixRegex):
		raw := strings.TrimPrefix(expr, PrefixRegex)
		re, err := regexp.Compile(raw)
		if err != nil {
			return nil, &SyntaxError{Expr: raw, Pos: -1, Message: "invalid regular expression", Err: err}
		}
		return NewLeaf(re, expr, inverted), nil
	default:
		raw := strings.TrimPrefix(expr, PrefixGlob)
		re, err := CompileGlob(raw)
		if err != nil {
			return nil, err
		}
		return NewLeaf(re, expr, inverted), nil
	}
}

// LoadIgnoreFile compiles a gitignore-style file into a leaf.
func LoadIgnoreFile(file string) (*IgnoreLeaf, error) {
	// #nosec G304 - the file is named by the user
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read ignore file %q: %w", file, err)
	}
	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	return &IgnoreLeaf{ignore: gitignore.CompileIgnoreLines(lines...), source: file}, nil
}

// Spec is the configuration form of a filter.
type Spec struct {
	// Include patterns; a path must match at least one.
	Include []string
	// Exclude patterns; a path must match none.
	Exclude []string
	// ExcludeFrom names gitignore-style files whose rules are added to Exclude.
	ExcludeFrom []string
}

// IsEmpty reports whether s filters nothing.
func (s Spec) IsEmpty() bool {
	return len(s.Include) == 0 && len(s.Exclude) == 0 && len(s.ExcludeFrom) == 0
}

// Build assembles the expression tree for a spec: OR(includes) when only
// includes are given, NOR(excludes) when only excludes are given and
// AND(OR(includes), NOR(excludes)) when both are. An empty spec yields a nil
// Node, meaning no filtering.
//
//nolint:ireturn // the tree root is either a Group or nil.
func Build(spec Spec) (Node, error) {
	includes := make([]Node, 0, len(spec.Include))
	for _, p := range spec.Include {
		leaf, err := ParsePattern(p)
		if err != nil {
			return nil, fmt.Errorf("include: %w", err)
		}
		includes = append(includes, leaf)
	}

	excludes := make([]Node, 0, len(spec.Exclude)+len(spec.ExcludeFrom))
	for _, p := range spec.Exclude {
		leaf, err := ParsePattern(p)
		if err != nil {
			return nil, fmt.Errorf("exclude: %w", err)
		}
		excludes = append(excludes, leaf)
	}
	for _, f := range spec.ExcludeFrom {
		leaf, err := LoadIgnoreFile(f)
		if err != nil {
			return nil, err
		}
		excludes = append(excludes, leaf)
	}

	switch {
	case len(includes) > 0 && len(excludes) > 0:
		return NewGroup(And, NewGroup(Or, includes...), NewGroup(Nor, excludes...)), nil
	case len(includes) > 0:
		return NewGroup(Or, includes...), nil
	case len(excludes) > 0:
		return NewGroup(Nor, excludes...), nil
	default:
		return nil, nil
	}
}

// PathFilter applies a filter tree to paths relative to a sync root.
// A nil *PathFilter includes everything.
type PathFilter struct {
	root      Node
	byName    bool
	lowerCase bool
	lower     cases.Caser
}

// NewPathFilter wraps a tree. byName matches against the final path element
// instead of the whole relative path; lowerCase lower-cases the key first.
func NewPathFilter(root Node, byName, lowerCase bool) *PathFilter {
	if root == nil {
		return nil
	}
	return &PathFilter{
		root:      root,
		byName:    byName,
		lowerCase: lowerCase,
		lower:     cases.Lower(language.Und),
	}
}

// Includes reports whether relPath takes part in the sync. relPath uses "/"
// separators; directories carry a trailing "/".
func (f *PathFilter) Includes(relPath string) bool {
	if f == nil {
		return true
	}
	return f.root.Matches(f.key(relPath))
}

func (f *PathFilter) key(relPath string) string {
	k := relPath
	if f.byName {
		dir := strings.HasSuffix(k, "/")
		k = path.Base(strings.TrimSuffix(k, "/"))
		if dir {
			k += "/"
		}
	}
	if f.lowerCase {
		// Caser keeps state between calls; reset before reuse.
		f.lower.Reset()
		k = f.lower.String(k)
	}
	return k
}

// String renders the filter tree.
func (f *PathFilter) String() string {
	if f == nil {
		return "none"
	}
	return fmt.Sprint(f.root)
}
