package xbrl

import (
	"fmt"
	"log"
	"sort"

	apperrors "tidyxbrl/pkg/common/errors"
)

// DefaultMaxSearchDepth bounds the descendant search inside a context.
// Real contexts are at most four or five levels deep.
const DefaultMaxSearchDepth = 16

// collisionPrefix marks fact attributes whose name is already taken by a
// descriptive column.
const collisionPrefix = "@"

// Fact attributes that never become columns. Prefixed attributes are skipped
// separately.
var excludedFactAttrs = map[string]bool{
	"contextRef": true,
	"id":         true,
	"xmlns":      true,
}

// Options tunes a Flattener.
type Options struct {
	// MaxSearchDepth bounds how far below a context node descriptive tags are
	// looked up. Zero means DefaultMaxSearchDepth, negative means unbounded.
	MaxSearchDepth int

	// Logger receives warnings. Nil means the standard logger.
	Logger *log.Logger
}

// Flattener converts document trees into fact tables. It holds no per-call
// state and is safe for concurrent use.
type Flattener struct {
	opts Options
}

// NewFlattener creates a Flattener with the given options.
func NewFlattener(opts Options) *Flattener {
	if opts.MaxSearchDepth == 0 {
		opts.MaxSearchDepth = DefaultMaxSearchDepth
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Flattener{opts: opts}
}

// Flatten builds a fact table with default options.
func Flatten(root *Node) (*Table, error) {
	return NewFlattener(Options{}).Flatten(root)
}

// Flatten runs the three phases over root: vocabulary discovery, one row per
// context, then the fact join. The input tree is not modified.
func (f *Flattener) Flatten(root *Node) (*Table, error) {
	if root == nil {
		return nil, fmt.Errorf("%w: nil document", apperrors.ErrInvalidInput)
	}

	b := &tableBuilder{
		opts:      f.opts,
		vocab:     DiscoverVocabulary(root),
		byID:      make(map[string]*contextState),
		extraSeen: make(map[string]bool),
		collided:  make(map[string]bool),
		orphaned:  make(map[string]bool),
	}
	b.buildContextRows(root)
	b.joinFacts(root)
	return b.finish(), nil
}

// contextState tracks one context across the join. The first fact fills the
// context's own row; every later one appends a clone of base.
type contextState struct {
	rowIndex int
	base     Row
	filled   bool
}

type tableBuilder struct {
	opts  Options
	vocab *Vocabulary

	rows []Row
	byID map[string]*contextState

	extra     []string
	extraSeen map[string]bool
	collided  map[string]bool
	orphaned  map[string]bool

	stats Stats
}

func (b *tableBuilder) buildContextRows(root *Node) {
	root.Walk(func(n *Node) bool {
		if n.Name != ColumnContext {
			return true
		}
		b.addContext(n)
		return false
	})
}

func (b *tableBuilder) addContext(n *Node) {
	b.stats.Contexts++

	id, ok := n.Attr("id")
	if !ok || id == "" {
		b.stats.SkippedContexts++
		b.opts.Logger.Printf("[Flatten] WARNING: skipping context #%d without an id", b.stats.Contexts)
		return
	}

	first := firstDescendants(n, b.opts.MaxSearchDepth)
	row := Row{ColumnContext: id}
	for _, col := range b.vocab.names {
		if col == ColumnContext {
			continue
		}
		match, ok := first[col]
		if !ok {
			continue
		}
		if value, ok := b.describe(match); ok {
			row[col] = value
		}
	}

	if _, dup := b.byID[id]; dup {
		b.stats.DuplicateContexts++
		b.opts.Logger.Printf("[Flatten] WARNING: duplicate context id %q, facts join the first occurrence", id)
	} else {
		b.byID[id] = &contextState{rowIndex: len(b.rows), base: row.clone()}
	}
	b.rows = append(b.rows, row)
}

// describe resolves the value of a descriptive column from the first
// matching node. A leaf yields its own text. A node wrapping exactly one
// element that is not itself a column yields that element's text. Anything
// deeper is left null.
func (b *tableBuilder) describe(match *Node) (string, bool) {
	switch {
	case len(match.Children) == 0:
		return match.TextContent(), true
	case len(match.Children) == 1 && !b.vocab.Contains(match.Children[0].Name):
		return match.Children[0].TextContent(), true
	default:
		return "", false
	}
}

// firstDescendants indexes the first node of every local name below n in
// document order, down to maxDepth levels (unbounded when negative).
func firstDescendants(n *Node, maxDepth int) map[string]*Node {
	first := make(map[string]*Node)
	var visit func(*Node, int)
	visit = func(node *Node, depth int) {
		if _, ok := first[node.Name]; !ok {
			first[node.Name] = node
		}
		if maxDepth > 0 && depth >= maxDepth {
			return
		}
		for _, c := range node.Children {
			visit(c, depth+1)
		}
	}
	for _, c := range n.Children {
		visit(c, 1)
	}
	return first
}

func (b *tableBuilder) joinFacts(root *Node) {
	root.Walk(func(n *Node) bool {
		ref, ok := n.Attr("contextRef")
		if !ok {
			return true
		}
		b.stats.Facts++

		state, ok := b.byID[ref]
		if !ok {
			b.stats.Orphans++
			if !b.orphaned[ref] {
				b.orphaned[ref] = true
				b.stats.OrphanRefs = append(b.stats.OrphanRefs, ref)
				b.opts.Logger.Printf("[Flatten] WARNING: fact %s references unknown context %q", n.QName(), ref)
			}
			return true
		}
		b.stats.JoinedFacts++

		var row Row
		if !state.filled {
			row = b.rows[state.rowIndex]
			state.filled = true
		} else {
			row = state.base.clone()
			b.rows = append(b.rows, row)
		}
		b.applyFact(row, n)
		return true
	})
}

func (b *tableBuilder) applyFact(row Row, fact *Node) {
	for _, a := range fact.Attrs {
		if a.Prefix != "" || excludedFactAttrs[a.Name] {
			continue
		}
		col := a.Name
		if b.vocab.Contains(col) || col == ColumnDataCode || col == ColumnDataValue {
			col = collisionPrefix + col
			b.stats.Collisions++
			if !b.collided[a.Name] {
				b.collided[a.Name] = true
				b.opts.Logger.Printf("[Flatten] WARNING: fact attribute %q collides with a descriptive column, stored as %q", a.Name, col)
			}
		}
		if !b.extraSeen[col] {
			b.extraSeen[col] = true
			b.extra = append(b.extra, col)
		}
		row[col] = a.Value
	}
	row[ColumnDataCode] = fact.Name
	row[ColumnDataValue] = fact.TextContent()
}

// finish nulls empty fields, drops all-null columns, fixes the column order
// and sorts rows by context.
func (b *tableBuilder) finish() *Table {
	used := make(map[string]bool)
	for _, row := range b.rows {
		for col, v := range row {
			if v == "" {
				delete(row, col)
				continue
			}
			used[col] = true
		}
	}

	candidates := make([]string, 0, b.vocab.Len()+len(b.extra)+2)
	candidates = append(candidates, b.vocab.names...)
	candidates = append(candidates, b.extra...)
	candidates = append(candidates, ColumnDataCode, ColumnDataValue)

	columns := make([]string, 0, len(candidates))
	for _, col := range candidates {
		keep := used[col] || col == ColumnContext || col == ColumnDataCode || col == ColumnDataValue
		if keep {
			columns = append(columns, col)
		} else {
			b.stats.DroppedColumns = append(b.stats.DroppedColumns, col)
		}
	}

	sort.SliceStable(b.rows, func(i, j int) bool {
		return b.rows[i][ColumnContext] < b.rows[j][ColumnContext]
	})

	if b.stats.Orphans > 0 || b.stats.SkippedContexts > 0 {
		b.opts.Logger.Printf("[Flatten] %d facts orphaned (%d distinct refs), %d contexts skipped",
			b.stats.Orphans, len(b.stats.OrphanRefs), b.stats.SkippedContexts)
	}

	return &Table{
		Columns: columns,
		Rows:    b.rows,
		Stats:   b.stats,
	}
}
