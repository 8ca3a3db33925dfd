package xbrl

// structuralTags are document wrappers that never describe a context.
var structuralTags = map[string]bool{
	"html": true,
	"body": true,
	"xbrl": true,
}

// Vocabulary is the ordered set of descriptive column names found in a
// document. Once discovered it is the fixed schema for the descriptive part
// of every row.
type Vocabulary struct {
	names []string
	index map[string]int
}

func newVocabulary() *Vocabulary {
	return &Vocabulary{index: make(map[string]int)}
}

// DiscoverVocabulary walks the whole tree and collects, in first-occurrence
// order, the local names of every unqualified element that is not the root
// or a structural wrapper. Distinct tags stay distinct columns even when
// they describe the same concept. The context column is always present.
func DiscoverVocabulary(root *Node) *Vocabulary {
	v := newVocabulary()
	root.Walk(func(n *Node) bool {
		if n == root || n.Qualified() || structuralTags[n.Name] || n.Name == root.Name {
			return true
		}
		v.add(n.Name)
		return true
	})
	if !v.Contains(ColumnContext) {
		v.names = append([]string{ColumnContext}, v.names...)
		v.reindex()
	}
	return v
}

func (v *Vocabulary) add(name string) {
	if name == ColumnDataCode || name == ColumnDataValue {
		return
	}
	if _, ok := v.index[name]; ok {
		return
	}
	v.index[name] = len(v.names)
	v.names = append(v.names, name)
}

func (v *Vocabulary) reindex() {
	v.index = make(map[string]int, len(v.names))
	for i, name := range v.names {
		v.index[name] = i
	}
}

// Contains reports whether name is a descriptive column.
func (v *Vocabulary) Contains(name string) bool {
	_, ok := v.index[name]
	return ok
}

// Names returns the descriptive columns in discovery order.
func (v *Vocabulary) Names() []string {
	return append([]string(nil), v.names...)
}

// Len returns the number of descriptive columns.
func (v *Vocabulary) Len() int {
	return len(v.names)
}

// Columns returns the full pre-drop schema: the descriptive columns followed
// by datacode and datavalue.
func (v *Vocabulary) Columns() []string {
	cols := make([]string, 0, len(v.names)+2)
	cols = append(cols, v.names...)
	return append(cols, ColumnDataCode, ColumnDataValue)
}
