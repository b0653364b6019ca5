package tokenset

import (
	"sort"
	"strconv"
	"strings"
)

// builder constructs a minimal acyclic automaton from words supplied in
// strictly increasing order. After each insert, the suffix of the previous
// word that is no longer shared with the new one is frozen: every node on
// it is either replaced by an identical node already registered, or becomes
// the registered representative of its signature.
type builder struct {
	nodes     []node
	previous  []rune
	unchecked []pendingEdge
	minimized map[string]uint32
	words     int
}

type pendingEdge struct {
	parent uint32
	label  rune
	child  uint32
}

func newBuilder() *builder {
	return &builder{
		nodes:     []node{{}},
		minimized: make(map[string]uint32),
	}
}

func (b *builder) insert(word []rune) {
	if len(word) == 0 || compareRunes(word, b.previous) <= 0 {
		return
	}
	common := 0
	for common < len(word) && common < len(b.previous) && word[common] == b.previous[common] {
		common++
	}
	b.minimize(common)

	current := uint32(0)
	if len(b.unchecked) > 0 {
		current = b.unchecked[len(b.unchecked)-1].child
	}
	for _, r := range word[common:] {
		id := uint32(len(b.nodes))
		b.nodes = append(b.nodes, node{})
		b.nodes[current].edges = append(b.nodes[current].edges, edge{label: r, target: id})
		b.unchecked = append(b.unchecked, pendingEdge{parent: current, label: r, child: id})
		current = id
	}
	b.nodes[current].final = true
	b.previous = word
	b.words++
}

func (b *builder) minimize(downTo int) {
	for i := len(b.unchecked) - 1; i >= downTo; i-- {
		pending := b.unchecked[i]
		key := b.signature(pending.child)
		if existing, ok := b.minimized[key]; ok {
			edges := b.nodes[pending.parent].edges
			edges[len(edges)-1].target = existing
		} else {
			b.minimized[key] = pending.child
		}
		b.unchecked = b.unchecked[:i]
	}
}

// signature identifies a node by its finality and outgoing edges. Targets
// are already minimized, so equal signatures mean equal sub-automata.
func (b *builder) signature(id uint32) string {
	n := b.nodes[id]
	var sb strings.Builder
	if n.final {
		sb.WriteByte('1')
	} else {
		sb.WriteByte('0')
	}
	for _, e := range n.edges {
		sb.WriteByte('|')
		sb.WriteString(strconv.FormatInt(int64(e.label), 36))
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatUint(uint64(e.target), 36))
	}
	return sb.String()
}

// finish freezes the remaining path and drops the nodes orphaned by
// minimization, renumbering the survivors densely from the root.
func (b *builder) finish() *TokenSet {
	b.minimize(0)

	remap := make(map[uint32]uint32, len(b.minimized)+1)
	order := []uint32{0}
	remap[0] = 0
	for i := 0; i < len(order); i++ {
		for _, e := range b.nodes[order[i]].edges {
			if _, seen := remap[e.target]; !seen {
				remap[e.target] = uint32(len(order))
				order = append(order, e.target)
			}
		}
	}

	nodes := make([]node, len(order))
	for newID, oldID := range order {
		old := b.nodes[oldID]
		edges := make([]edge, len(old.edges))
		for i, e := range old.edges {
			edges[i] = edge{label: e.label, target: remap[e.target]}
		}
		sort.Slice(edges, func(i, j int) bool { return edges[i].label < edges[j].label })
		nodes[newID] = node{final: old.final, edges: edges}
	}
	return &TokenSet{nodes: nodes, words: b.words}
}

func compareRunes(a, b []rune) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
