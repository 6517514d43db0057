// Package graphviz renders a dependency graph (or a single cycle path) as
// an ASCII tree for boot-time diagnostics, via recursive tree.Tree
// construction over github.com/m1gwings/treedrawer, taking a plain
// string-id adjacency map so the kernel package can feed it its own
// dependencyGraph without exposing treedrawer types on its own public
// surface.
package graphviz

import (
	"sort"
	"strings"

	"github.com/m1gwings/treedrawer/tree"
)

// Status marks a node's boot-time outcome for annotation in the tree.
type Status int

const (
	StatusPending Status = iota
	StatusOK
	StatusFailed
)

// Render draws downstream (id -> ids that depend on it) as one or more
// horizontal trees rooted at nodes with no upstream edge, annotating
// highlight with a failure marker.
func Render(downstream map[string][]string, status map[string]Status, highlight string) string {
	parents := map[string][]string{}
	allNodes := map[string]bool{}
	for parent, children := range downstream {
		allNodes[parent] = true
		for _, child := range children {
			allNodes[child] = true
			parents[child] = append(parents[child], parent)
		}
	}

	var roots []string
	for n := range allNodes {
		if len(parents[n]) == 0 {
			roots = append(roots, n)
		}
	}
	sort.Strings(roots)
	if len(roots) == 0 {
		return "(empty dependency graph)"
	}

	var sb strings.Builder
	for _, root := range roots {
		t := build(root, downstream, status, highlight, map[string]bool{})
		if t != nil {
			sb.WriteString(t.String())
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// RenderCycle draws a single cycle path (a -> b -> c -> a) as a simple
// chain tree, for GraphError diagnostics.
func RenderCycle(path []string) string {
	if len(path) == 0 {
		return "(empty cycle)"
	}
	root := tree.NewTree(tree.NodeString(path[0]))
	cur := root
	for _, id := range path[1:] {
		cur = cur.AddChild(tree.NodeString(id))
	}
	return root.String()
}

func build(id string, downstream map[string][]string, status map[string]Status, highlight string, visited map[string]bool) *tree.Tree {
	if visited[id] {
		return nil
	}
	visited[id] = true

	label := id
	switch {
	case id == highlight:
		label += " [FAILED]"
	case status[id] == StatusOK:
		label += " [ok]"
	}

	node := tree.NewTree(tree.NodeString(label))
	children := append([]string(nil), downstream[id]...)
	sort.Strings(children)
	for _, child := range children {
		childTree := build(child, downstream, status, highlight, visited)
		if childTree != nil {
			copyInto(node, childTree)
		}
	}
	return node
}

func copyInto(parent *tree.Tree, child *tree.Tree) {
	newChild := parent.AddChild(child.Val())
	for _, grandchild := range child.Children() {
		copyInto(newChild, grandchild)
	}
}
