package graph

// ExistsPath reports whether there is a path from src to dest. The nodes
// may be ordinary nodes and/or meta nodes. For any given meta node M,
// there are implicit paths from M's child input nodes, to M itself, to
// M's child output nodes.
//
// A node always reaches itself. Cycles are handled: the walk visits each
// node at most once, so the query terminates on any graph.
func ExistsPath(src, dest Node) bool {
	if src == nil || dest == nil {
		return false
	}
	if src.ID() == dest.ID() {
		return true
	}

	visited := map[NodeID]struct{}{src.ID(): {}}
	stack := []Node{src}

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, next := range successors(n) {
			if next.ID() == dest.ID() {
				return true
			}
			if _, seen := visited[next.ID()]; seen {
				continue
			}
			visited[next.ID()] = struct{}{}
			stack = append(stack, next)
		}
	}

	return false
}

// successors returns the nodes one step from n, including the implicit
// meta-node steps.
func successors(n Node) []Node {
	if n.IsMeta() {
		return n.ChildOutputs()
	}

	outs := n.Outputs()
	parent := n.Parent()
	if parent == nil || n.Type() != TypeChildInput {
		return outs
	}

	// A child input steps to its meta node. Copy before appending so the
	// node's adjacency list is never aliased.
	result := make([]Node, 0, len(outs)+1)
	result = append(result, outs...)
	result = append(result, parent)
	return result
}
