package solidity

// Inspect traverses the tree rooted at n in pre-order, depth first, children
// in source order. If f returns false the node's children are skipped.
// Only Children are followed, so every node is visited exactly once.
func Inspect(n *Node, f func(*Node) bool) {
	if n == nil || !f(n) {
		return
	}
	for _, c := range n.Children {
		Inspect(c, f)
	}
}

// Count returns the number of nodes reachable from n.
func Count(n *Node) int {
	total := 0
	Inspect(n, func(*Node) bool { total++; return true })
	return total
}
