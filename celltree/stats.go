package celltree

// Stats describes the shape of a cell tree.
type Stats struct {
	Cells        int     `json:"cells"`
	Nodes        int     `json:"nodes"`
	Leaves       int     `json:"leaves"`
	Depth        int     `json:"depth"`
	MaxLeafSize  int     `json:"max_leaf_size"`
	MeanLeafSize float64 `json:"mean_leaf_size"`
}

// Stats walks the tree and returns its statistics.
func (idx *Index) Stats() Stats {
	stats := Stats{
		Cells: len(idx.cells),
		Nodes: len(idx.nodes),
	}

	type entry struct {
		node  int
		depth int
	}

	stack := []entry{{node: 0, depth: 1}}
	for len(stack) != 0 {
		e := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		stats.Depth = max(stats.Depth, e.depth)

		n := idx.nodes[e.node]
		if n.IsLeaf() {
			stats.Leaves++
			stats.MaxLeafSize = max(stats.MaxLeafSize, n.Size)
			continue
		}

		stack = append(stack,
			entry{node: n.left(), depth: e.depth + 1},
			entry{node: n.right(), depth: e.depth + 1},
		)
	}

	if stats.Leaves != 0 {
		stats.MeanLeafSize = float64(stats.Cells) / float64(stats.Leaves)
	}
	return stats
}
