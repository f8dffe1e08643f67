package celltree

import "github.com/golang/geo/r2"

const noChild = -1

// Node is an entry of the flat node array of a cell tree.
//
// A leaf owns the Size cell ids stored at Ptr in the tree permutation. An
// internal node splits its cells along Dim (0 = x, 1 = y): Lmax is the
// largest upper bound of the left child's boxes and Rmin the smallest lower
// bound of the right child's boxes. The children are stored at Child and
// Child+1.
type Node struct {
	Box   r2.Rect
	Dim   int
	Lmax  float64
	Rmin  float64
	Child int
	Ptr   int
	Size  int
}

// IsLeaf reports whether the node has no children.
func (n Node) IsLeaf() bool {
	return n.Child == noChild
}

func (n Node) left() int {
	return n.Child
}

func (n Node) right() int {
	return n.Child + 1
}
