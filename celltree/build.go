package celltree

import (
	"math"

	"github.com/aukilabs/celltree/geometry"
	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
)

// split describes a candidate partition of a node: cells whose centre falls
// in a bucket lower or equal to bucket go to the left child.
type split struct {
	dim    int
	lo     float64
	width  float64
	bucket int
	lmax   float64
	rmin   float64
	nLeft  int
	cost   float64
}

type buildTask struct {
	node  int
	start int
	end   int
}

type builder struct {
	boxes        []r2.Rect
	centres      []r2.Point
	cells        []int
	nodes        []Node
	cellsPerLeaf int
	buckets      int

	counts   []int
	bucketLo []float64
	bucketHi []float64
	suffixLo []float64
	tmp      []int
}

// build constructs the node array and the cell permutation over the given
// cell boxes.
//
// A node with at most cellsPerLeaf cells is a leaf. Otherwise the centre
// range of its cells along the axis of greatest centre extent is divided
// into equal buckets, and every plane between two buckets is scored with
// nL*(Lmax-lo) + nR*(hi-Rmin). The cheapest plane wins. Cells are assigned
// to a child by their centre, so a cell crossing the plane is only reachable
// through the Lmax/Rmin overlap. Nodes whose centres all coincide stay
// leaves whatever their size.
func build(boxes []r2.Rect, cellsPerLeaf int, buckets int) ([]Node, []int) {
	b := builder{
		boxes:        boxes,
		centres:      make([]r2.Point, len(boxes)),
		cells:        make([]int, len(boxes)),
		nodes:        make([]Node, 1, nodeCapacity(len(boxes), cellsPerLeaf)),
		cellsPerLeaf: cellsPerLeaf,
		buckets:      buckets,
		counts:       make([]int, buckets),
		bucketLo:     make([]float64, buckets),
		bucketHi:     make([]float64, buckets),
		suffixLo:     make([]float64, buckets),
		tmp:          make([]int, 0, len(boxes)),
	}

	for i, box := range boxes {
		b.centres[i] = box.Center()
		b.cells[i] = i
	}

	stack := []buildTask{{node: 0, start: 0, end: len(boxes)}}
	for len(stack) != 0 {
		task := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		left, right, ok := b.splitNode(task)
		if ok {
			stack = append(stack, right, left)
		}
	}
	return b.nodes, b.cells
}

func nodeCapacity(cellCount int, cellsPerLeaf int) int {
	leaves := cellCount/cellsPerLeaf + 1
	return 2*leaves - 1
}

// splitNode fills the node of the task and, when it is split, appends its
// two children to the node array.
func (b *builder) splitNode(task buildTask) (buildTask, buildTask, bool) {
	cells := b.cells[task.start:task.end]
	n := len(cells)

	box := r2.EmptyRect()
	for _, c := range cells {
		box = box.Union(b.boxes[c])
	}

	b.nodes[task.node] = Node{
		Box:   box,
		Child: noChild,
		Ptr:   task.start,
		Size:  n,
	}

	if n <= b.cellsPerLeaf {
		return buildTask{}, buildTask{}, false
	}

	s, ok := b.bestSplit(cells)
	if !ok {
		return buildTask{}, buildTask{}, false
	}

	b.partition(cells, s)

	child := len(b.nodes)
	b.nodes = append(b.nodes, Node{Child: noChild}, Node{Child: noChild})

	node := &b.nodes[task.node]
	node.Dim = s.dim
	node.Lmax = s.lmax
	node.Rmin = s.rmin
	node.Child = child

	mid := task.start + s.nLeft
	left := buildTask{node: child, start: task.start, end: mid}
	right := buildTask{node: child + 1, start: mid, end: task.end}
	return left, right, true
}

// bestSplit tries the axis with the greatest centre extent first, then the
// other one.
func (b *builder) bestSplit(cells []int) (split, bool) {
	centres := r2.EmptyRect()
	for _, c := range cells {
		centres = centres.AddPoint(b.centres[c])
	}

	first := 0
	if centres.Y.Length() > centres.X.Length() {
		first = 1
	}

	for _, dim := range [2]int{first, 1 - first} {
		if s, ok := b.bestSplitAlong(cells, dim, geometry.BoxInterval(centres, dim)); ok {
			return s, true
		}
	}
	return split{}, false
}

func (b *builder) bestSplitAlong(cells []int, dim int, centres r1.Interval) (split, bool) {
	width := centres.Length()
	if !(width > 0) || math.IsInf(width, 0) {
		return split{}, false
	}

	for k := 0; k < b.buckets; k++ {
		b.counts[k] = 0
		b.bucketLo[k] = math.Inf(1)
		b.bucketHi[k] = math.Inf(-1)
	}

	extent := r1.EmptyInterval()
	for _, c := range cells {
		iv := geometry.BoxInterval(b.boxes[c], dim)
		extent = extent.Union(iv)

		k := b.bucketOf(geometry.Coord(b.centres[c], dim), centres.Lo, width)
		b.counts[k]++
		b.bucketLo[k] = math.Min(b.bucketLo[k], iv.Lo)
		b.bucketHi[k] = math.Max(b.bucketHi[k], iv.Hi)
	}

	b.suffixLo[b.buckets-1] = b.bucketLo[b.buckets-1]
	for k := b.buckets - 2; k >= 0; k-- {
		b.suffixLo[k] = math.Min(b.bucketLo[k], b.suffixLo[k+1])
	}

	n := len(cells)
	best := split{cost: math.Inf(1)}
	found := false

	nLeft := 0
	lmax := math.Inf(-1)
	for k := 0; k < b.buckets-1; k++ {
		nLeft += b.counts[k]
		lmax = math.Max(lmax, b.bucketHi[k])

		nRight := n - nLeft
		if nLeft == 0 || nRight == 0 {
			continue
		}

		rmin := b.suffixLo[k+1]
		cost := float64(nLeft)*(lmax-extent.Lo) + float64(nRight)*(extent.Hi-rmin)

		if !found || cost < best.cost ||
			(cost == best.cost && imbalance(nLeft, n) < imbalance(best.nLeft, n)) {
			best = split{
				dim:    dim,
				lo:     centres.Lo,
				width:  width,
				bucket: k,
				lmax:   lmax,
				rmin:   rmin,
				nLeft:  nLeft,
				cost:   cost,
			}
			found = true
		}
	}
	return best, found
}

func imbalance(nLeft int, n int) int {
	d := 2*nLeft - n
	if d < 0 {
		return -d
	}
	return d
}

func (b *builder) bucketOf(c float64, lo float64, width float64) int {
	k := int((c - lo) / width * float64(b.buckets))
	if k < 0 {
		return 0
	}
	if k >= b.buckets {
		return b.buckets - 1
	}
	return k
}

// partition reorders cells so that the cells of the left child come first.
// The relative order of cells is kept on both sides.
func (b *builder) partition(cells []int, s split) {
	b.tmp = b.tmp[:0]

	i := 0
	for _, c := range cells {
		if b.bucketOf(geometry.Coord(b.centres[c], s.dim), s.lo, s.width) <= s.bucket {
			cells[i] = c
			i++
		} else {
			b.tmp = append(b.tmp, c)
		}
	}
	copy(cells[i:], b.tmp)
}
