package dom

import "golang.org/x/net/html"

// Index assigns stable integer ids to elements in pre-order so that remote
// callers can refer to elements of a document the engine holds.
type Index struct {
	ids   map[*html.Node]int
	nodes []*html.Node
}

// NewIndex numbers every element under root. Elements added later are
// registered with Add.
func NewIndex(root *html.Node) *Index {
	idx := &Index{ids: make(map[*html.Node]int)}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			idx.Add(n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	return idx
}

// Add registers n and returns its id. Re-adding returns the existing id.
func (x *Index) Add(n *html.Node) int {
	if id, ok := x.ids[n]; ok {
		return id
	}
	id := len(x.nodes)
	x.nodes = append(x.nodes, n)
	x.ids[n] = id
	return id
}

func (x *Index) ID(n *html.Node) (int, bool) {
	id, ok := x.ids[n]
	return id, ok
}

func (x *Index) Node(id int) (*html.Node, bool) {
	if id < 0 || id >= len(x.nodes) {
		return nil, false
	}
	n := x.nodes[id]
	return n, n != nil
}

func (x *Index) Len() int {
	return len(x.nodes)
}
