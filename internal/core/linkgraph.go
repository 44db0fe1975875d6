package core

// LinkGraph is the object-level adjacency of all non-weak links:
// start object -> end object -> set of link keys. It answers loop queries
// before a link is committed.
type LinkGraph struct {
	adj map[*Object]map[*Object]map[string]struct{}
}

// NewLinkGraph returns an empty graph.
func NewLinkGraph() *LinkGraph {
	return &LinkGraph{adj: make(map[*Object]map[*Object]map[string]struct{})}
}

// AddLink inserts l. Weak links are ignored.
func (g *LinkGraph) AddLink(l Link) {
	if l.Weak {
		return
	}
	ends, ok := g.adj[l.Start.Object]
	if !ok {
		ends = make(map[*Object]map[string]struct{})
		g.adj[l.Start.Object] = ends
	}
	keys, ok := ends[l.End.Object]
	if !ok {
		keys = make(map[string]struct{})
		ends[l.End.Object] = keys
	}
	keys[l.Key()] = struct{}{}
}

// RemoveLink removes l by endpoint identity and drops emptied entries.
func (g *LinkGraph) RemoveLink(l Link) {
	ends, ok := g.adj[l.Start.Object]
	if !ok {
		return
	}
	keys, ok := ends[l.End.Object]
	if !ok {
		return
	}
	delete(keys, l.Key())
	if len(keys) == 0 {
		delete(ends, l.End.Object)
	}
	if len(ends) == 0 {
		delete(g.adj, l.Start.Object)
	}
}

// HasEdge reports whether at least one non-weak link runs from start to end.
func (g *LinkGraph) HasEdge(start, end *Object) bool {
	_, ok := g.adj[start][end]
	return ok
}

// Len returns the number of non-weak links in the graph.
func (g *LinkGraph) Len() int {
	n := 0
	for _, ends := range g.adj {
		for _, keys := range ends {
			n += len(keys)
		}
	}
	return n
}

// CreatesLoop reports whether a non-weak link from start to end would close
// a cycle: either both endpoints are on the same object, or end already
// reaches start.
func (g *LinkGraph) CreatesLoop(start, end PropertyDescriptor) bool {
	if start.Object == end.Object {
		return true
	}
	return g.Path(end.Object, start.Object) != nil
}

// Path returns a chain of objects from -> ... -> to along existing links,
// or nil when to is unreachable. The search is an iterative depth-first
// traversal that visits every object at most once.
func (g *LinkGraph) Path(from, to *Object) []*Object {
	if _, ok := g.adj[from]; !ok {
		return nil
	}
	prev := map[*Object]*Object{from: nil}
	stack := []*Object{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == to {
			var path []*Object
			for o := cur; o != nil; o = prev[o] {
				path = append([]*Object{o}, path...)
			}
			return path
		}
		for next := range g.adj[cur] {
			if _, seen := prev[next]; seen {
				continue
			}
			prev[next] = cur
			stack = append(stack, next)
		}
	}
	return nil
}
