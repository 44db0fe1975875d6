package core

import (
	"fmt"
	"regexp"
	"strconv"
)

// Project is the set of live objects and links. It keeps an ID index for
// objects, start/end indices for links and the link graph for loop checks.
//
// A Project is also the storage format of undo snapshots; a frozen project
// and its objects are never mutated through a Context.
type Project struct {
	instances []*Object
	byID      map[string]*Object

	links   []*Link
	byStart map[string][]*Link
	byEnd   map[string][]*Link
	graph   *LinkGraph

	frozen bool
}

// NewProject returns an empty project.
func NewProject() *Project {
	return &Project{
		byID:    make(map[string]*Object),
		byStart: make(map[string][]*Link),
		byEnd:   make(map[string][]*Link),
		graph:   NewLinkGraph(),
	}
}

// Instances returns all objects in insertion order.
func (p *Project) Instances() []*Object {
	return append([]*Object(nil), p.instances...)
}

// Len returns the number of objects.
func (p *Project) Len() int { return len(p.instances) }

// Object returns the object with the given ID, or nil.
func (p *Project) Object(id string) *Object { return p.byID[id] }

// Contains reports whether obj itself, not just an object with its ID, is part of p.
func (p *Project) Contains(obj *Object) bool {
	return obj != nil && p.byID[obj.ObjectID()] == obj
}

// AddInstance appends obj to the project.
func (p *Project) AddInstance(obj *Object) error {
	id := obj.ObjectID()
	if _, exists := p.byID[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	p.instances = append(p.instances, obj)
	p.byID[id] = obj
	return nil
}

// RemoveInstances removes the given objects. Links are not touched.
func (p *Project) RemoveInstances(objs []*Object) {
	drop := make(map[*Object]bool, len(objs))
	for _, o := range objs {
		if p.Contains(o) {
			drop[o] = true
			delete(p.byID, o.ObjectID())
		}
	}
	kept := p.instances[:0]
	for _, o := range p.instances {
		if !drop[o] {
			kept = append(kept, o)
		}
	}
	for i := len(kept); i < len(p.instances); i++ {
		p.instances[i] = nil
	}
	p.instances = kept
}

// RootObjects returns the objects without a parent, in project order.
func (p *Project) RootObjects() []*Object {
	var out []*Object
	for _, o := range p.instances {
		if o.parent == nil {
			out = append(out, o)
		}
	}
	return out
}

// Links returns all links in insertion order.
func (p *Project) Links() []*Link {
	return append([]*Link(nil), p.links...)
}

// Graph returns the link graph of non-weak links.
func (p *Project) Graph() *LinkGraph { return p.graph }

// AddLink inserts l into all link indices. The caller is responsible for
// loop checks and change recording.
func (p *Project) AddLink(l *Link) {
	p.links = append(p.links, l)
	p.byStart[l.Start.Object.ObjectID()] = append(p.byStart[l.Start.Object.ObjectID()], l)
	p.byEnd[l.End.Object.ObjectID()] = append(p.byEnd[l.End.Object.ObjectID()], l)
	p.graph.AddLink(*l)
}

// RemoveLink removes the link with the same endpoints as l.
func (p *Project) RemoveLink(l Link) {
	p.links = removeLinkFrom(p.links, l)
	startID, endID := l.Start.Object.ObjectID(), l.End.Object.ObjectID()
	if rest := removeLinkFrom(p.byStart[startID], l); len(rest) > 0 {
		p.byStart[startID] = rest
	} else {
		delete(p.byStart, startID)
	}
	if rest := removeLinkFrom(p.byEnd[endID], l); len(rest) > 0 {
		p.byEnd[endID] = rest
	} else {
		delete(p.byEnd, endID)
	}
	p.graph.RemoveLink(l)
}

func removeLinkFrom(list []*Link, l Link) []*Link {
	out := list[:0:0]
	for _, x := range list {
		if !x.SameEndpoints(l) {
			out = append(out, x)
		}
	}
	return out
}

// FindLink returns the link with the same endpoints as l.
func (p *Project) FindLink(l Link) *Link {
	for _, x := range p.byEnd[l.End.Object.ObjectID()] {
		if x.SameEndpoints(l) {
			return x
		}
	}
	return nil
}

// FindLinkByObjectID returns the link whose endpoints have the same object
// IDs and paths as l, which may belong to another project.
func (p *Project) FindLinkByObjectID(l Link) *Link {
	for _, x := range p.byEnd[l.End.Object.ObjectID()] {
		if x.SameEndpointsByID(l) {
			return x
		}
	}
	return nil
}

// LinkEndingAt returns the link that drives exactly end, if any.
func (p *Project) LinkEndingAt(end PropertyDescriptor) *Link {
	if end.Object == nil {
		return nil
	}
	for _, x := range p.byEnd[end.Object.ObjectID()] {
		if x.End.Equal(end) {
			return x
		}
	}
	return nil
}

// LinksConnectedTo returns the links starting and/or ending on obj.
func (p *Project) LinksConnectedTo(obj *Object, starting, ending bool) []*Link {
	var out []*Link
	if starting {
		out = append(out, p.byStart[obj.ObjectID()]...)
	}
	if ending {
		for _, l := range p.byEnd[obj.ObjectID()] {
			if starting && l.Start.Object == obj {
				continue
			}
			out = append(out, l)
		}
	}
	return out
}

// LinksConnectedToPropertySubtree returns the links whose start and/or end
// lies at or below prop.
func (p *Project) LinksConnectedToPropertySubtree(prop PropertyDescriptor, starting, ending bool) []*Link {
	var out []*Link
	for _, l := range p.LinksConnectedTo(prop.Object, starting, ending) {
		if (starting && prop.Contains(l.Start)) || (ending && prop.Contains(l.End)) {
			out = append(out, l)
		}
	}
	return out
}

// LinksConnectedToPropertyParents returns the links ending strictly above
// prop, plus the link ending on prop itself when includeSelf is set.
func (p *Project) LinksConnectedToPropertyParents(prop PropertyDescriptor, includeSelf bool) []*Link {
	var out []*Link
	for _, l := range p.byEnd[prop.Object.ObjectID()] {
		if !l.End.Contains(prop) {
			continue
		}
		if !includeSelf && len(l.End.Names) == len(prop.Names) {
			continue
		}
		out = append(out, l)
	}
	return out
}

// CreatesLoop reports whether a non-weak link from start to end would close a cycle.
func (p *Project) CreatesLoop(start, end PropertyDescriptor) bool {
	return p.graph.CreatesLoop(start, end)
}

// Freeze marks the project and all its objects read-only.
func (p *Project) Freeze() {
	p.frozen = true
	for _, o := range p.instances {
		o.frozen = true
	}
}

// Frozen reports whether the project is a committed snapshot.
func (p *Project) Frozen() bool { return p.frozen }

var uniqueNameSuffix = regexp.MustCompile(`^(.*) \((\d+)\)$`)

// FindAvailableUniqueName returns name if no object in siblings uses it,
// otherwise the first free "name (N)".
func FindAvailableUniqueName(siblings []*Object, name string) string {
	taken := make(map[string]bool, len(siblings))
	for _, o := range siblings {
		taken[o.Name()] = true
	}
	if !taken[name] {
		return name
	}
	base, n := name, 1
	if m := uniqueNameSuffix.FindStringSubmatch(name); m != nil {
		base = m[1]
		if parsed, err := strconv.Atoi(m[2]); err == nil {
			n = parsed + 1
		}
	}
	for {
		candidate := fmt.Sprintf("%s (%d)", base, n)
		if !taken[candidate] {
			return candidate
		}
		n++
	}
}
