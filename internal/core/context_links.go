package core

import (
	"github.com/ajitpratap0/scenecore/internal/data"
)

// AddLink connects start to end. Any link already driving end, a property
// below it, or a property above it is removed first. Non-weak links that
// would close a loop in the link graph are rejected with ErrCycle; weak
// links are exempt from the check.
func (c *Context) AddLink(start, end PropertyDescriptor, weak bool) (*Link, error) {
	for _, o := range []*Object{start.Object, end.Object} {
		if err := c.checkWritable(o); err != nil {
			return nil, err
		}
	}
	if !weak {
		if start.Object == end.Object {
			return nil, cycleError(start, end, []*Object{start.Object})
		}
		if path := c.project.graph.Path(end.Object, start.Object); path != nil {
			return nil, cycleError(start, end, path)
		}
	}

	for _, l := range c.project.LinksConnectedToPropertySubtree(end, false, true) {
		c.removeLink(*l)
	}
	for _, l := range c.project.LinksConnectedToPropertyParents(end, false) {
		c.removeLink(*l)
	}

	l := &Link{
		Start: PropertyDescriptor{Object: start.Object, Names: append([]string(nil), start.Names...)},
		End:   PropertyDescriptor{Object: end.Object, Names: append([]string(nil), end.Names...)},
		Weak:  weak,
	}
	l.Valid = c.LinkIsValid(*l)
	c.project.AddLink(l)
	c.changes.RecordAddLink(*l)
	c.updateBrokenLinkError(l.End.Object)
	c.logger.Debug("link added", "link", l.String())
	return l, nil
}

// RemoveLink removes the link driving end. It reports whether one existed.
func (c *Context) RemoveLink(end PropertyDescriptor) (bool, error) {
	if err := c.checkWritable(end.Object); err != nil {
		return false, err
	}
	l := c.project.LinkEndingAt(end)
	if l == nil {
		return false, nil
	}
	return c.removeLink(*l), nil
}

func (c *Context) removeLink(l Link) bool {
	existing := c.project.FindLink(l)
	if existing == nil {
		return false
	}
	c.project.RemoveLink(*existing)
	c.changes.RecordRemoveLink(*existing)
	c.updateBrokenLinkError(existing.End.Object)
	return true
}

// LinkIsValid reports whether both endpoints resolve, carry the link
// annotations and have the same value type.
func (c *Context) LinkIsValid(l Link) bool {
	sh, ok := l.Start.Resolve()
	if !ok {
		return false
	}
	eh, ok := l.End.Resolve()
	if !ok {
		return false
	}
	sv, ev := sh.Value(), eh.Value()
	if !sv.HasAnnotation(data.AnnotationLinkStart) || !ev.HasAnnotation(data.AnnotationLinkEnd) {
		return false
	}
	return ValueTypeName(sv) == ValueTypeName(ev)
}

// UpdateLinkValidity recomputes the validity flag of l and records a change.
func (c *Context) UpdateLinkValidity(l *Link) {
	c.setLinkValidity(l, c.LinkIsValid(*l))
}

func (c *Context) setLinkValidity(l *Link, valid bool) {
	if l.Valid == valid {
		return
	}
	l.Valid = valid
	c.changes.RecordChangeValidityOfLink(*l)
	c.updateBrokenLinkError(l.End.Object)
}

func (c *Context) updateLinkValidityUnder(prop PropertyDescriptor) {
	for _, l := range c.project.LinksConnectedToPropertySubtree(prop, true, true) {
		c.UpdateLinkValidity(l)
	}
}
