package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cast"

	"github.com/ajitpratap0/scenecore/internal/core"
	"github.com/ajitpratap0/scenecore/internal/data"
)

// ErrSyntax is returned for malformed batch script lines.
var ErrSyntax = errors.New("syntax error")

// BatchReport summarizes a batch run.
type BatchReport struct {
	Lines    int `json:"lines"`
	Executed int `json:"executed"`
}

// Batch runs a line-based edit script. Each line holds one command:
//
//	create <Type> <name> [parent]
//	delete <object>...
//	set <object>.<property> <value>...
//	link <object>.<property> <object>.<property> [weak]
//	unlink <object>.<property>
//	move <object> <parent|-> [index]
//	duplicate <object>...
//	update-prefab <instance>...
//	undo
//	redo
//
// Objects are named by object name or ID. Arguments may be double-quoted.
// Lines starting with '#' are comments. Execution stops at the first
// failing line.
func (i *Interface) Batch(r io.Reader) (*BatchReport, error) {
	report := &BatchReport{}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		report.Lines++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		args, err := tokenize(line)
		if err != nil {
			return report, fmt.Errorf("line %d: %w", report.Lines, err)
		}
		if err := i.exec(args[0], args[1:]); err != nil {
			return report, fmt.Errorf("line %d: %s: %w", report.Lines, args[0], err)
		}
		report.Executed++
	}
	if err := sc.Err(); err != nil {
		return report, fmt.Errorf("reading batch script: %w", err)
	}
	i.logger.Debug("batch finished", "lines", report.Lines, "executed", report.Executed)
	return report, nil
}

func tokenize(line string) ([]string, error) {
	var out []string
	for rest := strings.TrimSpace(line); rest != ""; rest = strings.TrimSpace(rest) {
		if rest[0] == '"' {
			q, err := strconv.QuotedPrefix(rest)
			if err != nil {
				return nil, fmt.Errorf("%w: unterminated string", ErrSyntax)
			}
			s, _ := strconv.Unquote(q)
			out = append(out, s)
			rest = rest[len(q):]
			continue
		}
		end := strings.IndexAny(rest, " \t")
		if end < 0 {
			end = len(rest)
		}
		out = append(out, rest[:end])
		rest = rest[end:]
	}
	return out, nil
}

func arity(args []string, min, max int) error {
	if len(args) < min || (max >= 0 && len(args) > max) {
		return fmt.Errorf("%w: got %d arguments", ErrSyntax, len(args))
	}
	return nil
}

func (i *Interface) exec(verb string, args []string) error {
	switch verb {
	case "create":
		if err := arity(args, 2, 3); err != nil {
			return err
		}
		var parent *core.Object
		if len(args) == 3 {
			p, err := i.lookup(args[2])
			if err != nil {
				return err
			}
			parent = p
		}
		_, err := i.CreateObject(args[0], args[1], parent)
		return err

	case "delete":
		objs, err := i.lookupAll(args)
		if err != nil {
			return err
		}
		_, err = i.DeleteObjects(objs)
		return err

	case "set":
		if err := arity(args, 2, -1); err != nil {
			return err
		}
		h, err := i.property(args[0])
		if err != nil {
			return err
		}
		return i.setFromText(h, args[1:])

	case "link":
		if err := arity(args, 2, 3); err != nil {
			return err
		}
		weak := false
		if len(args) == 3 {
			if args[2] != "weak" {
				return fmt.Errorf("%w: unexpected %q", ErrSyntax, args[2])
			}
			weak = true
		}
		start, err := i.descriptor(args[0])
		if err != nil {
			return err
		}
		end, err := i.descriptor(args[1])
		if err != nil {
			return err
		}
		_, err = i.AddLink(start, end, weak)
		return err

	case "unlink":
		if err := arity(args, 1, 1); err != nil {
			return err
		}
		end, err := i.descriptor(args[0])
		if err != nil {
			return err
		}
		_, err = i.RemoveLink(end)
		return err

	case "move":
		if err := arity(args, 2, 3); err != nil {
			return err
		}
		obj, err := i.lookup(args[0])
		if err != nil {
			return err
		}
		var parent *core.Object
		if args[1] != "-" {
			if parent, err = i.lookup(args[1]); err != nil {
				return err
			}
		}
		index := -1
		if len(args) == 3 {
			if index, err = cast.ToIntE(args[2]); err != nil {
				return fmt.Errorf("%w: index %q", ErrSyntax, args[2])
			}
		}
		_, err = i.MoveScenegraphChildren([]*core.Object{obj}, parent, index)
		return err

	case "duplicate":
		objs, err := i.lookupAll(args)
		if err != nil {
			return err
		}
		_, err = i.Duplicate(objs)
		return err

	case "update-prefab":
		if err := arity(args, 1, -1); err != nil {
			return err
		}
		objs, err := i.lookupAll(args)
		if err != nil {
			return err
		}
		return i.UpdatePrefabInstances(objs)

	case "undo":
		if err := arity(args, 0, 0); err != nil {
			return err
		}
		return i.Undo()

	case "redo":
		if err := arity(args, 0, 0); err != nil {
			return err
		}
		return i.Redo()
	}
	return fmt.Errorf("%w: unknown command", ErrSyntax)
}

// lookup finds an object by ID, then by name. With duplicate names the
// first object in project order wins.
func (i *Interface) lookup(name string) (*core.Object, error) {
	p := i.ctx.Project()
	if o := p.Object(name); o != nil {
		return o, nil
	}
	for _, o := range p.Instances() {
		if o.Name() == name {
			return o, nil
		}
	}
	return nil, fmt.Errorf("%w: no object %q", core.ErrNotInProject, name)
}

func (i *Interface) lookupAll(names []string) ([]*core.Object, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no objects given", ErrSyntax)
	}
	objs := make([]*core.Object, 0, len(names))
	for _, n := range names {
		o, err := i.lookup(n)
		if err != nil {
			return nil, err
		}
		objs = append(objs, o)
	}
	return objs, nil
}

func (i *Interface) descriptor(path string) (core.PropertyDescriptor, error) {
	obj, prop, ok := strings.Cut(path, ".")
	if !ok || prop == "" {
		return core.PropertyDescriptor{}, fmt.Errorf("%w: %q is not <object>.<property>", ErrSyntax, path)
	}
	o, err := i.lookup(obj)
	if err != nil {
		return core.PropertyDescriptor{}, err
	}
	return core.Describe(o, prop), nil
}

func (i *Interface) property(path string) (core.Handle, error) {
	d, err := i.descriptor(path)
	if err != nil {
		return core.Handle{}, err
	}
	h, ok := d.Resolve()
	if !ok {
		return core.Handle{}, fmt.Errorf("%w: %s", core.ErrInvalidHandle, d)
	}
	return h, nil
}

func (i *Interface) setFromText(h core.Handle, args []string) error {
	v := h.Value()
	if len(h.Names()) == 1 {
		switch h.Names()[0] {
		case core.PropObjectName:
			if err := arity(args, 1, 1); err != nil {
				return err
			}
			return i.SetName(h.Object(), args[0])
		case core.PropUserTags:
			return i.SetTags(h.Object(), args)
		}
	}
	if v.Kind() == data.KindStruct {
		s, _ := v.AsStruct()
		if len(args) != s.Size() {
			return fmt.Errorf("%w: %s takes %d values", ErrSyntax, s.TypeName(), s.Size())
		}
		s = s.Clone(nil)
		for j, a := range args {
			if err := parseInto(s.At(j), a); err != nil {
				return err
			}
		}
		return i.SetStruct(h, s)
	}
	if err := arity(args, 1, 1); err != nil {
		return err
	}
	arg := args[0]
	switch v.Kind() {
	case data.KindBool:
		b, err := cast.ToBoolE(arg)
		if err != nil {
			return fmt.Errorf("%w: %v", data.ErrTypeMismatch, err)
		}
		return i.SetBool(h, b)
	case data.KindInt:
		n, err := cast.ToInt32E(arg)
		if err != nil {
			return fmt.Errorf("%w: %v", data.ErrTypeMismatch, err)
		}
		return i.SetInt(h, n)
	case data.KindInt64:
		n, err := cast.ToInt64E(arg)
		if err != nil {
			return fmt.Errorf("%w: %v", data.ErrTypeMismatch, err)
		}
		return i.SetInt64(h, n)
	case data.KindDouble:
		d, err := cast.ToFloat64E(arg)
		if err != nil {
			return fmt.Errorf("%w: %v", data.ErrTypeMismatch, err)
		}
		return i.SetDouble(h, d)
	case data.KindString:
		return i.SetString(h, arg)
	case data.KindRef:
		if arg == "-" {
			return i.SetRef(h, nil)
		}
		target, err := i.lookup(arg)
		if err != nil {
			return err
		}
		return i.SetRef(h, target)
	}
	return fmt.Errorf("%w: cannot set %s from text", data.ErrTypeMismatch, v.Kind())
}

// parseInto stores the scalar text arg in v.
func parseInto(v *data.Value, arg string) error {
	var err error
	switch v.Kind() {
	case data.KindBool:
		var b bool
		if b, err = cast.ToBoolE(arg); err == nil {
			_, err = v.SetBool(b)
		}
	case data.KindInt:
		var n int32
		if n, err = cast.ToInt32E(arg); err == nil {
			_, err = v.SetInt(n)
		}
	case data.KindInt64:
		var n int64
		if n, err = cast.ToInt64E(arg); err == nil {
			_, err = v.SetInt64(n)
		}
	case data.KindDouble:
		var d float64
		if d, err = cast.ToFloat64E(arg); err == nil {
			_, err = v.SetDouble(d)
		}
	case data.KindString:
		_, err = v.SetString(arg)
	default:
		return fmt.Errorf("%w: cannot set %s from text", data.ErrTypeMismatch, v.Kind())
	}
	if err != nil {
		return fmt.Errorf("%w: %v", data.ErrTypeMismatch, err)
	}
	return nil
}
