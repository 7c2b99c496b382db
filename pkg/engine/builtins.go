package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/uvreg/pkg/csg"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpShape wraps a primitive payload returned from box/cylinder/sphere and
// consumed by solid.
type sexpShape struct {
	data csg.NodeData
}

func (s *sexpShape) SexpString(ps *zygo.PrintState) string {
	switch d := s.data.(type) {
	case csg.BoxData:
		return fmt.Sprintf("(box %gx%gx%g)", d.Size.X, d.Size.Y, d.Size.Z)
	case csg.CylinderData:
		return fmt.Sprintf("(cylinder r=%g h=%g)", d.Radius, d.Height)
	case csg.SphereData:
		return fmt.Sprintf("(sphere r=%g)", d.Radius)
	}
	return "(shape)"
}
func (s *sexpShape) Type() *zygo.RegisteredType { return nil }

// sexpNodeRef wraps a csg.NodeID so it can be passed between builtins.
type sexpNodeRef struct {
	id   csg.NodeID
	name string // human-readable name for error messages
}

func (n *sexpNodeRef) SexpString(ps *zygo.PrintState) string {
	if n.name != "" {
		return fmt.Sprintf("(noderef %q)", n.name)
	}
	return fmt.Sprintf("(noderef %s)", n.id.Short())
}
func (n *sexpNodeRef) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps a csg.Vec3.
type sexpVec3 struct {
	vec csg.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Argument parsing
// ---------------------------------------------------------------------------

// isKW checks if a Sexp is a preprocessed keyword string and returns the
// keyword name without its prefix.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// float reads keyword key as a number; ok is false when the keyword is absent.
func (a kwArgs) float(key string) (v float64, ok bool, err error) {
	s, ok := a.kw[key]
	if !ok {
		return 0, false, nil
	}
	v, err = toFloat64(s)
	if err != nil {
		return 0, true, fmt.Errorf("%s: %w", key, err)
	}
	return v, true, nil
}

// vec reads keyword key as a vec3; ok is false when the keyword is absent.
func (a kwArgs) vec(key string) (v csg.Vec3, ok bool, err error) {
	s, ok := a.kw[key]
	if !ok {
		return csg.Vec3{}, false, nil
	}
	v, err = toVec3(s)
	if err != nil {
		return csg.Vec3{}, true, fmt.Errorf("%s: %w", key, err)
	}
	return v, true, nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toNodeRef extracts a node reference.
func toNodeRef(s zygo.Sexp) (*sexpNodeRef, error) {
	if ref, ok := s.(*sexpNodeRef); ok {
		return ref, nil
	}
	return nil, fmt.Errorf("expected node reference, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a Vec3 from a sexpVec3.
func toVec3(s zygo.Sexp) (csg.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return csg.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

func positive(what string, v float64) error {
	if v <= 0 {
		return fmt.Errorf("%s must be positive, got %g", what, v)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the solid script builtins into a zygomys
// environment. They populate t during evaluation.
//
// Root bookkeeping: every solid starts as a root; place and assembly adopt
// their children and take over the earliest child's root position. A solid
// that is never placed therefore stays a root on its own, and root order
// follows the order solids were first defined.
func registerBuiltins(env *zygo.Zlisp, t *csg.Tree) {

	// (vec3 1 2 3)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var xyz [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: component %d: %w", i, err)
			}
			xyz[i] = f
		}
		return &sexpVec3{vec: csg.Vec3{X: xyz[0], Y: xyz[1], Z: xyz[2]}}, nil
	})

	// (box :size (vec3 40 20 5)) or (box 40 20 5)
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		size, ok, err := pa.vec("size")
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box: %w", err)
		}
		if !ok {
			if len(pa.positional) != 3 {
				return zygo.SexpNull, fmt.Errorf("box requires :size or 3 dimensions")
			}
			var xyz [3]float64
			for i, a := range pa.positional {
				if xyz[i], err = toFloat64(a); err != nil {
					return zygo.SexpNull, fmt.Errorf("box: dimension %d: %w", i, err)
				}
			}
			size = csg.Vec3{X: xyz[0], Y: xyz[1], Z: xyz[2]}
		}
		if size.X < 0 || size.Y < 0 || size.Z < 0 {
			return zygo.SexpNull, fmt.Errorf("box: dimensions must not be negative, got %v", size)
		}
		return &sexpShape{data: csg.BoxData{Size: size}}, nil
	})

	// (cylinder :radius 5 :height 20)
	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		r, ok, err := pa.float("radius")
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		if !ok {
			return zygo.SexpNull, fmt.Errorf("cylinder requires :radius")
		}
		h, ok, err := pa.float("height")
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		if !ok {
			return zygo.SexpNull, fmt.Errorf("cylinder requires :height")
		}
		if err := positive("cylinder: radius", r); err != nil {
			return zygo.SexpNull, err
		}
		if err := positive("cylinder: height", h); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpShape{data: csg.CylinderData{Radius: r, Height: h}}, nil
	})

	// (sphere :radius 10)
	env.AddFunction("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		r, ok, err := pa.float("radius")
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: %w", err)
		}
		if !ok {
			return zygo.SexpNull, fmt.Errorf("sphere requires :radius")
		}
		if err := positive("sphere: radius", r); err != nil {
			return zygo.SexpNull, err
		}
		return &sexpShape{data: csg.SphereData{Radius: r}}, nil
	})

	// (solid "name" (box ...))
	env.AddFunction("solid", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 2 {
			return zygo.SexpNull, fmt.Errorf("solid requires a name and a shape expression")
		}
		solidName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("solid: name: %w", err)
		}
		if t.Lookup(solidName) != nil {
			return zygo.SexpNull, fmt.Errorf("solid: %q already defined", solidName)
		}
		shape, ok := args[1].(*sexpShape)
		if !ok {
			return zygo.SexpNull, fmt.Errorf("solid: expected shape expression, got %T", args[1])
		}

		id := csg.NewNodeID("solid/" + solidName)
		t.AddNode(&csg.Node{
			ID:   id,
			Kind: csg.NodePrimitive,
			Name: solidName,
			Data: shape.data,
		})
		t.AddRoot(id)

		return &sexpNodeRef{id: id, name: solidName}, nil
	})

	// (solid-ref "name")
	env.AddFunction("solid_ref", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("solid-ref requires a name argument")
		}
		solidName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("solid-ref: name: %w", err)
		}
		n := t.Lookup(solidName)
		if n == nil {
			return zygo.SexpNull, fmt.Errorf("solid-ref: no solid named %q", solidName)
		}
		return &sexpNodeRef{id: n.ID, name: solidName}, nil
	})

	// (place ref :at (vec3 0 0 10) :rotate (vec3 0 0 90))
	env.AddFunction("place", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("place requires a solid reference as first argument")
		}
		child, err := toNodeRef(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("place: %w", err)
		}

		td := csg.TransformData{}
		if v, ok, err := pa.vec("at"); err != nil {
			return zygo.SexpNull, fmt.Errorf("place: %w", err)
		} else if ok {
			td.Translation = &v
		}
		if v, ok, err := pa.vec("rotate"); err != nil {
			return zygo.SexpNull, fmt.Errorf("place: %w", err)
		} else if ok {
			td.Rotation = &v
		}

		// The node count keeps repeated placements of one solid distinct
		// while staying deterministic across evaluations.
		id := csg.NewNodeID(fmt.Sprintf("place/%s/%d", child.id.Short(), t.NodeCount()))
		t.AddNode(&csg.Node{
			ID:       id,
			Kind:     csg.NodeTransform,
			Children: []csg.NodeID{child.id},
			Data:     td,
		})
		t.AdoptRoots(id, child.id)

		return &sexpNodeRef{id: id, name: child.name}, nil
	})

	// (assembly "name" ref ref ...)
	env.AddFunction("assembly", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 {
			return zygo.SexpNull, fmt.Errorf("assembly requires a name argument")
		}
		asmName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("assembly: name: %w", err)
		}

		var children []csg.NodeID
		for i := 1; i < len(args); i++ {
			ref, err := toNodeRef(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("assembly: child %d: %w", i, err)
			}
			children = append(children, ref.id)
		}

		id := csg.NewNodeID("assembly/" + asmName)
		t.AddNode(&csg.Node{
			ID:       id,
			Kind:     csg.NodeGroup,
			Name:     asmName,
			Children: children,
			Data:     csg.GroupData{},
		})
		t.AdoptRoots(id, children...)

		return &sexpNodeRef{id: id, name: asmName}, nil
	})
}
