package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/geoview/pkg/kernel"
	"github.com/chazu/geoview/pkg/scene"
	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/go-gl/mathgl/mgl64"
)

// defaultSegments is passed to the kernel when a cylinder names none.
const defaultSegments = 32

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpSolid wraps a kernel.Solid returned from a primitive builtin.
type sexpSolid struct {
	solid kernel.Solid
}

func (s *sexpSolid) SexpString(ps *zygo.PrintState) string {
	if str, ok := s.solid.(fmt.Stringer); ok {
		return "(solid " + str.String() + ")"
	}
	return "(solid)"
}
func (s *sexpSolid) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps an mgl64.Vec3.
type sexpVec3 struct {
	vec mgl64.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec[0], v.vec[1], v.vec[2])
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpPlacement wraps a placement returned from `volume` or `world`.
type sexpPlacement struct {
	p *scene.Placement
}

func (p *sexpPlacement) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(volume %q)", p.p.Name)
}
func (p *sexpPlacement) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
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
			// Trailing keyword with no value.
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
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

// toVec3 accepts a (vec3 ...) value or a list/array of three numbers.
func toVec3(s zygo.Sexp) (mgl64.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	items, err := sexpListToSlice(s)
	if err != nil || len(items) != 3 {
		return mgl64.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
	}
	var v mgl64.Vec3
	for i, item := range items {
		if v[i], err = toFloat64(item); err != nil {
			return mgl64.Vec3{}, fmt.Errorf("vec3 component %d: %w", i, err)
		}
	}
	return v, nil
}

// toSolid extracts a solid from a sexpSolid.
func toSolid(s zygo.Sexp) (kernel.Solid, error) {
	if v, ok := s.(*sexpSolid); ok {
		return v.solid, nil
	}
	return nil, fmt.Errorf("expected solid, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// numberArg reads a required number given either as a keyword or as the
// positional argument at index pos.
func numberArg(fn, key string, pa kwArgs, pos int) (float64, error) {
	if v, ok := pa.kw[key]; ok {
		f, err := toFloat64(v)
		if err != nil {
			return 0, fmt.Errorf("%s: %s: %w", fn, key, err)
		}
		return f, nil
	}
	if pos >= 0 && pos < len(pa.positional) {
		f, err := toFloat64(pa.positional[pos])
		if err != nil {
			return 0, fmt.Errorf("%s: %s: %w", fn, key, err)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%s requires %s", fn, key)
}

// ---------------------------------------------------------------------------
// Scene builder
// ---------------------------------------------------------------------------

// builder accumulates the state of one evaluation.
type builder struct {
	k       kernel.Kernel
	solids  map[string]kernel.Solid
	world   *scene.Placement
	volumes []*scene.Placement
}

func newBuilder(k kernel.Kernel) *builder {
	return &builder{k: k, solids: make(map[string]kernel.Solid)}
}

// warnings reports volumes that were defined but never placed in the world.
func (b *builder) warnings() []EvalWarning {
	var out []EvalWarning
	for _, v := range b.volumes {
		if v.Parent() == nil {
			out = append(out, EvalWarning{Name: v.Name, Message: "defined but never placed"})
		}
	}
	return out
}

// attach adds every placement in args (or in lists within args) as a child
// of parent, in order.
func (b *builder) attach(fn string, parent *scene.Placement, args []zygo.Sexp) error {
	for i, a := range args {
		if a == zygo.SexpNull {
			continue
		}
		if _, isList := a.(*zygo.SexpPair); isList {
			items, err := sexpListToSlice(a)
			if err != nil {
				return fmt.Errorf("%s: child %d: %w", fn, i, err)
			}
			if err := b.attach(fn, parent, items); err != nil {
				return err
			}
			continue
		}
		sp, ok := a.(*sexpPlacement)
		if !ok {
			return fmt.Errorf("%s: child %d: expected volume, got %T (%s)", fn, i, a, a.SexpString(nil))
		}
		if sp.p == b.world {
			return fmt.Errorf("%s: the world cannot be placed inside %q", fn, parent.Name)
		}
		if sp.p.Parent() != nil {
			return fmt.Errorf("%s: volume %q is already placed in %q", fn, sp.p.Name, sp.p.Parent().Name)
		}
		parent.AddChild(sp.p)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the scene builtins into a zygomys environment.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *builder) {

	// (box 10 20 30) or (box :x 10 :y 20 :z 30)
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		var dims [3]float64
		for i, key := range []string{"x", "y", "z"} {
			f, err := numberArg("box", key, pa, i)
			if err != nil {
				return zygo.SexpNull, err
			}
			dims[i] = f
		}
		s, err := b.k.Box(dims[0], dims[1], dims[2])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("box: %w", err)
		}
		return &sexpSolid{solid: s}, nil
	})

	// (sphere 5) or (sphere :radius 5)
	env.AddFunction("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		r, err := numberArg("sphere", "radius", parseArgs(args), 0)
		if err != nil {
			return zygo.SexpNull, err
		}
		s, err := b.k.Sphere(r)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("sphere: %w", err)
		}
		return &sexpSolid{solid: s}, nil
	})

	// (cylinder :height 10 :radius 2 :segments 48)
	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		h, err := numberArg("cylinder", "height", pa, 0)
		if err != nil {
			return zygo.SexpNull, err
		}
		r, err := numberArg("cylinder", "radius", pa, 1)
		if err != nil {
			return zygo.SexpNull, err
		}
		segments := defaultSegments
		if _, ok := pa.kw["segments"]; ok {
			n, err := numberArg("cylinder", "segments", pa, -1)
			if err != nil {
				return zygo.SexpNull, err
			}
			segments = int(n)
		}
		s, err := b.k.Cylinder(h, r, segments)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("cylinder: %w", err)
		}
		return &sexpSolid{solid: s}, nil
	})

	// (inch 2) converts a length to kernel units; mm and cm work the same way.
	for _, unit := range []string{"mm", "cm", "inch"} {
		scale, err := kernel.UnitScale(unit)
		if err != nil {
			panic(err)
		}
		env.AddFunction(unit, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 1 {
				return zygo.SexpNull, fmt.Errorf("%s requires exactly 1 argument, got %d", name, len(args))
			}
			f, err := toFloat64(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", name, err)
			}
			return &zygo.SexpFloat{Val: f * scale}, nil
		})
	}

	// (vec3 1 2 3)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var v mgl64.Vec3
		for i, axis := range []string{"x", "y", "z"} {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", axis, err)
			}
			v[i] = f
		}
		return &sexpVec3{vec: v}, nil
	})

	// (defsolid "name" (box ...))
	env.AddFunction("defsolid", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("defsolid requires a name and a solid expression")
		}
		solidName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defsolid: name: %w", err)
		}
		s, err := toSolid(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defsolid: %w", err)
		}
		if _, dup := b.solids[solidName]; dup {
			return zygo.SexpNull, fmt.Errorf("defsolid: solid %q already defined", solidName)
		}
		b.solids[solidName] = s
		return &sexpSolid{solid: s}, nil
	})

	// (solid "name")
	env.AddFunction("solid", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("solid requires a name argument")
		}
		solidName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("solid: name: %w", err)
		}
		s, ok := b.solids[solidName]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("solid: no solid named %q", solidName)
		}
		return &sexpSolid{solid: s}, nil
	})

	// (volume "name" solid :at (vec3 ...) :rotate (vec3 ...) children...)
	env.AddFunction("volume", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 2 {
			return zygo.SexpNull, fmt.Errorf("volume requires a name and a solid")
		}
		volName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("volume: name: %w", err)
		}
		s, err := toSolid(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("volume %q: %w", volName, err)
		}

		var at, rot mgl64.Vec3
		if v, ok := pa.kw["at"]; ok {
			if at, err = toVec3(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("volume %q: at: %w", volName, err)
			}
		}
		if v, ok := pa.kw["rotate"]; ok {
			if rot, err = toVec3(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("volume %q: rotate: %w", volName, err)
			}
		}

		p := scene.New(volName, s, kernel.NewTransform(rot, at))
		if err := b.attach("volume "+volName, p, pa.positional[2:]); err != nil {
			return zygo.SexpNull, err
		}
		b.volumes = append(b.volumes, p)
		return &sexpPlacement{p: p}, nil
	})

	// (world "name" solid children...)
	env.AddFunction("world", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if b.world != nil {
			return zygo.SexpNull, fmt.Errorf("world: already defined as %q", b.world.Name)
		}
		pa := parseArgs(args)
		if len(pa.kw) > 0 {
			return zygo.SexpNull, fmt.Errorf("world: takes no keyword arguments")
		}
		if len(pa.positional) < 2 {
			return zygo.SexpNull, fmt.Errorf("world requires a name and a solid")
		}
		worldName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("world: name: %w", err)
		}
		s, err := toSolid(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("world: %w", err)
		}

		w := scene.New(worldName, s, kernel.Identity())
		if err := b.attach("world", w, pa.positional[2:]); err != nil {
			return zygo.SexpNull, err
		}
		b.world = w
		return &sexpPlacement{p: w}, nil
	})
}
