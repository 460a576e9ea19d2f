package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/chazu/geoview/pkg/kernel"
	"github.com/chazu/geoview/pkg/scene"
	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"
)

// document is the top level of a YAML scene. Lengths and positions are in
// unit, millimetres when it is omitted; rotations are always degrees.
//
//	unit: inch
//	solids:
//	  cube: {box: [1, 1, 1]}
//	world:
//	  name: world
//	  solid: {box: [10, 10, 10]}
//	  children:
//	    - name: a
//	      solid: {ref: cube}
//	      at: [0.5, 0, 0]
//	      rotate: [0, 0, 90]
type document struct {
	Unit   string               `yaml:"unit"`
	Solids map[string]solidSpec `yaml:"solids"`
	World  *nodeSpec            `yaml:"world"`
}

type nodeSpec struct {
	Name     string     `yaml:"name"`
	Solid    solidSpec  `yaml:"solid"`
	At       vec3       `yaml:"at"`
	Rotate   vec3       `yaml:"rotate"`
	Children []nodeSpec `yaml:"children"`
}

// solidSpec holds exactly one shape or a reference to a named solid.
type solidSpec struct {
	Box      *vec3         `yaml:"box"`
	Sphere   *float64      `yaml:"sphere"`
	Cylinder *cylinderSpec `yaml:"cylinder"`
	Ref      string        `yaml:"ref"`
}

type cylinderSpec struct {
	Height   float64 `yaml:"height"`
	Radius   float64 `yaml:"radius"`
	Segments int     `yaml:"segments"`
}

// vec3 decodes from a sequence of exactly three numbers.
type vec3 mgl64.Vec3

func (v *vec3) UnmarshalYAML(value *yaml.Node) error {
	var vals []float64
	if err := value.Decode(&vals); err != nil {
		return fmt.Errorf("line %d: expected [x, y, z]: %w", value.Line, err)
	}
	if len(vals) != 3 {
		return fmt.Errorf("line %d: expected 3 components, got %d", value.Line, len(vals))
	}
	*v = vec3{vals[0], vals[1], vals[2]}
	return nil
}

func parseYAML(data []byte, opts Options) (*scene.Placement, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(opts.Schema)

	var doc document
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if doc.World == nil {
		return nil, nil
	}

	scale, err := kernel.UnitScale(doc.Unit)
	if err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	b := &yamlBuilder{k: opts.Kernel, scale: scale, specs: doc.Solids, built: make(map[string]kernel.Solid)}
	root, err := b.node(*doc.World, "")
	if err != nil {
		return nil, err
	}
	if doc.World.At != (vec3{}) || doc.World.Rotate != (vec3{}) {
		return nil, fmt.Errorf("%s: the world cannot be moved or rotated", root.Name)
	}
	return root, nil
}

type yamlBuilder struct {
	k     kernel.Kernel
	scale float64 // document unit in kernel units
	specs map[string]solidSpec
	built map[string]kernel.Solid
}

func (b *yamlBuilder) node(n nodeSpec, parentPath string) (*scene.Placement, error) {
	path := n.Name
	if parentPath != "" {
		path = parentPath + "/" + n.Name
	}

	s, err := b.solid(n.Solid, path)
	if err != nil {
		return nil, err
	}
	t := kernel.NewTransform(mgl64.Vec3(n.Rotate), mgl64.Vec3(n.At).Mul(b.scale))
	p := scene.New(n.Name, s, t)

	for _, c := range n.Children {
		child, err := b.node(c, path)
		if err != nil {
			return nil, err
		}
		p.AddChild(child)
	}
	return p, nil
}

func (b *yamlBuilder) solid(spec solidSpec, path string) (kernel.Solid, error) {
	if spec.Ref != "" {
		if spec.Box != nil || spec.Sphere != nil || spec.Cylinder != nil {
			return nil, fmt.Errorf("%s: solid: ref cannot be combined with a shape", path)
		}
		if s, ok := b.built[spec.Ref]; ok {
			return s, nil
		}
		named, ok := b.specs[spec.Ref]
		if !ok {
			return nil, fmt.Errorf("%s: solid: no solid named %q", path, spec.Ref)
		}
		if named.Ref != "" {
			return nil, fmt.Errorf("%s: solid %q: named solids cannot reference other solids", path, spec.Ref)
		}
		s, err := b.shape(named, path)
		if err != nil {
			return nil, err
		}
		b.built[spec.Ref] = s
		return s, nil
	}
	return b.shape(spec, path)
}

func (b *yamlBuilder) shape(spec solidSpec, path string) (kernel.Solid, error) {
	var (
		s     kernel.Solid
		err   error
		count int
	)
	if spec.Box != nil {
		count++
		d := mgl64.Vec3(*spec.Box).Mul(b.scale)
		s, err = b.k.Box(d[0], d[1], d[2])
	}
	if spec.Sphere != nil {
		count++
		s, err = b.k.Sphere(*spec.Sphere * b.scale)
	}
	if spec.Cylinder != nil {
		count++
		seg := spec.Cylinder.Segments
		if seg == 0 {
			seg = 32
		}
		s, err = b.k.Cylinder(spec.Cylinder.Height*b.scale, spec.Cylinder.Radius*b.scale, seg)
	}
	switch {
	case count == 0:
		return nil, fmt.Errorf("%s: solid: no shape given (box, sphere, cylinder or ref)", path)
	case count > 1:
		return nil, fmt.Errorf("%s: solid: more than one shape given", path)
	case err != nil:
		return nil, fmt.Errorf("%s: solid: %w", path, err)
	}
	return s, nil
}
