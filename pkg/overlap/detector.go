package overlap

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chazu/geoview/pkg/kernel"
	"github.com/chazu/geoview/pkg/scene"
	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/sync/errgroup"
)

// ErrKernelPanic wraps a panic raised by the geometry kernel while a
// placement was being sampled.
var ErrKernelPanic = errors.New("overlap: geometry kernel panicked")

// ctxCheckEvery is how many samples pass between cancellation checks.
const ctxCheckEvery = 256

// Summary describes a detection run.
type Summary struct {
	Placements    int // placements checked
	Samples       int // surface samples drawn
	Overlaps      int // records added to the registry
	Mother        int // records of kind Mother
	Sibling       int // records of kind Sibling
	Flagged       int // placements flagged
	FailedRegions int // overlaps whose region could not be built
	Duration      time.Duration
}

// Detector runs the overlap check over a placement tree.
type Detector struct {
	k    kernel.Kernel
	opts Options
	log  *log.Logger
}

// New returns a Detector that builds regions with k.
func New(k kernel.Kernel, opts Options) *Detector {
	l := opts.Logger
	if l == nil {
		l = log.Default()
	}
	return &Detector{k: k, opts: opts, log: l}
}

// Detect checks every placement below root against its parent and its
// siblings, adds one Record per overlap to reg and flags the offending
// placements. The root itself is never checked, nor are synthetic
// placements.
//
// Results are added in pre-order, so the registry contents do not depend
// on Options.Workers.
func (d *Detector) Detect(ctx context.Context, root *scene.Placement, reg *Registry) (Summary, error) {
	if err := d.opts.Validate(); err != nil {
		return Summary{}, err
	}
	if d.k == nil {
		return Summary{}, errors.New("overlap: no kernel configured")
	}
	if root == nil {
		return Summary{}, errors.New("overlap: nil root placement")
	}
	if reg == nil {
		return Summary{}, errors.New("overlap: nil registry")
	}
	if _, err := scene.Check(root); err != nil {
		return Summary{}, fmt.Errorf("overlap: %w", err)
	}

	start := time.Now()

	var nodes []*scene.Placement
	_ = root.Walk(func(p *scene.Placement, _ int) error {
		if p != root && !p.Synthetic {
			nodes = append(nodes, p)
		}
		return nil
	})

	results := make([]nodeResult, len(nodes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(d.opts.Workers, 1))
	for i, p := range nodes {
		g.Go(func() error {
			res, err := d.check(gctx, i, p)
			if err != nil {
				return fmt.Errorf("check %s: %w", p.Path(), err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	var sum Summary
	for i, p := range nodes {
		res := results[i]
		sum.Placements++
		sum.Samples += res.samples
		sum.FailedRegions += res.failed
		d.opts.Metrics.observePlacement(res.samples)

		if !res.flagged {
			continue
		}
		p.Flag()
		sum.Flagged++

		for _, rec := range res.records {
			reg.Add(rec)
			sum.Overlaps++
			if rec.Kind == Mother {
				sum.Mother++
			} else {
				sum.Sibling++
			}
			d.opts.Metrics.observeOverlap(rec.Kind)
			if d.opts.Verbose {
				d.log.Info("overlap",
					"placement", p.Path(),
					"kind", rec.Kind,
					"partner", rec.Partner.Path(),
					"point", fmt.Sprintf("(%.6g, %.6g, %.6g)", rec.Point[0], rec.Point[1], rec.Point[2]),
					"depth", rec.Depth,
				)
			}
		}
	}

	sum.Duration = time.Since(start)
	d.opts.Metrics.observeDuration(sum.Duration)
	return sum, nil
}

// nodeResult is the outcome of checking one placement.
type nodeResult struct {
	records []Record
	samples int
	failed  int
	flagged bool
}

// sibling is another child of the same parent, with its inverse transform
// precomputed.
type sibling struct {
	p   *scene.Placement
	inv kernel.Transform
}

// regionKey identifies a cached region: the partner placement and kind.
type regionKey struct {
	partner *scene.Placement
	kind    Kind
}

type regionResult struct {
	solid kernel.Solid
	err   error
}

// check samples one placement. It reads only the placement, its parent and
// its siblings, none of which change during detection.
func (d *Detector) check(ctx context.Context, index int, p *scene.Placement) (res nodeResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrKernelPanic, r)
		}
	}()

	parent := p.Parent()
	if parent == nil {
		return res, errors.New("placement has no parent")
	}
	s, m := p.Solid, parent.Solid
	t := p.Transform
	tInv := t.Inverse()

	var sibs []sibling
	for _, c := range parent.Children {
		if c == p || c == nil || c.Synthetic {
			continue
		}
		sibs = append(sibs, sibling{p: c, inv: c.Transform.Inverse()})
	}

	regions := make(map[regionKey]regionResult)
	region := func(key regionKey, build func() (kernel.Solid, error)) (kernel.Solid, bool) {
		r, ok := regions[key]
		if !ok {
			r.solid, r.err = d.buildRegion(build)
			regions[key] = r
			if r.err != nil {
				res.failed++
				d.opts.Metrics.observeFailedRegion()
				d.log.Warn("overlap region failed",
					"placement", p.Path(), "kind", key.kind, "partner", key.partner.Path(), "err", r.err)
			}
		}
		return r.solid, r.err == nil
	}

	rng := rand.New(rand.NewPCG(d.opts.Seed, uint64(index)))
	tol := d.opts.Tolerance
	trials := 0

	add := func(kind Kind, partner *scene.Placement, point mgl64.Vec3, depth float64, solid kernel.Solid) {
		trials++
		res.records = append(res.records, Record{
			ID:        recordID(d.opts.Seed, p.Path(), len(res.records)),
			Placement: p,
			Region:    solid,
			Kind:      kind,
			Partner:   partner,
			Point:     point,
			Depth:     depth,
		})
	}

	for n := 0; n < d.opts.Resolution && trials < d.opts.ErrMax; n++ {
		if n%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return res, err
			}
		}
		res.samples++

		local := s.SurfacePoint(rng)
		q := t.Apply(local)

		if m.Classify(q) == kernel.Outside {
			if depth := m.DistanceToIn(q); depth > tol {
				res.flagged = true
				key := regionKey{partner: parent, kind: Mother}
				if solid, ok := region(key, func() (kernel.Solid, error) {
					return d.k.Subtract(s, m, tInv)
				}); ok {
					add(Mother, parent, local, depth, solid)
				}
			}
		}

		for _, sib := range sibs {
			if trials >= d.opts.ErrMax {
				break
			}
			l := sib.inv.Apply(q)
			if sib.p.Solid.Classify(l) != kernel.Inside {
				continue
			}
			depth := sib.p.Solid.DistanceToOut(l)
			if depth <= tol {
				continue
			}
			res.flagged = true
			key := regionKey{partner: sib.p, kind: Sibling}
			if solid, ok := region(key, func() (kernel.Solid, error) {
				return d.k.Intersect(s, sib.p.Solid, tInv.Mul(sib.p.Transform))
			}); ok {
				add(Sibling, sib.p, local, depth, solid)
			}
		}
	}
	return res, nil
}

// buildRegion runs build and enlarges the result by the scale factor.
// Kernel panics during construction are reported as errors.
func (d *Detector) buildRegion(build func() (kernel.Solid, error)) (solid kernel.Solid, err error) {
	defer func() {
		if r := recover(); r != nil {
			solid, err = nil, fmt.Errorf("%w: %v", ErrKernelPanic, r)
		}
	}()

	solid, err = build()
	if err != nil {
		return nil, err
	}
	if d.opts.ScaleFactor == 1 {
		return solid, nil
	}
	return d.k.Scale(solid, d.opts.ScaleFactor)
}
