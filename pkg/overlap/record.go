package overlap

import (
	"fmt"
	"sync"

	"github.com/chazu/geoview/pkg/kernel"
	"github.com/chazu/geoview/pkg/scene"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
)

// Kind says what a placement overlaps with.
type Kind int

const (
	// Mother: the placement protrudes outside its parent.
	Mother Kind = iota
	// Sibling: the placement intrudes into another child of its parent.
	Sibling
)

func (k Kind) String() string {
	switch k {
	case Mother:
		return "mother"
	case Sibling:
		return "sibling"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Record is one detected overlap. Records are immutable once added.
type Record struct {
	ID        uuid.UUID
	Placement *scene.Placement // the placement being checked
	Region    kernel.Solid     // covers the overlap, in Placement's frame
	Kind      Kind
	Partner   *scene.Placement // the parent for Mother, the other child for Sibling
	Point     mgl64.Vec3       // offending sample, in Placement's frame
	Depth     float64          // how far the sample lies past the partner's boundary
}

func (r Record) String() string {
	return fmt.Sprintf("%s overlaps %s %s by %.6g at (%.6g, %.6g, %.6g)",
		r.Placement.Path(), r.Kind, r.Partner.Path(), r.Depth, r.Point[0], r.Point[1], r.Point[2])
}

// Registry collects overlap records. It is append-only and safe for
// concurrent use.
type Registry struct {
	mu      sync.Mutex
	records []Record
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add appends rec.
func (r *Registry) Add(rec Record) {
	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()
}

// Len returns the number of records.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Records returns a copy of all records in insertion order.
func (r *Registry) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// For returns the records whose checked placement is p.
func (r *Registry) For(p *scene.Placement) []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Record
	for _, rec := range r.records {
		if rec.Placement == p {
			out = append(out, rec)
		}
	}
	return out
}

// recordNamespace scopes record IDs so equal runs produce equal IDs.
var recordNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("geoview/overlap"))

func recordID(seed uint64, path string, n int) uuid.UUID {
	return uuid.NewSHA1(recordNamespace, []byte(fmt.Sprintf("%d:%s:%d", seed, path, n)))
}
