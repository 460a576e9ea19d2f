package scene

import (
	"errors"
	"fmt"
)

// ErrInvalidTree wraps the blocking findings returned by Check.
var ErrInvalidTree = errors.New("scene: invalid placement tree")

// Severity indicates whether a validation finding blocks detection or is
// merely informational.
type Severity int

const (
	SeverityError   Severity = iota // blocks detection
	SeverityWarning                 // informational
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	Path     string   // placement path (empty if tree-level)
	Message  string   // human-readable description
	Severity Severity // error or warning
}

func (e ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] placement %s: %s", e.Severity, e.Path, e.Message)
}

// Validate checks the tree invariants and returns every finding. An empty
// slice means the tree is valid. Validate never mutates the tree.
func Validate(root *Placement) []ValidationError {
	if root == nil {
		return []ValidationError{{Message: "nil root placement", Severity: SeverityError}}
	}
	var errs []ValidationError
	errs = append(errs, validateStructure(root)...)
	errs = append(errs, validateNames(root)...)
	return errs
}

// Check runs Validate and joins the error-severity findings into a single
// error wrapping ErrInvalidTree. Warnings are returned separately.
func Check(root *Placement) (warnings []ValidationError, err error) {
	var blocking []error
	for _, v := range Validate(root) {
		if v.Severity == SeverityWarning {
			warnings = append(warnings, v)
			continue
		}
		blocking = append(blocking, v)
	}
	if len(blocking) > 0 {
		return warnings, fmt.Errorf("%w: %w", ErrInvalidTree, errors.Join(blocking...))
	}
	return warnings, nil
}

// validateStructure walks the tree with 3-colour marking. Reaching a gray
// node means a cycle; reaching a black node means a placement is shared
// between two parents, which a tree forbids.
func validateStructure(root *Placement) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make(map[*Placement]int)
	var errs []ValidationError

	var visit func(p *Placement, path string)
	visit = func(p *Placement, path string) {
		switch color[p] {
		case gray:
			errs = append(errs, ValidationError{
				Path:     path,
				Message:  "cycle detected: placement is its own ancestor",
				Severity: SeverityError,
			})
			return
		case black:
			errs = append(errs, ValidationError{
				Path:     path,
				Message:  "placement appears more than once in the tree",
				Severity: SeverityError,
			})
			return
		}
		color[p] = gray

		if p.Solid == nil {
			errs = append(errs, ValidationError{Path: path, Message: "placement has no solid", Severity: SeverityError})
		}
		if !p.Transform.IsFinite() {
			errs = append(errs, ValidationError{
				Path:     path,
				Message:  fmt.Sprintf("transform is not a finite rigid motion: %v", p.Transform.Translation),
				Severity: SeverityError,
			})
		}

		for i, c := range p.Children {
			if c == nil {
				errs = append(errs, ValidationError{
					Path:     path,
					Message:  fmt.Sprintf("child %d is nil", i),
					Severity: SeverityError,
				})
				continue
			}
			childPath := path + "/" + c.Name
			if c.parent != p {
				errs = append(errs, ValidationError{
					Path:     childPath,
					Message:  "parent link does not point at the containing placement",
					Severity: SeverityError,
				})
			}
			visit(c, childPath)
		}
		color[p] = black
	}

	if root.parent != nil {
		errs = append(errs, ValidationError{Path: root.Name, Message: "root placement has a parent", Severity: SeverityError})
	}
	visit(root, root.Name)
	return errs
}

// validateNames warns about empty names and duplicate names among siblings,
// which make paths in reports ambiguous.
func validateNames(root *Placement) []ValidationError {
	var errs []ValidationError
	seen := make(map[*Placement]bool)

	var visit func(p *Placement, path string)
	visit = func(p *Placement, path string) {
		if seen[p] {
			return
		}
		seen[p] = true

		if p.Name == "" {
			errs = append(errs, ValidationError{Path: path, Message: "placement has an empty name", Severity: SeverityWarning})
		}
		names := make(map[string]int)
		for _, c := range p.Children {
			if c == nil {
				continue
			}
			names[c.Name]++
			if names[c.Name] == 2 {
				errs = append(errs, ValidationError{
					Path:     path,
					Message:  fmt.Sprintf("duplicate child name %q", c.Name),
					Severity: SeverityWarning,
				})
			}
			visit(c, path+"/"+c.Name)
		}
	}
	visit(root, root.Name)
	return errs
}
