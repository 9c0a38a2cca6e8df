// Package router maps a caller-supplied brand onto the vendor adapter that
// serves it. The table is fixed at construction.
package router

import (
	"fmt"

	"github.com/YGNTECHSTARTUP/ecoquest/errors"
	"github.com/YGNTECHSTARTUP/ecoquest/reading"
	"github.com/YGNTECHSTARTUP/ecoquest/vendorapi"
)

// Router resolves brands to adapters. It is immutable and safe for
// concurrent use.
type Router struct {
	adapters map[reading.Brand]vendorapi.Adapter
	order    []reading.Brand
}

// New registers adapters. Registering two adapters for the same brand, or
// a nil adapter, is an error.
func New(adapters ...vendorapi.Adapter) (*Router, error) {
	r := &Router{adapters: make(map[reading.Brand]vendorapi.Adapter, len(adapters))}
	for _, a := range adapters {
		if a == nil {
			return nil, errors.Wrap(errors.ErrInvalidConfig, "Router", "New", "register nil adapter")
		}
		b := a.Brand()
		if _, dup := r.adapters[b]; dup {
			return nil, errors.Wrap(fmt.Errorf("%w: duplicate adapter for %s", errors.ErrInvalidConfig, b),
				"Router", "New", "register adapter")
		}
		r.adapters[b] = a
		r.order = append(r.order, b)
	}
	return r, nil
}

// Resolve returns the adapter for brand. Matching ignores case and
// surrounding space; the error message echoes brand exactly as given.
func (r *Router) Resolve(brand string) (vendorapi.Adapter, error) {
	if b, ok := reading.ParseBrand(brand); ok {
		if a, ok := r.adapters[b]; ok {
			return a, nil
		}
	}
	return nil, errors.BadRequest(
		fmt.Errorf("%w: %q", errors.ErrUnsupportedBrand, brand),
		"Router", "Resolve",
		fmt.Sprintf("Unsupported meter brand: %s", brand), "")
}

// Brands lists registered brands in registration order.
func (r *Router) Brands() []reading.Brand {
	out := make([]reading.Brand, len(r.order))
	copy(out, r.order)
	return out
}
