package gravity

import (
	"github.com/apogee-mp/apogee/aerror"
	"github.com/elliotchance/orderedmap/v2"
)

// Registry indexes every field of one tree by its wire ID. Iteration order is
// insertion order, which follows the tree's declaration order, so both ends
// of a connection observing the same tree resolve ties identically.
type Registry struct {
	root   *Field
	fields *orderedmap.OrderedMap[uint64, *Field]
}

// NewRegistry builds a registry over the tree rooted at root.
func NewRegistry(root *Field) (*Registry, error) {
	r := &Registry{
		root:   root,
		fields: orderedmap.NewOrderedMap[uint64, *Field](),
	}
	if err := r.index(root); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) index(f *Field) error {
	if _, ok := r.fields.Get(f.id); ok {
		return aerror.New("gravity: duplicate field id for %q", f.name)
	}
	r.fields.Set(f.id, f)
	for _, child := range f.children {
		if err := r.index(child); err != nil {
			return err
		}
	}
	return nil
}

// Root returns the tree root, the fallback dominant field.
func (r *Registry) Root() *Field {
	return r.root
}

// Lookup resolves a wire field ID to its field.
func (r *Registry) Lookup(id uint64) (*Field, bool) {
	return r.fields.Get(id)
}

// Len returns the number of registered fields.
func (r *Registry) Len() int {
	return r.fields.Len()
}
