package document

import (
	"github.com/ZaguanLabs/pagetl/cache"
	"golang.org/x/net/html"
)

// anchor is the node a unit was extracted from.
type anchor struct {
	node        *html.Node
	mode        Mode
	fingerprint string // Hash of the node content at extraction or last replacement
}

// Registry maps unit ids to their anchors. It is rebuilt on every extraction.
type Registry struct {
	anchors *cache.Store[*anchor]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{anchors: cache.New[*anchor]()}
}

// Clear drops every id.
func (r *Registry) Clear() {
	r.anchors.Clear()
}

// Len returns the number of registered ids.
func (r *Registry) Len() int {
	return r.anchors.Len()
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.anchors.Get(id)
	return ok
}

// IDs returns the registered ids in sorted order.
func (r *Registry) IDs() []string {
	return r.anchors.Keys()
}

func (r *Registry) put(id string, a *anchor) {
	r.anchors.Set(id, a)
}

func (r *Registry) lookup(id string) (*anchor, bool) {
	return r.anchors.Get(id)
}
