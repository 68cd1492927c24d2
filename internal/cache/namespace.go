package cache

import (
	"context"
	"time"
)

// Namespaced is a view of a TwoTier cache whose keys are prefixed with a
// fixed namespace, so callers sharing one cache cannot see or clear each
// other's entries.
type Namespaced struct {
	c  *TwoTier
	ns string
}

// Namespace returns a view of c scoped to ns.
func (c *TwoTier) Namespace(ns string) *Namespaced {
	return &Namespaced{c: c, ns: ns + ":"}
}

// Get reads key within the namespace.
func (n *Namespaced) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return n.c.Get(ctx, n.ns+key)
}

// Set writes key within the namespace.
func (n *Namespaced) Set(ctx context.Context, key string, value []byte, memTTL, diskTTL time.Duration) error {
	return n.c.Set(ctx, n.ns+key, value, memTTL, diskTTL)
}

// Delete removes key within the namespace.
func (n *Namespaced) Delete(ctx context.Context, key string) error {
	return n.c.Delete(ctx, n.ns+key)
}

// ClearByPrefix clears keys starting with prefix within the namespace only.
func (n *Namespaced) ClearByPrefix(ctx context.Context, prefix string) error {
	return n.c.ClearByPrefix(ctx, n.ns+prefix)
}
