// Package props models the root-level property payload that the script
// layer hands to a surface.
//
// A Payload is move-only: Consume takes the tree out and leaves the payload
// empty, so the same tree can never be committed twice or mutated by the
// caller after it was handed over.
package props

import "sync"

// Tree is the opaque property tree carried by a payload.
type Tree = map[string]any

// Payload owns a property tree until it is consumed.
type Payload struct {
	mu       sync.Mutex
	tree     Tree
	consumed bool
}

// New returns a payload that takes ownership of tree.
// The caller must not retain or mutate tree afterwards.
func New(tree Tree) *Payload {
	if tree == nil {
		tree = make(Tree)
	}
	return &Payload{tree: tree}
}

// Set stores a top-level property.
func (p *Payload) Set(key string, value any) error {
	if p == nil {
		return ErrNilPayload
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.consumed {
		return ErrConsumed
	}
	p.tree[key] = value
	return nil
}

// Len returns the number of top-level properties, or 0 once consumed.
func (p *Payload) Len() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tree)
}

// Consumed reports whether the tree has been taken.
func (p *Payload) Consumed() bool {
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.consumed
}

// Consume takes the tree out of the payload. Only the first call succeeds.
func (p *Payload) Consume() (Tree, error) {
	if p == nil {
		return nil, ErrNilPayload
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.consumed {
		return nil, ErrConsumed
	}
	tree := p.tree
	p.tree = nil
	p.consumed = true
	return tree, nil
}
