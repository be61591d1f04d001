package view

import (
	"errors"
	"sync"
	"time"
)

const (
	HighlightClass = "highlight"
	FadingClass    = "fading"
)

// Document is the in-memory projection the routers reconcile against.
// Nodes carrying an id are indexed so lookups mirror getElementById.
// All mutation goes through the document so deferred timers (highlight
// clears, fade-outs) stay consistent with removals.
type Document struct {
	mu sync.Mutex

	root    *Node
	byID    map[string]*Node
	parents map[*Node]*Node
}

func NewDocument() *Document {
	root := NewNode("body")

	return &Document{
		root:    root,
		byID:    make(map[string]*Node),
		parents: make(map[*Node]*Node),
	}
}

func (d *Document) Root() *Node {
	return d.root
}

// Lookup returns the indexed node for id, or nil. The nil return is the
// soft-fail contract: callers skip work on pages missing their markup.
func (d *Document) Lookup(id string) *Node {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.byID[id]
}

func (d *Document) Append(parentID string, child *Node) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	parent, err := d.resolve(parentID)
	if err != nil {
		return err
	}

	parent.Children = append(parent.Children, child)
	d.register(parent, child)

	return nil
}

func (d *Document) Prepend(parentID string, child *Node) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	parent, err := d.resolve(parentID)
	if err != nil {
		return err
	}

	parent.Children = append([]*Node{child}, parent.Children...)
	d.register(parent, child)

	return nil
}

// Remove detaches the node for id. Removing an id that is not mounted is
// a no-op, matching element.remove on a detached element.
func (d *Document) Remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.removeLocked(id)
}

// ReplaceChildren swaps the child list of the node for id.
func (d *Document) ReplaceChildren(id string, children ...*Node) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	parent, err := d.resolve(id)
	if err != nil {
		return err
	}

	for _, child := range parent.Children {
		d.unregister(child)
	}
	parent.Children = nil

	for _, child := range children {
		parent.Children = append(parent.Children, child)
		d.register(parent, child)
	}

	return nil
}

// TrimChildren evicts children beyond max, oldest last (capped feeds
// prepend, so eviction pops from the tail).
func (d *Document) TrimChildren(id string, max int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	parent := d.byID[id]
	if parent == nil {
		return
	}

	for len(parent.Children) > max {
		last := parent.Children[len(parent.Children)-1]
		parent.Children = parent.Children[:len(parent.Children)-1]
		d.unregister(last)
	}
}

// ChildCount reports the number of children of the node for id, or 0
// when it is absent.
func (d *Document) ChildCount(id string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	node := d.byID[id]
	if node == nil {
		return 0
	}

	return len(node.Children)
}

// ChildIDs returns the ids of the children of id, in order.
func (d *Document) ChildIDs(id string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	node := d.byID[id]
	if node == nil {
		return nil
	}

	ids := make([]string, 0, len(node.Children))
	for _, child := range node.Children {
		if child.ID != "" {
			ids = append(ids, child.ID)
		}
	}

	return ids
}

// Update runs fn against the node for id under the document lock. It
// reports whether the node was present.
func (d *Document) Update(id string, fn func(*Node)) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	node := d.byID[id]
	if node == nil {
		return false
	}

	fn(node)

	return true
}

// Highlight marks the node for id and clears the mark after ttl. The
// clear is a no-op if the node was removed in the meantime.
func (d *Document) Highlight(id string, ttl time.Duration) {
	marked := d.Update(id, func(n *Node) {
		n.AddClass(HighlightClass)
	})
	if !marked {
		return
	}

	time.AfterFunc(ttl, func() {
		d.Update(id, func(n *Node) {
			n.RemoveClass(HighlightClass)
		})
	})
}

// FadeOut marks the node for id as fading and removes it after the fade
// window elapses.
func (d *Document) FadeOut(id string, fade time.Duration) {
	marked := d.Update(id, func(n *Node) {
		n.AddClass(FadingClass)
	})
	if !marked {
		return
	}

	time.AfterFunc(fade, func() {
		d.Remove(id)
	})
}

func (d *Document) HTML() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.root.HTML()
}

func (d *Document) resolve(id string) (*Node, error) {
	if id == "" || id == d.root.ID || id == "body" {
		return d.root, nil
	}

	node := d.byID[id]
	if node == nil {
		return nil, errors.New("no element with id " + id)
	}

	return node, nil
}

func (d *Document) register(parent, node *Node) {
	d.parents[node] = parent
	if node.ID != "" {
		d.byID[node.ID] = node
	}
	for _, child := range node.Children {
		d.register(node, child)
	}
}

func (d *Document) unregister(node *Node) {
	delete(d.parents, node)
	if node.ID != "" && d.byID[node.ID] == node {
		delete(d.byID, node.ID)
	}
	for _, child := range node.Children {
		d.unregister(child)
	}
}

func (d *Document) removeLocked(id string) {
	node := d.byID[id]
	if node == nil {
		return
	}

	parent := d.parents[node]
	if parent != nil {
		for i, child := range parent.Children {
			if child == node {
				parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
				break
			}
		}
	}

	d.unregister(node)
}
