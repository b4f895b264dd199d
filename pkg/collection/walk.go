package collection

import "fmt"

// NotFoundError is returned when a name-based lookup does not resolve to
// any Request in the tree.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("collection: no request named %q", e.Name)
}

// Node pairs a Request with the Folder path leading to it, nearest ancestor
// last. Ancestors never includes the Collection itself or the Request.
type Node struct {
	Request  *Request
	Ancestors []*Folder
}

// WalkRequests returns every Request in the tree in depth-first pre-order,
// each paired with its ancestor Folder chain (outermost first). It has no
// side effects and performs no I/O.
func WalkRequests(c *Collection) []Node {
	var out []Node
	var walk func(items []Item, path []*Folder)
	walk = func(items []Item, path []*Folder) {
		for _, it := range items {
			switch v := it.(type) {
			case *Request:
				out = append(out, Node{Request: v, Ancestors: append([]*Folder(nil), path...)})
			case *Folder:
				walk(v.Items, append(path, v))
			}
		}
	}
	walk(c.Items, nil)
	return out
}

// FindByName returns the first Request (depth-first pre-order) whose Name
// matches, along with its ancestor chain.
func FindByName(c *Collection, name string) (*Node, error) {
	for _, n := range WalkRequests(c) {
		if n.Request.Name == name {
			node := n
			return &node, nil
		}
	}
	return nil, &NotFoundError{Name: name}
}

// Ancestors returns the ordered Folder chain from the Collection down to
// the immediate parent of req, or nil if req is a top-level item or is not
// found in c.
func Ancestors(c *Collection, req *Request) []*Folder {
	for _, n := range WalkRequests(c) {
		if n.Request == req {
			return n.Ancestors
		}
	}
	return nil
}
