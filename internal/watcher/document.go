package watcher

import "context"

// NodeID identifies an element for the lifetime of its document.
type NodeID string

// Node is one element of a Document.
type Node interface {
	ID() NodeID
	// Text returns the element's text content.
	Text(ctx context.Context) (string, error)
	// Value returns the current value of a form control, or its text content
	// for other elements (e.g. contenteditable).
	Value(ctx context.Context) (string, error)
}

// Document is the page being watched. Selectors are CSS selectors; results
// are in document order.
type Document interface {
	QueryAll(ctx context.Context, selector string) ([]Node, error)
	// QueryWithin returns root itself if it matches, followed by matching descendants.
	QueryWithin(ctx context.Context, root Node, selector string) ([]Node, error)
}
