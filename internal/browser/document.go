package browser

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"critbot/internal/watcher"

	"github.com/go-rod/rod"
)

// Document is a watcher.Document backed by a live page.
type Document struct {
	page *rod.Page
}

// NewDocument wraps page.
func NewDocument(page *rod.Page) *Document {
	return &Document{page: page}
}

// Node is a live element. Its identity is the DevTools backend node id, which
// is stable for the lifetime of the DOM node.
type Node struct {
	el *rod.Element
	id watcher.NodeID
}

// NewNode resolves the identity of el.
func NewNode(el *rod.Element) (*Node, error) {
	desc, err := el.Describe(0, false)
	if err != nil {
		return nil, fmt.Errorf("describe node: %w", err)
	}
	return &Node{el: el, id: watcher.NodeID(strconv.Itoa(int(desc.BackendNodeID)))}, nil
}

func (n *Node) ID() watcher.NodeID { return n.id }

// Text returns the element's textContent.
func (n *Node) Text(ctx context.Context) (string, error) {
	res, err := n.el.Context(ctx).Eval(`() => this.textContent || ''`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

// Value returns the value of form controls and the text of anything else
// (contenteditable inputs).
func (n *Node) Value(ctx context.Context) (string, error) {
	res, err := n.el.Context(ctx).Eval(`() => (typeof this.value === 'string') ? this.value : (this.innerText || this.textContent || '')`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

// QueryAll returns every element matching selector, in document order.
func (d *Document) QueryAll(ctx context.Context, selector string) ([]watcher.Node, error) {
	els, err := d.page.Context(ctx).ElementsByJS(rod.Eval(`(s) => Array.from(document.querySelectorAll(s))`, selector))
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", selector, err)
	}
	return wrap(els)
}

// QueryWithin returns root itself, when it matches, followed by its matching
// descendants.
func (d *Document) QueryWithin(ctx context.Context, root watcher.Node, selector string) ([]watcher.Node, error) {
	n, ok := root.(*Node)
	if !ok {
		return nil, errors.New("foreign node")
	}
	els, err := n.el.Context(ctx).ElementsByJS(rod.Eval(`(s) => {
		const out = [];
		if (this.nodeType === 1 && this.matches(s)) out.push(this);
		if (this.querySelectorAll) out.push(...this.querySelectorAll(s));
		return out;
	}`, selector))
	if err != nil {
		return nil, fmt.Errorf("query %q within %s: %w", selector, n.id, err)
	}
	return wrap(els)
}

func wrap(els rod.Elements) ([]watcher.Node, error) {
	out := make([]watcher.Node, 0, len(els))
	for _, el := range els {
		n, err := NewNode(el)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
