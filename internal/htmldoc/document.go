// Package htmldoc is a static HTML Document for the response watcher, used for
// offline scans of saved pages.
package htmldoc

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"critbot/internal/watcher"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document wraps a parsed HTML tree.
type Document struct {
	doc *goquery.Document
}

// Node is one element of a Document. Identity is the underlying tree node.
type Node struct {
	n *html.Node
}

var _ watcher.Document = (*Document)(nil)
var _ watcher.Node = (*Node)(nil)

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{doc: doc}, nil
}

// ParseString parses an HTML string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Load parses the HTML file at path.
func Load(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// CanonicalURL returns the page's canonical or og:url link, if any. Saved
// pages usually carry one, which lets a scan pick the site automatically.
func (d *Document) CanonicalURL() string {
	if href, ok := d.doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok {
		return href
	}
	if content, ok := d.doc.Find(`meta[property="og:url"]`).First().Attr("content"); ok {
		return content
	}
	return ""
}

// QueryAll implements watcher.Document.
func (d *Document) QueryAll(ctx context.Context, selector string) ([]watcher.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("selector %q: %w", selector, err)
	}
	return wrap(d.doc.FindMatcher(m).Nodes), nil
}

// QueryWithin implements watcher.Document.
func (d *Document) QueryWithin(ctx context.Context, root watcher.Node, selector string) ([]watcher.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rn, ok := root.(*Node)
	if !ok || rn == nil {
		return nil, fmt.Errorf("node %T does not belong to this document", root)
	}
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("selector %q: %w", selector, err)
	}

	// MatchAll includes rn itself when it matches.
	return wrap(m.MatchAll(rn.n)), nil
}

// Append parses fragment as children of the first element matching
// parentSelector and returns the inserted elements, like a DOM insertion.
func (d *Document) Append(parentSelector, fragment string) ([]watcher.Node, error) {
	parent := d.doc.Find(parentSelector).First()
	if parent.Length() == 0 {
		return nil, fmt.Errorf("no element matches %q", parentSelector)
	}
	pn := parent.Get(0)

	nodes, err := html.ParseFragment(strings.NewReader(fragment), pn)
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	var added []watcher.Node
	for _, n := range nodes {
		pn.AppendChild(n)
		if n.Type == html.ElementNode {
			added = append(added, &Node{n: n})
		}
	}
	return added, nil
}

// AppendText appends text to node, as a streaming response grows.
func (d *Document) AppendText(node watcher.Node, text string) error {
	nd, ok := node.(*Node)
	if !ok || nd == nil {
		return fmt.Errorf("node %T does not belong to this document", node)
	}
	nd.n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return nil
}

// ID implements watcher.Node.
func (nd *Node) ID() watcher.NodeID {
	return watcher.NodeID(fmt.Sprintf("%p", nd.n))
}

// Text implements watcher.Node.
func (nd *Node) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return goquery.NewDocumentFromNode(nd.n).Text(), nil
}

// Value implements watcher.Node.
func (nd *Node) Value(ctx context.Context) (string, error) {
	if nd.n.DataAtom == atom.Input {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		for _, a := range nd.n.Attr {
			if a.Key == "value" {
				return a.Val, nil
			}
		}
		return "", nil
	}
	return nd.Text(ctx)
}

func wrap(nodes []*html.Node) []watcher.Node {
	out := make([]watcher.Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &Node{n: n})
	}
	return out
}
