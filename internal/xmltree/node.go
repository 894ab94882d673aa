// Package xmltree is a small, mutable, deep-copyable XML element tree.
//
// encoding/xml's struct-tag decoding is the right tool for the fixed-shape
// leaf records (widgets, backgrounds, property definitions). It is the
// wrong tool for template control bodies and include definitions: those
// are arbitrary author-supplied XML that the template processor (C8) must
// walk generically, substitute placeholders inside, splice children into,
// and deep-copy once per matching item. That calls for a dynamic
// tagged-element tree with ordered attributes, the way
// github.com/beevik/etree models one - Node below is that same shape,
// built on encoding/xml's tokenizer instead of pulling in etree as a
// dependency.
package xmltree

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Attr is a single XML attribute, preserving declaration order.
type Attr struct {
	Name  string
	Value string
}

// Node is one element of the tree. Text is the content immediately inside
// the opening tag before the first child; Tail is the content immediately
// after the closing tag, before the next sibling (etree's naming).
type Node struct {
	Tag      string
	Attr     []Attr
	Children []*Node
	Text     string
	Tail     string
}

// NewNode returns an empty element with the given tag.
func NewNode(tag string) *Node {
	return &Node{Tag: tag}
}

// Attribute returns an attribute's value and whether it was present.
func (n *Node) Attribute(name string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// AttributeOr returns an attribute's value, or def if absent.
func (n *Node) AttributeOr(name, def string) string {
	if v, ok := n.Attribute(name); ok {
		return v
	}
	return def
}

// SetAttribute sets an attribute, appending it if new.
func (n *Node) SetAttribute(name, value string) {
	for i, a := range n.Attr {
		if a.Name == name {
			n.Attr[i].Value = value
			return
		}
	}
	n.Attr = append(n.Attr, Attr{Name: name, Value: value})
}

// RemoveAttribute deletes an attribute if present.
func (n *Node) RemoveAttribute(name string) {
	for i, a := range n.Attr {
		if a.Name == name {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// AddChild appends a child element.
func (n *Node) AddChild(child *Node) {
	n.Children = append(n.Children, child)
}

// FindChild returns the first direct child with the given tag.
func (n *Node) FindChild(tag string) *Node {
	for _, c := range n.Children {
		if c.Tag == tag {
			return c
		}
	}
	return nil
}

// Copy returns a deep copy of the subtree rooted at n. Every per-item pass
// of the template processor (C8) works on a fresh Copy of the template's
// controls so that substitutions never leak between items.
func (n *Node) Copy() *Node {
	if n == nil {
		return nil
	}
	cp := &Node{
		Tag:  n.Tag,
		Attr: append([]Attr(nil), n.Attr...),
		Text: n.Text,
		Tail: n.Tail,
	}
	cp.Children = make([]*Node, len(n.Children))
	for i, c := range n.Children {
		cp.Children[i] = c.Copy()
	}
	return cp
}

// Walk calls fn for n and every descendant, depth-first, pre-order.
func (n *Node) Walk(fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Parse reads a single root element from r.
func Parse(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	var root *Node
	var stack []*Node

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			node := &Node{Tag: localName(t.Name)}
			for _, a := range t.Attr {
				node.Attr = append(node.Attr, Attr{Name: localName(a.Name), Value: a.Value})
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.AddChild(node)
			} else {
				root = node
			}
			stack = append(stack, node)
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			text := string(t)
			cur := stack[len(stack)-1]
			if len(cur.Children) == 0 {
				cur.Text += text
			} else {
				last := cur.Children[len(cur.Children)-1]
				last.Tail += text
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("parsing xml: no root element")
	}
	return root, nil
}

// ParseFragment parses a sequence of sibling elements (and intervening
// text) wrapped in a synthetic root, returning that root; the parsed
// elements are its Children. It is
// used for XML payloads that are not themselves single-rooted, such as a
// <controls> body copied verbatim out of a <template> element.
func ParseFragment(inner string) (*Node, error) {
	wrapped := "<_fragment_>" + inner + "</_fragment_>"
	return Parse(strings.NewReader(wrapped))
}

func localName(n xml.Name) string {
	return n.Local
}

// Write serializes n with two-space indentation, matching the output
// document shape required by the include assembler (C9). Leaves whose
// only content is text stay on one line.
func Write(w io.Writer, n *Node) error {
	return writeIndent(w, n, 0)
}

func writeIndent(w io.Writer, n *Node, depth int) error {
	pad := strings.Repeat("  ", depth)
	if _, err := fmt.Fprintf(w, "%s<%s", pad, n.Tag); err != nil {
		return err
	}
	for _, a := range n.Attr {
		if _, err := fmt.Fprintf(w, ` %s="%s"`, a.Name, escapeAttr(a.Value)); err != nil {
			return err
		}
	}
	if len(n.Children) == 0 && strings.TrimSpace(n.Text) == "" {
		_, err := fmt.Fprint(w, "/>\n")
		return err
	}
	if _, err := fmt.Fprint(w, ">"); err != nil {
		return err
	}
	if len(n.Children) == 0 {
		if _, err := fmt.Fprint(w, escapeText(n.Text)); err != nil {
			return err
		}
		_, err := fmt.Fprintf(w, "</%s>\n", n.Tag)
		return err
	}
	if _, err := fmt.Fprint(w, "\n"); err != nil {
		return err
	}
	if strings.TrimSpace(n.Text) != "" {
		if _, err := fmt.Fprintf(w, "%s  %s\n", pad, escapeText(n.Text)); err != nil {
			return err
		}
	}
	for _, c := range n.Children {
		if err := writeIndent(w, c, depth+1); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "%s</%s>\n", pad, n.Tag); err != nil {
		return err
	}
	return nil
}

func escapeAttr(s string) string {
	var buf bytes.Buffer
	if err := xml.EscapeText(&buf, []byte(s)); err != nil {
		return s
	}
	return buf.String()
}

func escapeText(s string) string {
	return escapeAttr(s)
}
