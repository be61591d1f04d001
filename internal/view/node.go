package view

import (
	"html"
	"slices"
	"sort"
	"strings"
)

// Node is one element of the rendered tree. Entity data only ever lands
// in Text; Render escapes it in a single place.
type Node struct {
	Tag      string
	ID       string
	Classes  []string
	Attrs    map[string]string
	Text     string
	Children []*Node
}

func NewNode(tag string) *Node {
	return &Node{
		Tag: tag,
	}
}

func (n *Node) WithID(id string) *Node {
	n.ID = id
	return n
}

func (n *Node) WithText(text string) *Node {
	n.Text = text
	return n
}

func (n *Node) WithClass(classes ...string) *Node {
	for _, class := range classes {
		n.AddClass(class)
	}
	return n
}

func (n *Node) WithAttr(key, value string) *Node {
	if n.Attrs == nil {
		n.Attrs = make(map[string]string)
	}
	n.Attrs[key] = value
	return n
}

func (n *Node) WithChildren(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

func (n *Node) AddClass(class string) {
	if slices.Contains(n.Classes, class) {
		return
	}
	n.Classes = append(n.Classes, class)
}

func (n *Node) RemoveClass(class string) {
	n.Classes = slices.DeleteFunc(n.Classes, func(c string) bool {
		return c == class
	})
}

func (n *Node) HasClass(class string) bool {
	return slices.Contains(n.Classes, class)
}

func (n *Node) Attr(key string) string {
	return n.Attrs[key]
}

// Render serializes the subtree to HTML. This is the only place text and
// attribute values are escaped.
func (n *Node) Render(b *strings.Builder) {
	b.WriteByte('<')
	b.WriteString(n.Tag)

	if n.ID != "" {
		writeAttr(b, "id", n.ID)
	}
	if len(n.Classes) > 0 {
		writeAttr(b, "class", strings.Join(n.Classes, " "))
	}

	keys := make([]string, 0, len(n.Attrs))
	for key := range n.Attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		writeAttr(b, key, n.Attrs[key])
	}

	b.WriteByte('>')

	if n.Text != "" {
		b.WriteString(html.EscapeString(n.Text))
	}
	for _, child := range n.Children {
		child.Render(b)
	}

	b.WriteString("</")
	b.WriteString(n.Tag)
	b.WriteByte('>')
}

func (n *Node) HTML() string {
	var b strings.Builder
	n.Render(&b)

	return b.String()
}

func writeAttr(b *strings.Builder, key, value string) {
	b.WriteByte(' ')
	b.WriteString(key)
	b.WriteString(`="`)
	b.WriteString(html.EscapeString(value))
	b.WriteByte('"')
}
