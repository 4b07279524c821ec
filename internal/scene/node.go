package scene

import (
	"encoding/xml"
	"io"
	"math"
	"strconv"
	"strings"
)

// Numeric attributes rendered as a combined transform="translate(x,y)".
const (
	TranslateX = "translate-x"
	TranslateY = "translate-y"
)

type attr struct {
	name  string
	value string
}

// Node is a mutable element of the scene graph. String attributes, numeric
// attributes and inline styles keep their insertion order so serialisation is
// deterministic.
type Node struct {
	Tag  string
	Text string

	classes  []string
	attrs    []attr
	numNames []string
	nums     map[string]float64
	styles   []attr

	parent   *Node
	children []*Node
}

// NewNode creates a detached element.
func NewNode(tag string) *Node {
	return &Node{Tag: tag, nums: make(map[string]float64)}
}

// Append attaches child as the last child of n, detaching it from any
// previous parent first.
func (n *Node) Append(child *Node) *Node {
	if child.parent != nil {
		child.Remove()
	}
	child.parent = n
	n.children = append(n.children, child)
	return child
}

// AppendNew creates a child element with the given tag.
func (n *Node) AppendNew(tag string) *Node {
	return n.Append(NewNode(tag))
}

// Remove detaches n from its parent.
func (n *Node) Remove() {
	p := n.parent
	if p == nil {
		return
	}
	for i, c := range p.children {
		if c == n {
			p.children = append(p.children[:i:i], p.children[i+1:]...)
			break
		}
	}
	n.parent = nil
}

// RemoveChildren detaches every child of n.
func (n *Node) RemoveChildren() {
	for _, c := range n.children {
		c.parent = nil
	}
	n.children = nil
}

// Parent returns the parent element or nil.
func (n *Node) Parent() *Node { return n.parent }

// Children returns a copy of the child list.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Classed adds or removes a class name.
func (n *Node) Classed(name string, on bool) *Node {
	idx := -1
	for i, c := range n.classes {
		if c == name {
			idx = i
			break
		}
	}
	switch {
	case on && idx < 0:
		n.classes = append(n.classes, name)
	case !on && idx >= 0:
		n.classes = append(n.classes[:idx:idx], n.classes[idx+1:]...)
	}
	return n
}

// HasClass reports whether n carries the class name.
func (n *Node) HasClass(name string) bool {
	for _, c := range n.classes {
		if c == name {
			return true
		}
	}
	return false
}

// SetAttr sets a string attribute.
func (n *Node) SetAttr(name, value string) *Node {
	n.attrs = setOrdered(n.attrs, name, value)
	return n
}

// Attr returns a string attribute.
func (n *Node) Attr(name string) (string, bool) {
	return lookupOrdered(n.attrs, name)
}

// SetNum sets a numeric attribute.
func (n *Node) SetNum(name string, v float64) *Node {
	if _, ok := n.nums[name]; !ok {
		n.numNames = append(n.numNames, name)
	}
	n.nums[name] = v
	return n
}

// Num returns a numeric attribute, zero when unset.
func (n *Node) Num(name string) float64 {
	return n.nums[name]
}

// HasNum reports whether the numeric attribute has been set.
func (n *Node) HasNum(name string) bool {
	_, ok := n.nums[name]
	return ok
}

// SetStyle sets an inline style property.
func (n *Node) SetStyle(name, value string) *Node {
	n.styles = setOrdered(n.styles, name, value)
	return n
}

// Style returns an inline style property, empty when unset.
func (n *Node) Style(name string) string {
	v, _ := lookupOrdered(n.styles, name)
	return v
}

// SetText replaces the text content.
func (n *Node) SetText(text string) *Node {
	n.Text = text
	return n
}

// Find returns the first element in depth-first order matching pred.
func (n *Node) Find(pred func(*Node) bool) *Node {
	if pred(n) {
		return n
	}
	for _, c := range n.children {
		if found := c.Find(pred); found != nil {
			return found
		}
	}
	return nil
}

// FindAll returns every element in depth-first order matching pred.
func (n *Node) FindAll(pred func(*Node) bool) []*Node {
	var out []*Node
	n.walk(func(node *Node) {
		if pred(node) {
			out = append(out, node)
		}
	})
	return out
}

func (n *Node) walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.children {
		c.walk(fn)
	}
}

// String serialises the subtree rooted at n.
func (n *Node) String() string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

// WriteTo serialises the subtree rooted at n to w.
func (n *Node) WriteTo(w io.Writer) (int64, error) {
	written, err := io.WriteString(w, n.String())
	return int64(written), err
}

func (n *Node) write(b *strings.Builder) {
	b.WriteByte('<')
	b.WriteString(n.Tag)
	if len(n.classes) > 0 {
		writeAttr(b, "class", strings.Join(n.classes, " "))
	}
	for _, a := range n.attrs {
		writeAttr(b, a.name, a.value)
	}
	_, hasX := n.nums[TranslateX]
	_, hasY := n.nums[TranslateY]
	for _, name := range n.numNames {
		if name == TranslateX || name == TranslateY {
			continue
		}
		writeAttr(b, name, FormatNumber(n.nums[name]))
	}
	if hasX || hasY {
		writeAttr(b, "transform", "translate("+FormatNumber(n.nums[TranslateX])+","+FormatNumber(n.nums[TranslateY])+")")
	}
	if len(n.styles) > 0 {
		parts := make([]string, 0, len(n.styles))
		for _, s := range n.styles {
			parts = append(parts, s.name+": "+s.value)
		}
		writeAttr(b, "style", strings.Join(parts, "; ")+";")
	}
	if len(n.children) == 0 && n.Text == "" {
		b.WriteString("/>")
		return
	}
	b.WriteByte('>')
	if n.Text != "" {
		escape(b, n.Text)
	}
	for _, c := range n.children {
		c.write(b)
	}
	b.WriteString("</")
	b.WriteString(n.Tag)
	b.WriteByte('>')
}

func writeAttr(b *strings.Builder, name, value string) {
	b.WriteByte(' ')
	b.WriteString(name)
	b.WriteString(`="`)
	escape(b, value)
	b.WriteByte('"')
}

func escape(b *strings.Builder, s string) {
	_ = xml.EscapeText(b, []byte(s))
}

// FormatNumber renders a coordinate with at most three decimals.
func FormatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	r := math.Round(v*1000) / 1000
	if r == 0 {
		r = 0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

func setOrdered(list []attr, name, value string) []attr {
	for i := range list {
		if list[i].name == name {
			list[i].value = value
			return list
		}
	}
	return append(list, attr{name: name, value: value})
}

func lookupOrdered(list []attr, name string) (string, bool) {
	for _, a := range list {
		if a.name == name {
			return a.value, true
		}
	}
	return "", false
}
