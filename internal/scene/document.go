package scene

// Document is the host page a chart mounts into.
type Document struct {
	root *Node
}

// NewDocument returns a document whose body contains one empty div per id.
func NewDocument(containerIDs ...string) *Document {
	d := &Document{root: NewNode("body")}
	for _, id := range containerIDs {
		d.root.AppendNew("div").SetAttr("id", id)
	}
	return d
}

// Root returns the body element.
func (d *Document) Root() *Node { return d.root }

// ElementByID looks up an element by its id attribute.
func (d *Document) ElementByID(id string) *Node {
	if d == nil || id == "" {
		return nil
	}
	return d.root.Find(func(n *Node) bool {
		v, ok := n.Attr("id")
		return ok && v == id
	})
}
