package vdoc

import (
	"errors"
	"strings"

	"github.com/tdewolff/parse/v2/strconv"
)

// ErrNotFound is returned when a document or fragment does not exist.
var ErrNotFound = errors.New("vdoc: not found")

// Attr is a single element attribute.
type Attr struct {
	Name  string
	Value string
}

// Element is one node of a vector document. Elements are immutable once
// decoded; the engine only reads them.
type Element struct {
	Tag      string
	Attrs    []Attr
	Children []*Element
	Text     string // character data directly inside the element
}

// Attr returns the value of the named attribute and whether it is present.
func (e *Element) Attr(name string) (string, bool) {
	for i := range e.Attrs {
		if e.Attrs[i].Name == name {
			return e.Attrs[i].Value, true
		}
	}
	return "", false
}

// AttrOr returns the named attribute or def when absent.
func (e *Element) AttrOr(name, def string) string {
	if v, ok := e.Attr(name); ok {
		return v
	}
	return def
}

// ID returns the element's id attribute.
func (e *Element) ID() string {
	return e.AttrOr("id", "")
}

// Href returns the element's link target, preferring href over xlink:href.
func (e *Element) Href() string {
	if v, ok := e.Attr("href"); ok {
		return v
	}
	return e.AttrOr("xlink:href", "")
}

// Number parses a numeric attribute, ignoring a trailing unit such as px.
// ok is false when the attribute is absent or does not start with a number.
func (e *Element) Number(name string) (v float64, ok bool) {
	s, present := e.Attr(name)
	if !present {
		return 0, false
	}
	s = strings.TrimSpace(s)
	v, n := strconv.ParseFloat([]byte(s))
	if n == 0 {
		return 0, false
	}
	return v, true
}

// NumberOr is Number with a default.
func (e *Element) NumberOr(name string, def float64) float64 {
	if v, ok := e.Number(name); ok {
		return v
	}
	return def
}

// Walk calls fn for e and every descendant in document order. Returning
// false from fn skips the element's children.
func (e *Element) Walk(fn func(*Element) bool) {
	if !fn(e) {
		return
	}
	for _, c := range e.Children {
		c.Walk(fn)
	}
}

// Document is a decoded vector document.
type Document struct {
	URL  string
	Root *Element

	ids map[string]*Element
}

// NewDocument wraps a root element and indexes its ids.
func NewDocument(url string, root *Element) *Document {
	d := &Document{URL: url, Root: root, ids: make(map[string]*Element)}
	if root != nil {
		root.Walk(func(el *Element) bool {
			if id := el.ID(); id != "" {
				if _, dup := d.ids[id]; !dup {
					d.ids[id] = el
				}
			}
			return true
		})
	}
	return d
}

// ByID returns the first element with the given id.
func (d *Document) ByID(id string) (*Element, bool) {
	el, ok := d.ids[id]
	return el, ok
}

// ViewBox is the user-space rectangle mapped onto the viewport.
type ViewBox struct {
	X, Y, Width, Height float64
}

// ViewBox returns the root element's viewBox. When the attribute is absent
// the width and height attributes are used with a zero origin.
func (d *Document) ViewBox() (ViewBox, bool) {
	if d.Root == nil {
		return ViewBox{}, false
	}
	if s, ok := d.Root.Attr("viewBox"); ok {
		nums := ParseNumbers(s)
		if len(nums) == 4 && nums[2] > 0 && nums[3] > 0 {
			return ViewBox{nums[0], nums[1], nums[2], nums[3]}, true
		}
	}
	w, wok := d.Root.Number("width")
	h, hok := d.Root.Number("height")
	if wok && hok && w > 0 && h > 0 {
		return ViewBox{0, 0, w, h}, true
	}
	return ViewBox{}, false
}

// ParseNumbers parses a whitespace- or comma-separated number list, stopping
// at the first token that is not a number.
func ParseNumbers(s string) []float64 {
	b := []byte(s)
	var out []float64
	for i := 0; i < len(b); {
		switch b[i] {
		case ' ', '\t', '\n', '\r', ',', ';':
			i++
			continue
		}
		v, n := strconv.ParseFloat(b[i:])
		if n == 0 {
			break
		}
		out = append(out, v)
		i += n
	}
	return out
}

// SplitRef splits a reference such as "shapes.svg#star" into its document
// part and fragment. Local references ("#star") have an empty document part.
func SplitRef(ref string) (doc, fragment string) {
	ref = strings.TrimSpace(ref)
	if i := strings.LastIndexByte(ref, '#'); i >= 0 {
		return ref[:i], ref[i+1:]
	}
	return ref, ""
}
