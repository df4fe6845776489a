package vdoc

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/xml"
)

var entityReplacer = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
	"&amp;", "&",
)

// Decode reads an XML vector document. Comments, processing instructions
// and doctype declarations are skipped; namespaces are kept verbatim in tag
// and attribute names.
func Decode(r io.Reader, url string) (*Document, error) {
	l := xml.NewLexer(parse.NewInput(r))

	var root *Element
	var stack []*Element
	var cur *Element // element whose start tag is still open

	for {
		tt, data := l.Next()
		switch tt {
		case xml.ErrorToken:
			if l.Err() != io.EOF {
				return nil, fmt.Errorf("vdoc: decode %s: %w", url, l.Err())
			}
			if len(stack) > 0 {
				return nil, fmt.Errorf("vdoc: decode %s: unclosed <%s>", url, stack[len(stack)-1].Tag)
			}
			if root == nil {
				return nil, fmt.Errorf("vdoc: decode %s: no root element", url)
			}
			return NewDocument(url, root), nil
		case xml.StartTagToken:
			el := &Element{Tag: string(l.Text())}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, el)
			} else if root == nil {
				root = el
			} else {
				return nil, fmt.Errorf("vdoc: decode %s: multiple root elements", url)
			}
			cur = el
		case xml.AttributeToken:
			if cur == nil {
				continue
			}
			cur.Attrs = append(cur.Attrs, Attr{
				Name:  string(l.Text()),
				Value: attrValue(l.AttrVal()),
			})
		case xml.StartTagCloseToken:
			if cur != nil {
				stack = append(stack, cur)
				cur = nil
			}
		case xml.StartTagCloseVoidToken:
			cur = nil
		case xml.EndTagToken:
			name := string(l.Text())
			if len(stack) == 0 || stack[len(stack)-1].Tag != name {
				return nil, fmt.Errorf("vdoc: decode %s: unexpected </%s>", url, name)
			}
			stack = stack[:len(stack)-1]
		case xml.TextToken:
			if len(stack) > 0 {
				el := stack[len(stack)-1]
				el.Text += entityReplacer.Replace(string(data))
			}
		case xml.CDATAToken:
			if len(stack) > 0 {
				el := stack[len(stack)-1]
				el.Text += string(cdataBody(data))
			}
		}
	}
}

// DecodeString is Decode over a string.
func DecodeString(s, url string) (*Document, error) {
	return Decode(strings.NewReader(s), url)
}

func attrValue(b []byte) string {
	if n := len(b); n >= 2 && (b[0] == '"' || b[0] == '\'') && b[n-1] == b[0] {
		b = b[1 : n-1]
	}
	return entityReplacer.Replace(string(b))
}

func cdataBody(b []byte) []byte {
	b = bytes.TrimPrefix(b, []byte("<![CDATA["))
	return bytes.TrimSuffix(b, []byte("]]>"))
}
