package resolver

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// NodeKind tags the variant held by a Node.
type NodeKind uint8

const (
	NullNode NodeKind = iota
	BoolNode
	NumberNode
	StringNode
	ArrayNode
	ObjectNode
)

// Node is a decoded provider response: an untyped JSON tree whose objects
// remember the order their keys appeared in.
type Node struct {
	kind   NodeKind
	flag   bool
	number json.Number
	text   string
	items  []Node
	keys   []string
	fields map[string]Node
}

// Parse decodes a single JSON document into a Node.
func Parse(data []byte) (Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	n, err := decodeNode(dec)
	if err != nil {
		return Node{}, fmt.Errorf("decode provider response: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Node{}, errors.New("decode provider response: trailing data after JSON value")
	}
	return n, nil
}

func decodeNode(dec *json.Decoder) (Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return Node{}, err
	}

	switch v := tok.(type) {
	case nil:
		return Node{}, nil
	case bool:
		return Node{kind: BoolNode, flag: v}, nil
	case json.Number:
		return Node{kind: NumberNode, number: v}, nil
	case string:
		return Node{kind: StringNode, text: v}, nil
	case json.Delim:
		switch v {
		case '[':
			n := Node{kind: ArrayNode, items: []Node{}}
			for dec.More() {
				item, err := decodeNode(dec)
				if err != nil {
					return Node{}, err
				}
				n.items = append(n.items, item)
			}
			if _, err := dec.Token(); err != nil {
				return Node{}, err
			}
			return n, nil
		case '{':
			n := Node{kind: ObjectNode, fields: make(map[string]Node)}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Node{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Node{}, fmt.Errorf("unexpected object key %v", keyTok)
				}
				value, err := decodeNode(dec)
				if err != nil {
					return Node{}, err
				}
				if _, seen := n.fields[key]; !seen {
					n.keys = append(n.keys, key)
				}
				n.fields[key] = value
			}
			if _, err := dec.Token(); err != nil {
				return Node{}, err
			}
			return n, nil
		}
	}
	return Node{}, fmt.Errorf("unexpected token %v", tok)
}

// Kind reports the variant held by n.
func (n Node) Kind() NodeKind { return n.kind }

// IsNull reports whether n is JSON null (or the zero Node).
func (n Node) IsNull() bool { return n.kind == NullNode }

// Field returns the member called name when n is an object.
func (n Node) Field(name string) (Node, bool) {
	if n.kind != ObjectNode {
		return Node{}, false
	}
	v, ok := n.fields[name]
	return v, ok
}

// Keys lists object member names in document order.
func (n Node) Keys() []string {
	return append([]string(nil), n.keys...)
}

// Items returns the elements of an array node, or nil.
func (n Node) Items() []Node {
	if n.kind != ArrayNode {
		return nil
	}
	return n.items
}

// Str returns the value of a string node.
func (n Node) Str() (string, bool) {
	if n.kind != StringNode {
		return "", false
	}
	return n.text, true
}

// Bool returns the value of a bool node.
func (n Node) Bool() (bool, bool) {
	if n.kind != BoolNode {
		return false, false
	}
	return n.flag, true
}

// Number returns the literal of a number node.
func (n Node) Number() (json.Number, bool) {
	if n.kind != NumberNode {
		return "", false
	}
	return n.number, true
}

// Text renders scalar strings and numbers as trimmed text; other kinds yield "".
func (n Node) Text() string {
	switch n.kind {
	case StringNode:
		return strings.TrimSpace(n.text)
	case NumberNode:
		return n.number.String()
	default:
		return ""
	}
}

// Truthy reports whether a bool flag is set, accepting "true"/"1" strings
// and non-zero numbers as some providers encode flags that way.
func (n Node) Truthy() bool {
	switch n.kind {
	case BoolNode:
		return n.flag
	case StringNode:
		s := strings.ToLower(strings.TrimSpace(n.text))
		return s == "true" || s == "1" || s == "yes"
	case NumberNode:
		f, err := n.number.Float64()
		return err == nil && f != 0
	default:
		return false
	}
}

// MarshalJSON serializes n preserving key order. HTML characters are not
// escaped so that URLs survive verbatim.
func (n Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n Node) encode(buf *bytes.Buffer) error {
	switch n.kind {
	case NullNode:
		buf.WriteString("null")
	case BoolNode:
		if n.flag {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case NumberNode:
		buf.WriteString(n.number.String())
	case StringNode:
		return encodeString(buf, n.text)
	case ArrayNode:
		buf.WriteByte('[')
		for i, item := range n.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case ObjectNode:
		buf.WriteByte('{')
		for i, key := range n.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encodeString(buf, key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := n.fields[key].encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("unknown node kind %d", n.kind)
	}
	return nil
}

func encodeString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
	return nil
}
