package domain

import (
	"encoding/json"
	"strings"
)

// Block types that make up a document.
const (
	BlockHeader    = "header"
	BlockParagraph = "paragraph"
	BlockList      = "list"
	BlockQuote     = "quote"
)

// Document is a block-structured rich-text document: an ordered sequence of
// typed blocks. It round-trips through a string column in storage. If the
// stored string is not valid block JSON, the document carries it verbatim in
// Raw instead of failing the read.
type Document struct {
	Blocks []Block `json:"blocks"`

	// Raw holds the original serialized content when parsing failed.
	// When set, Blocks is empty and serialization returns Raw unchanged.
	Raw string `json:"-"`
}

// Block is a single typed content segment.
type Block struct {
	Type string    `json:"type"`
	Data BlockData `json:"data"`
}

// BlockData carries the payload of a block. Text is used by header,
// paragraph, and quote blocks; Items by list blocks.
type BlockData struct {
	Text    string   `json:"text,omitempty"`
	Level   int      `json:"level,omitempty"`
	Style   string   `json:"style,omitempty"`
	Items   []string `json:"items,omitempty"`
	Caption string   `json:"caption,omitempty"`
}

// ParseDocument decodes a stored content string. A string that does not
// decode as block JSON is preserved as-is in Raw rather than rejected.
func ParseDocument(s string) *Document {
	if s == "" {
		return nil
	}
	var doc Document
	if err := json.Unmarshal([]byte(s), &doc); err != nil || doc.Blocks == nil {
		return &Document{Raw: s}
	}
	return &doc
}

// Serialize encodes the document for storage. A raw (unparseable) document
// is written back unchanged.
func (d *Document) Serialize() (string, error) {
	if d == nil {
		return "", nil
	}
	if d.Raw != "" {
		return d.Raw, nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// PlainText flattens the document to searchable text, joining block text
// and list items with spaces.
func (d *Document) PlainText() string {
	if d == nil {
		return ""
	}
	if d.Raw != "" {
		return d.Raw
	}
	var parts []string
	for _, b := range d.Blocks {
		if b.Data.Text != "" {
			parts = append(parts, b.Data.Text)
		}
		if b.Data.Caption != "" {
			parts = append(parts, b.Data.Caption)
		}
		parts = append(parts, b.Data.Items...)
	}
	return strings.Join(parts, " ")
}

// IsEmpty reports whether the document has no blocks and no raw payload.
func (d *Document) IsEmpty() bool {
	return d == nil || (len(d.Blocks) == 0 && d.Raw == "")
}

// MarshalJSON keeps unparseable content intact on the wire: a raw document
// marshals back to its original string form.
func (d *Document) MarshalJSON() ([]byte, error) {
	if d.Raw != "" {
		return json.Marshal(d.Raw)
	}
	type alias Document
	return json.Marshal((*alias)(d))
}

// UnmarshalJSON accepts either a block object or a bare string (legacy
// records stored content as plain strings).
func (d *Document) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed := ParseDocument(s)
		if parsed != nil {
			*d = *parsed
		}
		return nil
	}
	type alias Document
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*d = Document(a)
	return nil
}
