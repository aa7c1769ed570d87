package models

import (
	"encoding/json"

	"filer/pkg/document"
)

const legalFilingsKey = "legalFilings"

// Meta accumulates the ledger summary that handlers write while a filing is
// dispatched. It is stored as an ordered document so the ledger renders
// sections in the order the filing declared them.
type Meta struct {
	doc *document.Object
}

// NewMeta returns an empty accumulator.
func NewMeta() *Meta {
	return &Meta{doc: document.NewObject()}
}

// AddLegalFiling records that a section of this type was applied.
func (m *Meta) AddLegalFiling(ft FilingType) {
	list := m.doc.List(legalFilingsKey)
	for _, existing := range list {
		if existing == string(ft) {
			return
		}
	}
	m.doc.Set(legalFilingsKey, append(list, string(ft)))
}

// LegalFilings returns the filing types recorded so far.
func (m *Meta) LegalFilings() []FilingType {
	var out []FilingType
	for _, v := range m.doc.List(legalFilingsKey) {
		if s, ok := v.(string); ok {
			out = append(out, FilingType(s))
		}
	}
	return out
}

// Section returns the summary object for a filing type, creating it on first use.
func (m *Meta) Section(ft FilingType) *document.Object {
	if obj := m.doc.Object(string(ft)); obj != nil {
		return obj
	}
	obj := document.NewObject()
	m.doc.Set(string(ft), obj)
	return obj
}

// Set writes a top-level meta value.
func (m *Meta) Set(key string, value any) {
	m.doc.Set(key, value)
}

// Document exposes the underlying document for reads.
func (m *Meta) Document() *document.Object {
	return m.doc
}

// Clone returns a deep copy.
func (m *Meta) Clone() *Meta {
	if m == nil {
		return NewMeta()
	}
	return &Meta{doc: m.doc.Clone()}
}

func (m *Meta) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.doc)
}

func (m *Meta) UnmarshalJSON(data []byte) error {
	doc, err := document.Parse(data)
	if err != nil {
		return err
	}
	m.doc = doc
	return nil
}
