// Package caml builds and reads the CAML view documents sent with list
// item queries.
package caml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidView is returned when a query document is not a CAML view.
var ErrInvalidView = errors.New("invalid CAML view")

// View is a CAML <View> document.
type View struct {
	XMLName    xml.Name   `xml:"View"`
	Scope      string     `xml:"Scope,attr,omitempty"`
	Query      *Query     `xml:"Query,omitempty"`
	ViewFields []FieldRef `xml:"ViewFields>FieldRef"`
	RowLimit   *RowLimit  `xml:"RowLimit,omitempty"`
}

// Query holds the <Query> element verbatim.
type Query struct {
	Inner string `xml:",innerxml"`
}

// FieldRef names one projected field.
type FieldRef struct {
	Name string `xml:"Name,attr"`
}

// RowLimit caps the number of returned items.
type RowLimit struct {
	Paged bool `xml:"Paged,attr,omitempty"`
	Value int  `xml:",chardata"`
}

// ViewFields returns a view projecting the given fields over all items.
func ViewFields(fields ...string) View {
	v := View{ViewFields: make([]FieldRef, 0, len(fields))}
	for _, f := range fields {
		v.ViewFields = append(v.ViewFields, FieldRef{Name: f})
	}
	return v
}

// WithRowLimit returns a copy of v limited to n items.
func (v View) WithRowLimit(n int) View {
	if n <= 0 {
		v.RowLimit = nil
		return v
	}
	v.RowLimit = &RowLimit{Value: n}
	return v
}

// Fields returns the projected field names in document order.
func (v View) Fields() []string {
	names := make([]string, len(v.ViewFields))
	for i, f := range v.ViewFields {
		names[i] = f.Name
	}
	return names
}

// Limit returns the row limit, or 0 when unlimited.
func (v View) Limit() int {
	if v.RowLimit == nil {
		return 0
	}
	return v.RowLimit.Value
}

// XML renders v as a view document.
func (v View) XML() (string, error) {
	data, err := xml.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal view: %w", err)
	}
	return string(data), nil
}

// String renders v, returning "" if it cannot be encoded.
func (v View) String() string {
	s, _ := v.XML()
	return s
}

// Parse reads a view document. A blank document yields the zero View,
// which selects every field of every item.
func Parse(viewXML string) (View, error) {
	var v View
	if strings.TrimSpace(viewXML) == "" {
		return v, nil
	}
	if err := xml.Unmarshal([]byte(viewXML), &v); err != nil {
		return View{}, fmt.Errorf("%w: %v", ErrInvalidView, err)
	}
	return v, nil
}
