// Package schema describes the expected shape of a parsed response: one
// Parameter per field, arranged as a tree.
//
// Parameters are plain data. They are built once (by hand or by the
// description loader) and never mutated while responses are parsed, so a tree
// can be shared by concurrent parses.
package schema

import (
	guzzle "github.com/zubr/guzzle"
	"github.com/zubr/guzzle/value"
)

// Type is the declared type of a Parameter.
type Type string

const (
	TypeString  Type = "string"
	TypeInteger Type = "integer"
	TypeNumber  Type = "number"
	TypeBoolean Type = "boolean"
	TypeNull    Type = "null"
	TypeAny     Type = "any"
	TypeArray   Type = "array"
	TypeObject  Type = "object"
)

// AdditionalMode selects how undeclared keys are handled.
type AdditionalMode uint8

const (
	// AdditionalAllow merges undeclared keys as they are. It covers both an
	// absent policy and an explicit true.
	AdditionalAllow AdditionalMode = iota
	// AdditionalDeny drops undeclared keys.
	AdditionalDeny
	// AdditionalSchema processes undeclared keys with a nested Parameter.
	AdditionalSchema
)

// Additional is the additionalProperties policy. The zero value allows.
type Additional struct {
	Mode   AdditionalMode
	Schema *Parameter
}

// Allow returns the merge-all policy.
func Allow() Additional { return Additional{Mode: AdditionalAllow} }

// Deny returns the drop-all policy.
func Deny() Additional { return Additional{Mode: AdditionalDeny} }

// With returns the validate-and-merge policy using p for every undeclared key.
func With(p *Parameter) Additional { return Additional{Mode: AdditionalSchema, Schema: p} }

// FilterFunc transforms an extracted value.
type FilterFunc func(value.Value) (value.Value, error)

// Filter is a named FilterFunc. The name shows up in errors.
type Filter struct {
	Name  string
	Apply FilterFunc
}

// Parameter is a schema node.
type Parameter struct {
	// Name is the logical key in the result.
	Name string
	// SentAs is the key or header name on the wire. nil means "same as Name";
	// a pointer to "" is an explicit empty wire name.
	SentAs *string
	Type   Type
	// Items describes array elements.
	Items *Parameter
	// Properties are the declared object members, in declaration order.
	Properties           []*Parameter
	AdditionalProperties Additional
	// Location selects the visitor that extracts this field (body, header, ...).
	Location    string
	Filters     []Filter
	Description string
	// Default is informational; parsing never substitutes it.
	Default value.Value
}

// Wire returns a pointer to s, for use as Parameter.SentAs.
func Wire(s string) *string { return &s }

// WireName is the effective extraction key: SentAs when set, else Name.
func (p *Parameter) WireName() string {
	if p.SentAs != nil {
		return *p.SentAs
	}
	return p.Name
}

// SentAsEmpty reports whether SentAs was set to an explicit empty string.
func (p *Parameter) SentAsEmpty() bool { return p.SentAs != nil && *p.SentAs == "" }

// Is reports whether the declared type is t.
func (p *Parameter) Is(t Type) bool { return p != nil && p.Type == t }

// Property returns the declared property with the given logical name.
func (p *Parameter) Property(name string) *Parameter {
	for _, prop := range p.Properties {
		if prop.Name == name {
			return prop
		}
	}
	return nil
}

// PropertyNames lists declared property names in declaration order.
func (p *Parameter) PropertyNames() []string {
	names := make([]string, 0, len(p.Properties))
	for _, prop := range p.Properties {
		names = append(names, prop.Name)
	}
	return names
}

// Anonymous returns a shallow copy of p without a name or wire key. The
// original is left untouched.
func (p *Parameter) Anonymous() *Parameter {
	c := *p
	c.Name = ""
	c.SentAs = nil
	return &c
}

// Filter runs the filters in order. Null passes through without invoking any
// filter. A failing filter aborts with a filter_error issue naming it.
func (p *Parameter) Filter(v value.Value) (value.Value, error) {
	if p == nil || v.IsNull() {
		return v, nil
	}
	for _, f := range p.Filters {
		if f.Apply == nil {
			continue
		}
		out, err := f.Apply(v)
		if err != nil {
			return value.Null(), guzzle.NewIssue(guzzle.CodeFilter, "", map[string]string{"filter": f.Name}, err)
		}
		v = out
	}
	return v, nil
}
