package description

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	guzzle "github.com/zubr/guzzle"
	"github.com/zubr/guzzle/filters"
	"github.com/zubr/guzzle/schema"
	"github.com/zubr/guzzle/value"
)

// Option configures loading.
type Option func(*loader)

// WithFilters resolves filter declarations against r instead of
// filters.Default().
func WithFilters(r *filters.Registry) Option {
	return func(l *loader) { l.filters = r }
}

// LoadFile reads a description, choosing the format by file extension
// (.json is JSON, anything else YAML).
func LoadFile(path string, opts ...Option) (*Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return LoadJSON(data, opts...)
	}
	return LoadYAML(data, opts...)
}

// LoadYAML parses a YAML description.
func LoadYAML(data []byte, opts ...Option) (*Description, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, invalid("", err)
	}
	doc, err := fromYAML(&root)
	if err != nil {
		return nil, invalid("", err)
	}
	return load(doc, opts)
}

// LoadJSON parses a JSON description. Duplicate keys are rejected.
func LoadJSON(data []byte, opts ...Option) (*Description, error) {
	doc, err := guzzle.DecodeJSON(data, guzzle.ParseOpt{Strictness: guzzle.Strictness{OnDuplicateKey: guzzle.Error}})
	if err != nil {
		return nil, invalid("", err)
	}
	return load(doc, opts)
}

// LoadYAMLReader is LoadYAML over a reader.
func LoadYAMLReader(r io.Reader, opts ...Option) (*Description, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return LoadYAML(data, opts...)
}

func invalid(path string, cause error) error {
	if guzzle.CodeOf(cause) == guzzle.CodeInvalidDescription {
		return cause
	}
	return guzzle.NewIssue(guzzle.CodeInvalidDescription, path, nil, cause)
}

func fromYAML(n *yaml.Node) (value.Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return value.Null(), nil
		}
		return fromYAML(n.Content[0])
	case yaml.AliasNode:
		return fromYAML(n.Alias)
	case yaml.MappingNode:
		m := value.NewMap(len(n.Content) / 2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := fromYAML(n.Content[i+1])
			if err != nil {
				return value.Null(), err
			}
			m.Set(n.Content[i].Value, v)
		}
		return value.Object(m), nil
	case yaml.SequenceNode:
		items := make([]value.Value, len(n.Content))
		for i, c := range n.Content {
			v, err := fromYAML(c)
			if err != nil {
				return value.Null(), err
			}
			items[i] = v
		}
		return value.Seq(items...), nil
	case yaml.ScalarNode:
		if n.Tag == "!!timestamp" {
			return value.String(n.Value), nil
		}
		var x any
		if err := n.Decode(&x); err != nil {
			return value.Null(), fmt.Errorf("line %d: %w", n.Line, err)
		}
		return value.Scalar(x), nil
	default:
		return value.Null(), fmt.Errorf("line %d: unsupported yaml node", n.Line)
	}
}

type loader struct {
	filters *filters.Registry
	raw     *value.Map // model name -> raw node
	done    map[string]*schema.Parameter
	active  map[string]bool
}

func load(doc value.Value, opts []Option) (*Description, error) {
	l := &loader{filters: filters.Default(), done: map[string]*schema.Parameter{}, active: map[string]bool{}}
	for _, o := range opts {
		o(l)
	}
	if doc.IsNull() {
		doc = value.Object(nil)
	}
	if !value.ObjectLike(doc) {
		return nil, invalid("", errors.New("description must be a mapping"))
	}
	top := doc.Map()
	d := &Description{
		Name:        str(top, "name"),
		APIVersion:  str(top, "apiVersion"),
		BaseURL:     str(top, "baseUrl"),
		Description: str(top, "description"),
		operations:  map[string]*Operation{},
		models:      map[string]*schema.Parameter{},
	}

	l.raw = value.NewMap(0)
	if models, ok := top.Get("models"); ok {
		if !value.ObjectLike(models) {
			return nil, invalid("/models", errors.New("models must be a mapping"))
		}
		l.raw = models.Map()
	}
	for _, name := range l.raw.Keys() {
		m, err := l.model(name)
		if err != nil {
			return nil, err
		}
		d.models[name] = m
		d.modelOrder = append(d.modelOrder, name)
	}

	if ops, ok := top.Get("operations"); ok {
		if !value.ObjectLike(ops) {
			return nil, invalid("/operations", errors.New("operations must be a mapping"))
		}
		var err error
		ops.Map().Range(func(name string, node value.Value) bool {
			var op *Operation
			if op, err = l.operation(d, name, node); err != nil {
				return false
			}
			d.operations[name] = op
			d.opOrder = append(d.opOrder, name)
			return true
		})
		if err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (l *loader) operation(d *Description, name string, node value.Value) (*Operation, error) {
	path := "/operations/" + name
	if !value.ObjectLike(node) {
		return nil, invalid(path, errors.New("operation must be a mapping"))
	}
	m := node.Map()
	op := &Operation{
		Name:          name,
		HTTPMethod:    str(m, "httpMethod"),
		URI:           str(m, "uri"),
		Summary:       str(m, "summary"),
		ResponseType:  ResponseType(str(m, "responseType")),
		ResponseModel: str(m, "responseModel"),
		ResponseClass: str(m, "responseClass"),
	}
	switch op.ResponseType {
	case "", ResponsePrimitive, ResponseClass, ResponseDocumentation, ResponseModel:
	default:
		return nil, invalid(path+"/responseType", fmt.Errorf("unknown response type %q", op.ResponseType))
	}
	d.inferType(op)
	if op.ResponseType == ResponseModel {
		op.Model = d.models[op.ResponseModel]
	}
	return op, nil
}

// model resolves a named model once. Models may reference each other through
// $ref and extends; a reference back into a model that is still being
// resolved is a cycle.
func (l *loader) model(name string) (*schema.Parameter, error) {
	if m, ok := l.done[name]; ok {
		return m, nil
	}
	path := "/models/" + name
	if l.active[name] {
		return nil, invalid(path, fmt.Errorf("model %q refers to itself", name))
	}
	node, ok := l.raw.Get(name)
	if !ok {
		return nil, invalid(path, fmt.Errorf("unknown model %q", name))
	}
	l.active[name] = true
	defer delete(l.active, name)
	p, err := l.param(name, node, path)
	if err != nil {
		return nil, err
	}
	l.done[name] = p
	return p, nil
}

func (l *loader) param(name string, node value.Value, path string) (*schema.Parameter, error) {
	if node.IsNull() {
		return &schema.Parameter{Name: name}, nil
	}
	if !value.ObjectLike(node) {
		return nil, invalid(path, errors.New("schema must be a mapping"))
	}
	m := node.Map()

	p := &schema.Parameter{}
	for _, key := range []string{"$ref", "extends"} {
		if base := str(m, key); base != "" {
			resolved, err := l.model(base)
			if err != nil {
				return nil, err
			}
			p = clone(resolved)
		}
	}
	p.Name = name

	var err error
	m.Range(func(key string, v value.Value) bool {
		err = l.field(p, key, v, path+"/"+key)
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (l *loader) field(p *schema.Parameter, key string, v value.Value, path string) error {
	switch key {
	case "type":
		p.Type = schema.Type(typeName(v))
	case "sentAs":
		s, _ := v.Text()
		p.SentAs = schema.Wire(s)
	case "location":
		p.Location, _ = v.Text()
	case "description":
		p.Description, _ = v.Text()
	case "default":
		p.Default = v
	case "items":
		items, err := l.param("", v, path)
		if err != nil {
			return err
		}
		p.Items = items
	case "properties":
		if !value.ObjectLike(v) && v.Len() > 0 {
			return invalid(path, errors.New("properties must be a mapping"))
		}
		props := v.Map()
		if props == nil {
			return nil
		}
		var err error
		props.Range(func(name string, node value.Value) bool {
			var prop *schema.Parameter
			if prop, err = l.param(name, node, path+"/"+name); err != nil {
				return false
			}
			setProperty(p, prop)
			return true
		})
		return err
	case "additionalProperties":
		switch {
		case v.Kind() == value.KindScalar:
			b, ok := v.Raw().(bool)
			if !ok {
				return invalid(path, fmt.Errorf("expected boolean or schema, got %v", v.Raw()))
			}
			if b {
				p.AdditionalProperties = schema.Allow()
			} else {
				p.AdditionalProperties = schema.Deny()
			}
		case v.IsNull():
			p.AdditionalProperties = schema.Allow()
		default:
			add, err := l.param("", v, path)
			if err != nil {
				return err
			}
			p.AdditionalProperties = schema.With(add)
		}
	case "filters":
		fs, err := l.filterList(v, path)
		if err != nil {
			return err
		}
		p.Filters = fs
	}
	return nil
}

// filterList reads filter declarations: a name, or a mapping with the name
// under "method" and optional "args".
func (l *loader) filterList(v value.Value, path string) ([]schema.Filter, error) {
	decls := v.Items()
	if v.Kind() == value.KindScalar {
		decls = []value.Value{v}
	}
	out := make([]schema.Filter, 0, len(decls))
	for i, d := range decls {
		var (
			name string
			args []any
		)
		switch {
		case d.Kind() == value.KindScalar:
			name, _ = d.Text()
		case value.ObjectLike(d):
			name = str(d.Map(), "method")
			if name == "" {
				name = str(d.Map(), "name")
			}
			if a, ok := d.Map().Get("args"); ok {
				if list, ok := a.Interface().([]any); ok {
					args = list
				}
			}
		}
		if name == "" {
			return nil, invalid(fmt.Sprintf("%s/%d", path, i), errors.New("filter without a name"))
		}
		f, err := l.filters.Build(name, args)
		if err != nil {
			return nil, invalid(fmt.Sprintf("%s/%d", path, i), err)
		}
		out = append(out, f)
	}
	return out, nil
}

func setProperty(p *schema.Parameter, prop *schema.Parameter) {
	for i, cur := range p.Properties {
		if cur.Name == prop.Name {
			p.Properties[i] = prop
			return
		}
	}
	p.Properties = append(p.Properties, prop)
}

// typeName accepts a single type or a union, in which case the first non-null
// member is used.
func typeName(v value.Value) string {
	if s, ok := v.Text(); ok {
		return s
	}
	for _, it := range v.Items() {
		if s, ok := it.Text(); ok && s != "null" {
			return s
		}
	}
	return ""
}

func str(m *value.Map, key string) string {
	v, ok := m.Get(key)
	if !ok {
		return ""
	}
	s, _ := v.Text()
	return s
}

func clone(p *schema.Parameter) *schema.Parameter {
	if p == nil {
		return nil
	}
	c := *p
	if p.SentAs != nil {
		c.SentAs = schema.Wire(*p.SentAs)
	}
	c.Items = clone(p.Items)
	if p.Properties != nil {
		c.Properties = make([]*schema.Parameter, len(p.Properties))
		for i, prop := range p.Properties {
			c.Properties[i] = clone(prop)
		}
	}
	c.AdditionalProperties.Schema = clone(p.AdditionalProperties.Schema)
	c.Filters = append([]schema.Filter(nil), p.Filters...)
	return &c
}
