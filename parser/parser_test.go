package parser_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	guzzle "github.com/zubr/guzzle"
	"github.com/zubr/guzzle/description"
	"github.com/zubr/guzzle/parser"
	"github.com/zubr/guzzle/response"
	"github.com/zubr/guzzle/schema"
	"github.com/zubr/guzzle/value"
	"github.com/zubr/guzzle/visitor"
)

func jsonResponse(t *testing.T, body string) *response.Response {
	t.Helper()
	doc, err := guzzle.DecodeJSON([]byte(body))
	require.NoError(t, err)
	return response.New(200, nil, doc)
}

func render(t *testing.T, m *parser.Model) string {
	t.Helper()
	b, err := m.MarshalJSON()
	require.NoError(t, err)
	return string(b)
}

func upperFilter() schema.Filter {
	return schema.Filter{Name: "upper", Apply: func(v value.Value) (value.Value, error) {
		if s, ok := v.Raw().(string); ok {
			return value.String(strings.ToUpper(s)), nil
		}
		return v, nil
	}}
}

func trimFilter() schema.Filter {
	return schema.Filter{Name: "trim", Apply: func(v value.Value) (value.Value, error) {
		if s, ok := v.Raw().(string); ok {
			return value.String(strings.TrimSpace(s)), nil
		}
		return v, nil
	}}
}

func idModel(add schema.Additional) *schema.Parameter {
	return &schema.Parameter{
		Name: "Thing", Type: schema.TypeObject, Location: "json", AdditionalProperties: add,
		Properties: []*schema.Parameter{{Name: "id", SentAs: schema.Wire("ID"), Type: schema.TypeInteger}},
	}
}

func TestParseModel_Object(t *testing.T) {
	tests := []struct {
		name  string
		model *schema.Parameter
		body  string
		want  string
	}{
		{"wire name", idModel(schema.Allow()), `{"ID":5}`, `{"id":5}`},
		{"allow keeps extra", idModel(schema.Allow()), `{"ID":5,"extra":"x"}`, `{"id":5,"extra":"x"}`},
		{"deny drops extra", idModel(schema.Deny()), `{"ID":5,"extra":"x"}`, `{"id":5}`},
		{
			name: "additional schema with location",
			model: &schema.Parameter{Type: schema.TypeObject, AdditionalProperties: schema.With(&schema.Parameter{
				Type: schema.TypeString, Location: "body", Filters: []schema.Filter{upperFilter()},
			})},
			body: `{"extra":"x"}`,
			want: `{"extra":"X"}`,
		},
		{
			name: "additional schema with location next to declared property",
			model: idModel(schema.With(&schema.Parameter{
				Type: schema.TypeString, Location: "body", Filters: []schema.Filter{upperFilter()},
			})),
			body: `{"ID":5,"extra":"x"}`,
			// the leftover pass runs before the declared properties
			want: `{"extra":"X","id":5}`,
		},
		{"sequence document under object model", idModel(schema.Allow()), `[{"ID":1}]`, `{}`},
		{"empty body", idModel(schema.Allow()), ``, `{}`},
	}
	p := parser.New(visitor.NewRegistry(), parser.WithoutMetrics())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := p.ParseModel(context.Background(), tt.model, jsonResponse(t, tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, render(t, m))
		})
	}
}

func TestParseModel_FilteredSiblingsKeepTheirValues(t *testing.T) {
	model := &schema.Parameter{Type: schema.TypeObject, Location: "json", AdditionalProperties: schema.Deny(),
		Properties: []*schema.Parameter{
			{Name: "a", Filters: []schema.Filter{upperFilter()}},
			{Name: "b", Filters: []schema.Filter{upperFilter()}},
		},
	}
	m, err := parser.New(nil, parser.WithoutMetrics()).ParseModel(context.Background(), model, jsonResponse(t, `{"a":"x","b":"y"}`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":"X","b":"Y"}`, render(t, m))
}

func TestParseModel_Array(t *testing.T) {
	model := &schema.Parameter{Type: schema.TypeArray, Items: &schema.Parameter{
		Type: schema.TypeString, Location: "json", Filters: []schema.Filter{trimFilter()},
	}}
	p := parser.New(nil, parser.WithoutMetrics())
	m, err := p.ParseModel(context.Background(), model, jsonResponse(t, `["  a "," b"]`))
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, render(t, m))

	v, ok := m.Path("1")
	require.True(t, ok)
	assert.Equal(t, "b", v.Raw())

	// without a location nothing is visited
	m, err = p.ParseModel(context.Background(), &schema.Parameter{Type: schema.TypeArray}, jsonResponse(t, `[1]`))
	require.NoError(t, err)
	assert.Equal(t, `[]`, render(t, m))
}

func TestParseModel_HeaderPrefix(t *testing.T) {
	h := response.NewHeader()
	h.Add("X-Meta-Color", "red")
	h.Add("X-Meta-Size", "s")
	h.Add("X-Meta-Size", "m")
	h.Add("Date", "today")
	model := &schema.Parameter{Type: schema.TypeObject, Properties: []*schema.Parameter{{
		Name: "meta", SentAs: schema.Wire("X-Meta-"), Type: schema.TypeObject, Location: "header",
		AdditionalProperties: schema.With(&schema.Parameter{Type: schema.TypeString}),
	}}}
	m, err := parser.New(nil, parser.WithoutMetrics()).ParseModel(context.Background(), model, response.New(200, h, value.Null()))
	require.NoError(t, err)
	assert.Equal(t, `{"meta":{"Color":"red","Size":["s","m"]}}`, render(t, m))
}

func TestParseModel_AdditionalHeaderSchemaNextToDeclaredHeader(t *testing.T) {
	h := response.NewHeader()
	h.Add("X-Id", "5")
	h.Add("X-Extra", "x")
	model := &schema.Parameter{
		Type: schema.TypeObject, Location: "header",
		AdditionalProperties: schema.With(&schema.Parameter{
			Type: schema.TypeString, Location: "header", Filters: []schema.Filter{upperFilter()},
		}),
		Properties: []*schema.Parameter{{Name: "id", SentAs: schema.Wire("X-Id")}},
	}
	m, err := parser.New(nil, parser.WithoutMetrics()).ParseModel(context.Background(), model, response.New(200, h, value.Null()))
	require.NoError(t, err)
	// the declared header keeps its raw copy; X-Extra keeps the filtered value
	assert.Equal(t, `{"X-Extra":"X","id":"5","X-Id":"5"}`, render(t, m))
}

func TestParseModel_ResultDoesNotShareBodyStorage(t *testing.T) {
	resp := jsonResponse(t, `{"ID":5,"extra":{"k":"v"},"list":[{"k":"v"}]}`)
	m, err := parser.New(nil, parser.WithoutMetrics()).ParseModel(context.Background(), idModel(schema.Allow()), resp)
	require.NoError(t, err)

	extra, ok := m.Path("extra")
	require.True(t, ok)
	extra.Map().Set("k", value.String("changed"))
	item, ok := m.Path("list/0")
	require.True(t, ok)
	item.Map().Set("k", value.String("changed"))

	b, err := resp.Body.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"ID":5,"extra":{"k":"v"},"list":[{"k":"v"}]}`, string(b))
}

// counting records lifecycle calls of a stub location.
type counting struct {
	mu                    sync.Mutex
	before, visits, after int
	order                 *[]string
	name                  string
	afterErr              error
}

func (c *counting) visitor() visitor.Visitor {
	return visitor.Func{
		BeforeFunc: func(*visitor.Scope, *schema.Parameter) error {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.before++
			if c.order != nil {
				*c.order = append(*c.order, "before:"+c.name)
			}
			return nil
		},
		VisitFunc: func(_ *visitor.Scope, p *schema.Parameter, result *value.Value, _ bool) error {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.visits++
			result.Put(p.Name, value.String(c.name))
			return nil
		},
		AfterFunc: func(*visitor.Scope, *schema.Parameter, *value.Value) error {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.after++
			if c.order != nil {
				*c.order = append(*c.order, "after:"+c.name)
			}
			return c.afterErr
		},
	}
}

func TestParseModel_BeforeAfterOncePerLocation(t *testing.T) {
	c := &counting{name: "stub"}
	reg := visitor.NewRegistry()
	reg.Register("stub", c.visitor())

	model := &schema.Parameter{Type: schema.TypeObject, Properties: []*schema.Parameter{
		{Name: "a", Location: "stub"},
		{Name: "b", Location: "stub"},
	}}
	m, err := parser.New(reg, parser.WithoutMetrics()).ParseModel(context.Background(), model, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"a":"stub","b":"stub"}`, render(t, m))
	assert.Equal(t, 1, c.before)
	assert.Equal(t, 2, c.visits)
	assert.Equal(t, 1, c.after)
}

func TestParseModel_AfterRunsInDiscoveryOrderOnFailure(t *testing.T) {
	var order []string
	first := &counting{name: "first", order: &order}
	second := &counting{name: "second", order: &order}
	reg := visitor.NewEmptyRegistry()
	reg.Register("first", first.visitor())
	reg.Register("second", second.visitor())

	model := &schema.Parameter{Type: schema.TypeObject, Properties: []*schema.Parameter{
		{Name: "a", Location: "first"},
		{Name: "b", Location: "second"},
		{Name: "c", Location: "xml"},
	}}
	_, err := parser.New(reg, parser.WithoutMetrics()).ParseModel(context.Background(), model, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, guzzle.ErrUnknownLocation)
	assert.Equal(t, []string{"before:first", "before:second", "after:first", "after:second"}, order)
	assert.Equal(t, 0, first.visits)
}

func TestParseModel_AfterErrorsAreJoined(t *testing.T) {
	boom := errors.New("cleanup failed")
	c := &counting{name: "stub", afterErr: boom}
	reg := visitor.NewEmptyRegistry()
	reg.Register("stub", c.visitor())
	model := &schema.Parameter{Type: schema.TypeObject, Properties: []*schema.Parameter{{Name: "a", Location: "stub"}}}

	m, err := parser.New(reg, parser.WithoutMetrics()).ParseModel(context.Background(), model, nil)
	require.Error(t, err)
	assert.Nil(t, m)
	assert.ErrorIs(t, err, boom)
}

func TestParseModel_FilterErrorAbortsWithoutResult(t *testing.T) {
	failing := schema.Filter{Name: "fail", Apply: func(value.Value) (value.Value, error) {
		return value.Null(), errors.New("nope")
	}}
	model := &schema.Parameter{Type: schema.TypeObject, Location: "json", Properties: []*schema.Parameter{
		{Name: "a", Filters: []schema.Filter{failing}},
	}}
	m, err := parser.New(nil, parser.WithoutMetrics()).ParseModel(context.Background(), model, jsonResponse(t, `{"a":1}`))
	require.Error(t, err)
	assert.Nil(t, m)
	assert.ErrorIs(t, err, guzzle.ErrFilter)
	assert.Equal(t, guzzle.CodeFilter, guzzle.CodeOf(err))
}

func TestParseModel_InvalidType(t *testing.T) {
	_, err := parser.New(nil, parser.WithoutMetrics()).ParseModel(context.Background(), &schema.Parameter{Type: schema.TypeString}, nil)
	assert.ErrorIs(t, err, guzzle.ErrInvalidModel)
}

func TestParse_Modes(t *testing.T) {
	built := 0
	p := parser.New(nil, parser.WithoutMetrics(), parser.WithClassBuilder("Export", func(_ context.Context, resp *response.Response, op *description.Operation) (any, error) {
		built++
		return fmt.Sprintf("%s:%d", op.ResponseClass, resp.StatusCode), nil
	}))
	resp := jsonResponse(t, `{"ID":5}`)

	out, err := p.Parse(context.Background(), &description.Operation{Name: "Raw", ResponseType: description.ResponsePrimitive}, resp)
	require.NoError(t, err)
	assert.Equal(t, resp.Body, out)

	out, err = p.Parse(context.Background(), &description.Operation{Name: "Doc", ResponseType: description.ResponseDocumentation}, resp)
	require.NoError(t, err)
	assert.Equal(t, resp.Body, out)

	out, err = p.Parse(context.Background(), &description.Operation{Name: "Get", ResponseType: description.ResponseModel, ResponseModel: "Thing", Model: idModel(schema.Deny())}, resp)
	require.NoError(t, err)
	require.IsType(t, &parser.Model{}, out)
	assert.Equal(t, "5", out.(*parser.Model).Get("id").Raw().(fmt.Stringer).String())

	out, err = p.Parse(context.Background(), &description.Operation{Name: "Export", ResponseType: description.ResponseClass, ResponseClass: "Export"}, resp)
	require.NoError(t, err)
	assert.Equal(t, "Export:200", out)
	assert.Equal(t, 1, built)
}

func TestParse_Errors(t *testing.T) {
	p := parser.New(nil, parser.WithoutMetrics())
	resp := jsonResponse(t, `{}`)

	_, err := p.Parse(context.Background(), &description.Operation{Name: "X", ResponseType: description.ResponseClass, ResponseClass: "Missing"}, resp)
	assert.ErrorIs(t, err, guzzle.ErrResponseClass)
	assert.Contains(t, err.Error(), "Missing")

	_, err = p.Parse(context.Background(), &description.Operation{Name: "Y", ResponseType: description.ResponseModel, ResponseModel: "Ghost"}, resp)
	assert.ErrorIs(t, err, guzzle.ErrUnknownModel)

	_, err = p.Parse(context.Background(), nil, resp)
	assert.Error(t, err)
}

func TestParse_ClassBuilderErrorWrapped(t *testing.T) {
	boom := errors.New("boom")
	p := parser.New(nil, parser.WithoutMetrics(), parser.WithClassBuilder("C", func(context.Context, *response.Response, *description.Operation) (any, error) {
		return nil, boom
	}))
	_, err := p.Parse(context.Background(), &description.Operation{ResponseType: description.ResponseClass, ResponseClass: "C"}, jsonResponse(t, `{}`))
	assert.ErrorIs(t, err, boom)
}

func TestParse_ConcurrentParsesShareVisitors(t *testing.T) {
	p := parser.New(visitor.NewRegistry())
	model := &schema.Parameter{Type: schema.TypeObject, Location: "json", AdditionalProperties: schema.Deny(),
		Properties: []*schema.Parameter{{Name: "n", SentAs: schema.Wire("N")}}}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc, err := guzzle.DecodeJSON([]byte(fmt.Sprintf(`{"N":%d,"noise":true}`, i)))
			if !assert.NoError(t, err) {
				return
			}
			m, err := p.ParseModel(context.Background(), model, response.New(200, nil, doc))
			if !assert.NoError(t, err) {
				return
			}
			b, _ := m.MarshalJSON()
			assert.Equal(t, fmt.Sprintf(`{"n":%d}`, i), string(b))
		}(i)
	}
	wg.Wait()
}

func TestParse_Description(t *testing.T) {
	d, err := description.LoadFile("../description/testdata/users.yaml")
	require.NoError(t, err)
	op, ok := d.Operation("GetUser")
	require.True(t, ok)

	raw := "HTTP/1.1 200 OK\r\n" +
		"X-Request-Id: r1\r\n" +
		"X-Meta-Team: core \r\n" +
		"\r\n" +
		`{"ID":7,"name":" ann ","tags":["A","B"],"extra":1}`
	resp, err := response.Read([]byte(raw))
	require.NoError(t, err)

	out, err := parser.New(nil, parser.WithoutMetrics()).Parse(context.Background(), op, resp)
	require.NoError(t, err)
	m := out.(*parser.Model)
	assert.Equal(t, `{"id":7,"name":"ANN","tags":["a","b"],"requestId":"r1","meta":{"Team":"core"}}`, render(t, m))

	team, ok := m.Path("meta/Team")
	require.True(t, ok)
	assert.Equal(t, "core", team.Raw())
	_, ok = m.Path("meta/missing")
	assert.False(t, ok)
}
