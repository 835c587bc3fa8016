// Package description loads service descriptions: named operations and the
// response models they refer to. Descriptions are read from YAML or JSON and
// keep the declaration order of models, operations and properties.
package description

import (
	"github.com/zubr/guzzle/schema"
)

// ResponseType selects how an operation's response is handled.
type ResponseType string

const (
	// ResponsePrimitive returns the decoded body as is.
	ResponsePrimitive ResponseType = "primitive"
	// ResponseClass hands the response to a registered class builder.
	ResponseClass ResponseType = "class"
	// ResponseDocumentation is informational only and parses like primitive.
	ResponseDocumentation ResponseType = "documentation"
	// ResponseModel shapes the response with the visitor engine.
	ResponseModel ResponseType = "model"
)

// Operation is one described API call.
type Operation struct {
	Name       string
	HTTPMethod string
	URI        string
	Summary    string

	ResponseType ResponseType
	// ResponseModel is the model name for model responses.
	ResponseModel string
	// ResponseClass names the class builder for class responses.
	ResponseClass string
	// Model is the resolved response model. It is nil when ResponseModel does
	// not name a known model.
	Model *schema.Parameter
}

// Description is a loaded service description. It is read-only after loading
// and can be shared between goroutines.
type Description struct {
	Name        string
	APIVersion  string
	BaseURL     string
	Description string

	operations map[string]*Operation
	opOrder    []string
	models     map[string]*schema.Parameter
	modelOrder []string
}

// Operation looks up an operation by name.
func (d *Description) Operation(name string) (*Operation, bool) {
	op, ok := d.operations[name]
	return op, ok
}

// Model looks up a model by name.
func (d *Description) Model(name string) (*schema.Parameter, bool) {
	m, ok := d.models[name]
	return m, ok
}

// OperationNames lists operations in declaration order.
func (d *Description) OperationNames() []string {
	return append([]string(nil), d.opOrder...)
}

// ModelNames lists models in declaration order.
func (d *Description) ModelNames() []string {
	return append([]string(nil), d.modelOrder...)
}

var primitives = map[string]bool{
	"":        true,
	"array":   true,
	"boolean": true,
	"string":  true,
	"integer": true,
	"number":  true,
	"null":    true,
	"any":     true,
}

// inferType decides the response type of an operation that does not declare
// one: a named model wins, primitive type names pass the body through,
// anything else is a class.
func (d *Description) inferType(op *Operation) {
	if op.ResponseType != "" {
		return
	}
	switch {
	case op.ResponseModel != "":
		op.ResponseType = ResponseModel
	case d.models[op.ResponseClass] != nil:
		op.ResponseType = ResponseModel
		op.ResponseModel = op.ResponseClass
	case primitives[op.ResponseClass]:
		op.ResponseType = ResponsePrimitive
	default:
		op.ResponseType = ResponseClass
	}
}
