// Package guzzle turns raw HTTP responses into structured results driven by a
// service description.
//
// The root package carries the pieces every layer shares:
//
//   - the error model (Issues with stable codes and errors.Is sentinels),
//   - body decoding into ordered documents (DecodeJSON) with duplicate-key,
//     depth and size enforcement.
//
// The engine itself lives in subpackages:
//
//   - value:       the tagged result/document variant (Null, Scalar, Seq, Map)
//   - schema:      schema nodes (Parameter) and additional-property policies
//   - filters:     named and CEL value filters
//   - response:    the header multimap and decoded response
//   - visitor:     location visitors (body, header, statusCode, reasonPhrase) and their registry
//   - description: service descriptions (operations and models) loaded from YAML or JSON
//   - parser:      the orchestrator that dispatches on the operation's response type
//
// Typical usage:
//
//	desc, err := description.LoadFile("service.yaml")
//	op, ok := desc.Operation("GetUser")
//	resp, err := response.FromHTTP(httpResp)
//	out, err := parser.New(visitor.NewRegistry()).Parse(ctx, op, resp)
package guzzle
