package guzzle

// NumberMode dictates how numbers in a decoded body are represented.
type NumberMode int

const (
	NumberJSONNumber NumberMode = iota // Preserve json.Number (default, lossless).
	NumberFloat64                      // Fast mode (with potential precision loss).
)

// Severity expresses the severity level for issues.
type Severity int

const (
	Ignore Severity = iota
	Warn
	Error
)

// Strictness configures enforcement for duplicate keys.
type Strictness struct {
	OnDuplicateKey Severity // Ignore, Warn or Error (duplicate JSON keys).
}

// ParseOpt bundles body decoding options.
type ParseOpt struct {
	Strictness Strictness
	MaxDepth   int   // 0 disables the nesting limit.
	MaxBytes   int64 // 0 disables the size limit.
	NumberMode NumberMode
	// OnIssue receives non-fatal issues such as duplicate key warnings.
	OnIssue func(Issue)
}
