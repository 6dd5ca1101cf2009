package common

// CSVOption configures CSVReader parsing. Zero value is not usable;
// construct with DefaultCSVOption and override fields.
type CSVOption struct {
	Delimiter    byte
	QuoteChar    byte
	EscapeChar   byte
	HasHeader    bool
	SkipNum      int
	ListBeginChar byte
	ListEndChar   byte

	// QuotedNewlinePolicy decides whether a literal newline encountered
	// while inside a quoted field is accepted as part of the value
	// (true) or rejected as a parse error (false). No contract beyond
	// this boolean is implied; callers that need something more
	// specific (e.g. only accept \n, not \r\n) build it into the hook.
	QuotedNewlinePolicy func(b byte) bool
}

// DefaultCSVOption returns the conventional comma/double-quote dialect with
// doubled-quote escaping and an accept-everything quoted-newline policy.
func DefaultCSVOption() CSVOption {
	return CSVOption{
		Delimiter:     ',',
		QuoteChar:     '"',
		EscapeChar:    '"',
		HasHeader:     false,
		SkipNum:       0,
		ListBeginChar: '{',
		ListEndChar:   '}',
		QuotedNewlinePolicy: func(b byte) bool { return true },
	}
}

// DoubledQuoteEscape reports whether the configured escape character
// collapses to the "" -> " convention, which is true whenever no distinct
// escape character is configured or it coincides with the quote character.
func (o CSVOption) DoubledQuoteEscape() bool {
	return o.EscapeChar == 0 || o.EscapeChar == o.QuoteChar
}

// LineContext records the byte offsets of the logical line currently being
// assembled by the parser, for error reporting via reconstructLine.
type LineContext struct {
	StartByteOffset int64
	EndByteOffset   int64
	IsCompleteLine  bool
}

// CSVError describes one malformed-input condition. MustThrow forces
// propagation regardless of the active ErrorHandler policy (used for I/O
// failures and cancellation).
type CSVError struct {
	Message            string
	Line               LineContext
	BlockIdx           int
	NumRowsReadInBlock int64
	MustThrow          bool
}

func (e *CSVError) Error() string {
	return e.Message
}
