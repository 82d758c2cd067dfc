package markdown

// Kind is the closed set of non-success outcomes a markdown primitive
// can produce. It is the Go analogue of the original implementation's
// SUCCESS/INVALID_CURSOR_POS/DELETED_POSITION/OUTDATED_VERSION codes.
type Kind int

const (
	// Success indicates the primitive enqueued its pending edit(s).
	Success Kind = iota
	InvalidPosition
	DeletedPosition
	OutdatedVersion
)

// String renders the outcome token used on the wire (spec.md §6).
func (k Kind) String() string {
	switch k {
	case Success:
		return "SUCCESS"
	case InvalidPosition:
		return "INVALID_POSITION"
	case DeletedPosition:
		return "DELETED_POSITION"
	case OutdatedVersion:
		return "OUTDATED_VERSION"
	default:
		return "INVALID_POSITION"
	}
}

// Error wraps a rejection Kind so callers can use errors.As/errors.Is.
type Error struct {
	Kind Kind
}

func (e *Error) Error() string { return "markdown: " + e.Kind.String() }

func fail(k Kind) (Kind, error) {
	return k, &Error{Kind: k}
}
