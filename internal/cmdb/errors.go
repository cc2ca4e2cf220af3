package cmdb

import "errors"

// Error kinds. Match with errors.Is(err, cmdb.ErrJoin) and so on.
var (
	ErrLoad          = errors.New("load error")
	ErrNormalization = errors.New("normalization error")
	ErrJoin          = errors.New("join error")
	ErrProjection    = errors.New("projection error")
	ErrWrite         = errors.New("write error")
)

// Error is a pipeline failure tagged with its kind and the operation that
// produced it.
//
// Error unwraps to both Kind and Err, so callers can test the kind and the
// underlying cause (e.g. fs.ErrNotExist) with errors.Is.
type Error struct {
	Kind error  // one of the Err* kinds above
	Op   string // e.g. "load inventory", "join"
	Err  error
}

// NewError wraps err with a kind and operation. It returns nil if err is nil.
func NewError(kind error, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Kind.Error() + ": " + e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() []error { return []error{e.Kind, e.Err} }

// KindOf returns the kind of err, or nil if err is not a pipeline error.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return nil
}
