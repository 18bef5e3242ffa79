package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseConstruct Phase = "construct" // Go to record
	PhaseConvert   Phase = "convert"   // record to Go
	PhaseCoerce    Phase = "coerce"    // host-side reinterpretation
	PhaseAlloc     Phase = "alloc"     // host memory
	PhaseRelease   Phase = "release"   // auxiliary memory release
	PhaseHost      Phase = "host"      // host session services
	PhaseRegister  Phase = "register"  // function registration
	PhaseCall      Phase = "call"      // host call boundary
	PhaseMetadata  Phase = "metadata"  // function descriptions
	PhaseLoad      Phase = "load"      // manifests and workbooks
)

// Kind categorizes the error
type Kind string

const (
	KindTypeMismatch  Kind = "type_mismatch"
	KindCoerce        Kind = "coerce"
	KindShape         Kind = "shape"
	KindOverflow      Kind = "overflow"
	KindABILimit      Kind = "abi_limit"
	KindStringTooLong Kind = "string_too_long"
	KindAllocation    Kind = "allocation"
	KindNotBound      Kind = "not_bound"
	KindReleased      Kind = "released"
	KindOutOfBounds   Kind = "out_of_bounds"
	KindInvalidInput  Kind = "invalid_input"
	KindInvalidData   Kind = "invalid_data"
	KindNotFound      Kind = "not_found"
	KindRegistration  Kind = "registration"
	KindUncalculated  Kind = "uncalculated"
	KindAbort         Kind = "abort"
	KindStackOverflow Kind = "stack_overflow"
	KindHostFailure   Kind = "host_failure"
	KindUnsupported   Kind = "unsupported"
)

// Error is the structured error type used throughout the library
type Error struct {
	Value      any
	Cause      error
	Phase      Phase
	Kind       Kind
	Identifier string // caller-supplied name of the failing argument or cell
	XLType     string
	GoType     string
	Detail     string
	Path       []string
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", e.Phase, e.Kind)
	if e.Identifier != "" {
		b.WriteString(" in " + e.Identifier)
	}
	if len(e.Path) > 0 {
		b.WriteString(" at " + strings.Join(e.Path, "."))
	}

	var types []string
	if e.XLType != "" {
		types = append(types, "xltype "+e.XLType)
	}
	if e.GoType != "" {
		types = append(types, "Go "+e.GoType)
	}
	sep := ": "
	if len(types) > 0 {
		b.WriteString(sep + strings.Join(types, " -> "))
	}
	if e.Detail != "" {
		b.WriteString(sep + e.Detail)
	}
	if e.Cause != nil {
		b.WriteString(" (caused by: " + e.Cause.Error() + ")")
	}
	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Identifier sets the caller-supplied identifier
func (b *Builder) Identifier(id string) *Builder {
	b.err.Identifier = id
	return b
}

// Path sets the element path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// XLType sets the record type name
func (b *Builder) XLType(t string) *Builder {
	b.err.XLType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size uint32, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("host denied %d bytes", size),
		Cause:  cause,
	}
}

// ABILimit creates an error for a dimension the active record layout cannot hold
func ABILimit(phase Phase, what string, value, limit uint32, abi string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindABILimit,
		Detail: fmt.Sprintf("%s %d exceeds %s max %d", what, value, abi, limit),
		Value:  value,
	}
}

// StringTooLong creates an error for a string exceeding the host maximum
func StringTooLong(phase Phase, length, limit int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindStringTooLong,
		Detail: fmt.Sprintf("string length %d exceeds host max %d", length, limit),
		Value:  length,
	}
}

// NotBound creates an error for use of a wrapper that holds no record
func NotBound(phase Phase, identifier string) *Error {
	return &Error{
		Phase:      phase,
		Kind:       KindNotBound,
		Identifier: identifier,
		Detail:     "oper is not bound to a record",
	}
}

// Released creates an error for use of a wrapper after Release
func Released(phase Phase, identifier string) *Error {
	return &Error{
		Phase:      phase,
		Kind:       KindReleased,
		Identifier: identifier,
		Detail:     "oper has been released",
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// Registration creates a registration error
func Registration(name string, cause error) *Error {
	return &Error{
		Phase:  PhaseRegister,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register %s", name),
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Load creates a manifest or workbook loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}
