// Package errors defines the error type returned by every xlw package.
//
// An *Error records the Phase that failed (building a record, converting
// one back, talking to the host, registering functions) and a Kind that
// says what went wrong. Conversion failures also carry the Identifier the
// caller gave for the argument, plus the record's xltype and the Go type
// asked for, so a message reads like
//
//	[convert] coerce in rate: xltype str -> Go float64: host returned xlretInvXloper
//
// Build errors fluently:
//
//	err := errors.New(errors.PhaseConvert, errors.KindShape).
//		Identifier("values").
//		XLType("multi").
//		GoType("[]float64").
//		Detail("2x3 array is not one-dimensional").
//		Build()
//
// or with a constructor such as ABILimit, StringTooLong or OutOfBounds.
// errors.Is matches on Phase and Kind only, so a bare &Error{Phase, Kind}
// works as a target.
package errors
