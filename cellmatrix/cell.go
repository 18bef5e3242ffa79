// Package cellmatrix provides rectangular grids of heterogeneous cell
// values and of plain numbers.
package cellmatrix

import (
	"strconv"

	"github.com/davidclayton/xlw/xlcall"
)

// Kind is the type of value held by a cell.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindNumber
	KindString
	KindBool
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindError:
		return "error"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// CellValue is one cell: a number, string, boolean, error or nothing.
// The zero value is empty.
type CellValue struct {
	str  string
	num  float64
	kind Kind
	b    bool
	err  xlcall.ErrorCode
}

// Empty returns an empty cell.
func Empty() CellValue { return CellValue{} }

// Number returns a numeric cell.
func Number(v float64) CellValue { return CellValue{kind: KindNumber, num: v} }

// String returns a string cell.
func String(s string) CellValue { return CellValue{kind: KindString, str: s} }

// Bool returns a boolean cell.
func Bool(b bool) CellValue { return CellValue{kind: KindBool, b: b} }

// Error returns an error cell.
func Error(code xlcall.ErrorCode) CellValue { return CellValue{kind: KindError, err: code} }

func (c CellValue) Kind() Kind      { return c.kind }
func (c CellValue) IsEmpty() bool   { return c.kind == KindEmpty }
func (c CellValue) IsNumeric() bool { return c.kind == KindNumber }
func (c CellValue) IsString() bool  { return c.kind == KindString }
func (c CellValue) IsBool() bool    { return c.kind == KindBool }
func (c CellValue) IsError() bool   { return c.kind == KindError }

// NumericValue returns the number; zero for other kinds.
func (c CellValue) NumericValue() float64 { return c.num }

// StringValue returns the string; empty for other kinds.
func (c CellValue) StringValue() string { return c.str }

// BoolValue returns the boolean; false for other kinds.
func (c CellValue) BoolValue() bool { return c.b }

// ErrorValue returns the error code; meaningful only for error cells.
func (c CellValue) ErrorValue() xlcall.ErrorCode { return c.err }

// Equal compares kind and payload. NaN numbers compare unequal.
func (c CellValue) Equal(o CellValue) bool {
	if c.kind != o.kind {
		return false
	}
	switch c.kind {
	case KindNumber:
		return c.num == o.num
	case KindString:
		return c.str == o.str
	case KindBool:
		return c.b == o.b
	case KindError:
		return c.err == o.err
	}
	return true
}

func (c CellValue) String() string {
	switch c.kind {
	case KindNumber:
		return strconv.FormatFloat(c.num, 'g', -1, 64)
	case KindString:
		return c.str
	case KindBool:
		if c.b {
			return "TRUE"
		}
		return "FALSE"
	case KindError:
		return c.err.String()
	}
	return ""
}
