package metadata

import (
	"slices"
	"strings"

	"github.com/davidclayton/xlw/errors"
	"github.com/davidclayton/xlw/xlcall"
)

// Conversion method names of the standard argument types.
const (
	ConvDouble     = "AsDouble"
	ConvShort      = "AsShort"
	ConvInt        = "AsInt"
	ConvBool       = "AsBool"
	ConvString     = "AsString"
	ConvWString    = "AsWString"
	ConvArray      = "AsArray"
	ConvMatrix     = "AsMatrix"
	ConvCellMatrix = "AsCellMatrix"
	ConvRef        = "AsRef"
	ConvErr        = "AsErr"
	// ConvNone passes the record through unconverted.
	ConvNone = ""
)

var standardTypes = []FunctionArgumentType{
	NewFunctionArgumentType("double", ConvDouble, 'B'),
	NewFunctionArgumentType("short", ConvShort, 'I'),
	NewFunctionArgumentType("int", ConvInt, 'J'),
	NewFunctionArgumentType("bool", ConvBool, 'A'),
	NewFunctionArgumentType("string", ConvString, 'C'),
	NewFunctionArgumentType("wstring", ConvWString, 'C'),
	NewFunctionArgumentType("vector", ConvArray, 'P'),
	NewFunctionArgumentType("matrix", ConvMatrix, 'P'),
	NewFunctionArgumentType("cellmatrix", ConvCellMatrix, 'P'),
	NewFunctionArgumentType("ref", ConvRef, 'R'),
	NewFunctionArgumentType("error", ConvErr, 'P'),
	NewFunctionArgumentType("oper", ConvNone, 'P'),
}

// StandardTypes returns the built-in argument types.
func StandardTypes() []FunctionArgumentType {
	return slices.Clone(standardTypes)
}

// Lookup finds a standard argument type by identifier, ignoring case.
func Lookup(identifier string) (FunctionArgumentType, error) {
	id := strings.ToLower(strings.TrimSpace(identifier))
	for _, t := range standardTypes {
		if t.identifier == id {
			return t, nil
		}
	}
	return FunctionArgumentType{}, errors.NotFound(errors.PhaseMetadata, "argument type", identifier)
}

// MaxArguments is how many arguments the host accepts per function.
func MaxArguments(abi xlcall.ABI) int {
	return abi.MaxArgs()
}

// modernKey widens a type key for the modern layout.
func modernKey(k byte) string {
	switch k {
	case 'P':
		return "Q"
	case 'R':
		return "U"
	case 'C':
		return "C%"
	case 'D':
		return "D%"
	}
	return string(k)
}

// TypeText builds the registration type string: the return key followed by
// one key per argument.
func TypeText(d FunctionDescription, abi xlcall.ABI) (string, error) {
	if n, limit := d.NumberOfArguments(), MaxArguments(abi); n > limit {
		return "", errors.New(errors.PhaseMetadata, errors.KindABILimit).
			Identifier(d.name).
			Value(n).
			Detail("%d arguments exceeds %s max %d", n, abi, limit).
			Build()
	}
	key := func(k byte) string {
		if abi == xlcall.ABIModern {
			return modernKey(k)
		}
		return string(k)
	}
	var b strings.Builder
	b.WriteString(key(d.excelKey))
	for _, a := range d.args {
		b.WriteString(key(a.typ.excelKey))
	}
	return b.String(), nil
}
