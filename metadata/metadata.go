// Package metadata describes functions exposed to the host: their names,
// help text, return type and typed arguments. Descriptions are immutable
// once built and are what registration and argument conversion read.
package metadata

import (
	"strconv"

	"github.com/davidclayton/xlw/errors"
)

// FunctionArgumentType maps an argument type name to the conversion that
// reads it and the host type key it registers with.
type FunctionArgumentType struct {
	identifier       string
	conversionMethod string
	excelKey         byte
}

func NewFunctionArgumentType(identifier, conversionMethod string, excelKey byte) FunctionArgumentType {
	return FunctionArgumentType{
		identifier:       identifier,
		conversionMethod: conversionMethod,
		excelKey:         excelKey,
	}
}

func (t FunctionArgumentType) Identifier() string       { return t.identifier }
func (t FunctionArgumentType) ConversionMethod() string { return t.conversionMethod }
func (t FunctionArgumentType) ExcelKey() byte           { return t.excelKey }

// FunctionArgument is one named, documented parameter.
type FunctionArgument struct {
	typ         FunctionArgumentType
	name        string
	description string
}

func NewFunctionArgument(typ FunctionArgumentType, name, description string) FunctionArgument {
	return FunctionArgument{typ: typ, name: name, description: description}
}

func (a FunctionArgument) Type() FunctionArgumentType { return a.typ }
func (a FunctionArgument) Name() string               { return a.name }
func (a FunctionArgument) Description() string        { return a.description }

// FunctionDescription is one exposed function.
type FunctionDescription struct {
	name       string
	help       string
	returnType string
	excelKey   byte
	args       []FunctionArgument
}

// NewFunctionDescription copies args; later changes to the slice do not
// affect the description.
func NewFunctionDescription(name, help, returnType string, excelKey byte, args []FunctionArgument) FunctionDescription {
	return FunctionDescription{
		name:       name,
		help:       help,
		returnType: returnType,
		excelKey:   excelKey,
		args:       append([]FunctionArgument(nil), args...),
	}
}

func (d FunctionDescription) Name() string       { return d.name }
func (d FunctionDescription) Help() string       { return d.help }
func (d FunctionDescription) ReturnType() string { return d.returnType }

// ExcelKey is the host type key of the return value.
func (d FunctionDescription) ExcelKey() byte { return d.excelKey }

func (d FunctionDescription) NumberOfArguments() int { return len(d.args) }

// Argument returns argument i, or an out_of_bounds error.
func (d FunctionDescription) Argument(i int) (FunctionArgument, error) {
	if i < 0 || i >= len(d.args) {
		return FunctionArgument{}, errors.OutOfBounds(errors.PhaseMetadata,
			[]string{d.name, "argument[" + strconv.Itoa(i) + "]"}, i, len(d.args))
	}
	return d.args[i], nil
}

// Arguments returns a copy of the argument list.
func (d FunctionDescription) Arguments() []FunctionArgument {
	return append([]FunctionArgument(nil), d.args...)
}

// ArgumentNames returns the argument names in order.
func (d FunctionDescription) ArgumentNames() []string {
	names := make([]string, len(d.args))
	for i, a := range d.args {
		names[i] = a.name
	}
	return names
}
