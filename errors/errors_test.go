package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:      PhaseConvert,
				Kind:       KindCoerce,
				Identifier: "notional",
				Path:       []string{"row1", "col2"},
				GoType:     "float64",
				XLType:     "str",
				Detail:     "cannot convert",
			},
			contains: []string{"[convert]", "coerce", "in notional", "row1.col2", "float64", "str", "cannot convert"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseConstruct,
				Kind:  KindOutOfBounds,
			},
			contains: []string{"[construct]", "out_of_bounds"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseAlloc,
				Kind:   KindAllocation,
				Detail: "arena full",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[alloc]", "allocation", "arena full", "caused by", "underlying error"},
		},
		{
			name:     "xltype only",
			err:      &Error{Phase: PhaseConvert, Kind: KindTypeMismatch, XLType: "multi", Detail: "scalar expected"},
			contains: []string{"xltype multi", ": xltype", "scalar expected"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseHost,
		Kind:  KindHostFailure,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not find cause through chain")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{Phase: PhaseConvert, Kind: KindShape, Identifier: "x"}

	if !errors.Is(err, &Error{Phase: PhaseConvert, Kind: KindShape}) {
		t.Error("same phase and kind should match")
	}
	if errors.Is(err, &Error{Phase: PhaseConvert, Kind: KindCoerce}) {
		t.Error("different kind should not match")
	}
	if errors.Is(err, &Error{Phase: PhaseConstruct, Kind: KindShape}) {
		t.Error("different phase should not match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("boom")
	err := New(PhaseConvert, KindCoerce).
		Identifier("rate").
		Path("cell[1,2]").
		GoType("float64").
		XLType("str").
		Value("abc").
		Cause(cause).
		Detail("convert to %s", "double").
		Build()

	if err.Identifier != "rate" {
		t.Errorf("Identifier = %q", err.Identifier)
	}
	if len(err.Path) != 1 || err.Path[0] != "cell[1,2]" {
		t.Errorf("Path = %v", err.Path)
	}
	if err.Detail != "convert to double" {
		t.Errorf("Detail = %q", err.Detail)
	}
	if err.Value != "abc" {
		t.Errorf("Value = %v", err.Value)
	}
	if !errors.Is(err, cause) {
		t.Error("cause not wrapped")
	}

	// Called through a method value so vet does not treat the literal as a format string.
	detail := New(PhaseHost, KindAbort).Detail
	plain := detail("100% literal").Build()
	if plain.Detail != "100% literal" {
		t.Errorf("detail without args must not be formatted, got %q", plain.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name  string
		err   *Error
		phase Phase
		kind  Kind
		text  string
	}{
		{"allocation", AllocationFailed(PhaseAlloc, 64, nil), PhaseAlloc, KindAllocation, "64 bytes"},
		{"abi limit", ABILimit(PhaseConstruct, "matrix row count", 70000, 65535, "legacy"), PhaseConstruct, KindABILimit, "row count 70000 exceeds legacy max 65535"},
		{"string too long", StringTooLong(PhaseConstruct, 300, 255), PhaseConstruct, KindStringTooLong, "300"},
		{"not bound", NotBound(PhaseConvert, "x"), PhaseConvert, KindNotBound, "not bound"},
		{"released", Released(PhaseConvert, ""), PhaseConvert, KindReleased, "released"},
		{"out of bounds", OutOfBounds(PhaseMetadata, nil, 3, 2), PhaseMetadata, KindOutOfBounds, "index 3"},
		{"unsupported", Unsupported(PhaseCoerce, "flow"), PhaseCoerce, KindUnsupported, "flow"},
		{"invalid input", InvalidInput(PhaseConstruct, "bad"), PhaseConstruct, KindInvalidInput, "bad"},
		{"not found", NotFound(PhaseCall, "function", "FOO"), PhaseCall, KindNotFound, `"FOO"`},
		{"registration", Registration("FOO", errors.New("dup")), PhaseRegister, KindRegistration, "register FOO"},
		{"load", Load("parse manifest", errors.New("eof")), PhaseLoad, KindInvalidData, "parse manifest"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Phase != tt.phase || tt.err.Kind != tt.kind {
				t.Errorf("got %s/%s, want %s/%s", tt.err.Phase, tt.err.Kind, tt.phase, tt.kind)
			}
			if !strings.Contains(tt.err.Error(), tt.text) {
				t.Errorf("%q does not contain %q", tt.err.Error(), tt.text)
			}
		})
	}
}
