package xlcall

import "testing"

func TestType_BaseAndBits(t *testing.T) {
	tp := TypeStr | BitDLLFree
	if tp.Base() != TypeStr {
		t.Errorf("Base() = %v, want str", tp.Base())
	}
	if !tp.HasAux() {
		t.Error("HasAux() = false with dllfree set")
	}
	if TypeNum.HasAux() {
		t.Error("HasAux() = true for plain num")
	}
	if got := (TypeMulti | BitXLFree).String(); got != "multi|xlfree" {
		t.Errorf("String() = %q", got)
	}
	if got := Type(0x8000).String(); got != "0x8000" {
		t.Errorf("String() = %q", got)
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		code ErrorCode
		text string
	}{
		{ErrNull, "#NULL!"},
		{ErrDiv0, "#DIV/0!"},
		{ErrValue, "#VALUE!"},
		{ErrRef, "#REF!"},
		{ErrName, "#NAME?"},
		{ErrNum, "#NUM!"},
		{ErrNA, "#N/A"},
		{ErrGettingData, "#GETTING_DATA"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if tt.code.String() != tt.text {
				t.Errorf("String() = %q", tt.code.String())
			}
			if !tt.code.Valid() {
				t.Error("Valid() = false")
			}
			got, ok := ParseErrorCode(tt.text)
			if !ok || got != tt.code {
				t.Errorf("ParseErrorCode(%q) = %v, %v", tt.text, got, ok)
			}
		})
	}

	if ErrorCode(1).Valid() {
		t.Error("code 1 should be invalid")
	}
	if _, ok := ParseErrorCode("#BOGUS"); ok {
		t.Error("ParseErrorCode accepted unknown text")
	}
}

func TestRet(t *testing.T) {
	if !RetSuccess.OK() {
		t.Error("success not OK")
	}
	if RetInvXloper.OK() {
		t.Error("InvXloper reported OK")
	}
	if RetUncalced.String() != "uncalculated" {
		t.Errorf("String() = %q", RetUncalced.String())
	}
	if Ret(3).String() != "ret(3)" {
		t.Errorf("String() = %q", Ret(3).String())
	}
}

func TestABI(t *testing.T) {
	for _, s := range []string{"legacy", "Excel4", "4"} {
		if a, ok := ParseABI(s); !ok || a != ABILegacy {
			t.Errorf("ParseABI(%q) = %v, %v", s, a, ok)
		}
	}
	for _, s := range []string{"modern", "EXCEL12", "12"} {
		if a, ok := ParseABI(s); !ok || a != ABIModern {
			t.Errorf("ParseABI(%q) = %v, %v", s, a, ok)
		}
	}
	if _, ok := ParseABI("excel5"); ok {
		t.Error("ParseABI accepted excel5")
	}
	if ABILegacy.MaxArgs() != 30 || ABIModern.MaxArgs() != 255 {
		t.Error("MaxArgs mismatch")
	}
	if ABIModern.String() != "modern" {
		t.Errorf("String() = %q", ABIModern.String())
	}
}
