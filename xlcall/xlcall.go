// Package xlcall defines the host C-API vocabulary shared by every layer:
// record type tags and flag bits, cell error codes, host return codes and
// the two record ABI versions.
package xlcall

import (
	"strconv"
	"strings"
)

// Type is the xltype discriminant of a variant record, including flag bits.
type Type uint32

const (
	TypeNum     Type = 0x0001
	TypeStr     Type = 0x0002
	TypeBool    Type = 0x0004
	TypeRef     Type = 0x0008
	TypeErr     Type = 0x0010
	TypeFlow    Type = 0x0020
	TypeMulti   Type = 0x0040
	TypeMissing Type = 0x0080
	TypeNil     Type = 0x0100
	TypeSRef    Type = 0x0400
	TypeInt     Type = 0x0800

	// BitXLFree marks auxiliary memory owned by the host.
	BitXLFree Type = 0x1000
	// BitDLLFree marks auxiliary memory owned by the add-in.
	BitDLLFree Type = 0x4000

	bitsMask = BitXLFree | BitDLLFree
)

// Base strips the memory ownership bits.
func (t Type) Base() Type {
	return t &^ bitsMask
}

// HasAux reports whether either auxiliary memory bit is set.
func (t Type) HasAux() bool {
	return t&bitsMask != 0
}

var typeNames = []struct {
	t    Type
	name string
}{
	{TypeNum, "num"},
	{TypeStr, "str"},
	{TypeBool, "bool"},
	{TypeRef, "ref"},
	{TypeErr, "err"},
	{TypeFlow, "flow"},
	{TypeMulti, "multi"},
	{TypeMissing, "missing"},
	{TypeNil, "nil"},
	{TypeSRef, "sref"},
	{TypeInt, "int"},
}

func (t Type) String() string {
	base := t.Base()
	name := ""
	for _, tn := range typeNames {
		if tn.t == base {
			name = tn.name
			break
		}
	}
	if name == "" {
		name = "0x" + strconv.FormatUint(uint64(base), 16)
	}
	if t&BitXLFree != 0 {
		name += "|xlfree"
	}
	if t&BitDLLFree != 0 {
		name += "|dllfree"
	}
	return name
}

// ErrorCode is a cell error value (#N/A, #VALUE!, ...).
type ErrorCode uint16

const (
	ErrNull        ErrorCode = 0
	ErrDiv0        ErrorCode = 7
	ErrValue       ErrorCode = 15
	ErrRef         ErrorCode = 23
	ErrName        ErrorCode = 29
	ErrNum         ErrorCode = 36
	ErrNA          ErrorCode = 42
	ErrGettingData ErrorCode = 43
)

// ErrorCodes lists every cell error code in ascending order.
var ErrorCodes = []ErrorCode{ErrNull, ErrDiv0, ErrValue, ErrRef, ErrName, ErrNum, ErrNA, ErrGettingData}

var errorText = map[ErrorCode]string{
	ErrNull:        "#NULL!",
	ErrDiv0:        "#DIV/0!",
	ErrValue:       "#VALUE!",
	ErrRef:         "#REF!",
	ErrName:        "#NAME?",
	ErrNum:         "#NUM!",
	ErrNA:          "#N/A",
	ErrGettingData: "#GETTING_DATA",
}

// Valid reports whether e is one of the host's error codes.
func (e ErrorCode) Valid() bool {
	_, ok := errorText[e]
	return ok
}

func (e ErrorCode) String() string {
	if s, ok := errorText[e]; ok {
		return s
	}
	return "#ERR" + strconv.Itoa(int(e))
}

// ParseErrorCode maps display text such as "#N/A" back to its code.
func ParseErrorCode(s string) (ErrorCode, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for code, text := range errorText {
		if text == s {
			return code, true
		}
	}
	return 0, false
}

// Ret is a host return code. Zero is success; the others are bit flags.
type Ret uint32

const (
	RetSuccess          Ret = 0
	RetAbort            Ret = 1
	RetInvXlfn          Ret = 2
	RetInvCount         Ret = 4
	RetInvXloper        Ret = 8
	RetStackOvfl        Ret = 16
	RetFailed           Ret = 32
	RetUncalced         Ret = 64
	RetNotThreadSafe    Ret = 128
	RetInvAsynchContext Ret = 256
	RetNotClusterSafe   Ret = 512
)

var retNames = map[Ret]string{
	RetSuccess:          "success",
	RetAbort:            "abort",
	RetInvXlfn:          "invalid function",
	RetInvCount:         "invalid count",
	RetInvXloper:        "invalid oper",
	RetStackOvfl:        "stack overflow",
	RetFailed:           "failed",
	RetUncalced:         "uncalculated",
	RetNotThreadSafe:    "not thread safe",
	RetInvAsynchContext: "invalid async context",
	RetNotClusterSafe:   "not cluster safe",
}

// OK reports success.
func (r Ret) OK() bool {
	return r == RetSuccess
}

func (r Ret) String() string {
	if s, ok := retNames[r]; ok {
		return s
	}
	return "ret(" + strconv.Itoa(int(r)) + ")"
}

// ABI selects one of the two physical record layouts.
type ABI uint8

const (
	// ABILegacy has 16-bit array dimensions and code-page strings.
	ABILegacy ABI = iota + 1
	// ABIModern has 32-bit array dimensions and UTF-16 strings.
	ABIModern
)

func (a ABI) String() string {
	switch a {
	case ABILegacy:
		return "legacy"
	case ABIModern:
		return "modern"
	default:
		return "abi(" + strconv.Itoa(int(a)) + ")"
	}
}

// ParseABI accepts "legacy"/"excel4"/"4" and "modern"/"excel12"/"12".
func ParseABI(s string) (ABI, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "legacy", "excel4", "4":
		return ABILegacy, true
	case "modern", "excel12", "12":
		return ABIModern, true
	}
	return 0, false
}

// Limits of the two layouts.
const (
	LegacyMaxArrayRows = 65535
	LegacyMaxArrayCols = 65535
	LegacyMaxRefRows   = 65536
	LegacyMaxRefCols   = 256
	LegacyMaxString    = 255
	LegacyMaxArgs      = 30

	ModernMaxArrayRows = 1048576
	ModernMaxArrayCols = 16384
	ModernMaxRefRows   = 1048576
	ModernMaxRefCols   = 16384
	ModernMaxString    = 32767
	ModernMaxArgs      = 255
)

// MaxArgs returns how many arguments a registered function may take.
func (a ABI) MaxArgs() int {
	if a == ABIModern {
		return ModernMaxArgs
	}
	return LegacyMaxArgs
}
