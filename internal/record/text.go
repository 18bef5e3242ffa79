package record

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/encoding/unicode"

	"github.com/davidclayton/xlw/errors"
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

func float64bits(v float64) uint64     { return math.Float64bits(v) }
func float64frombits(b uint64) float64 { return math.Float64frombits(b) }

func decodeUTF16(b []byte) (string, error) {
	dec, err := utf16le.NewDecoder().Bytes(b)
	if err != nil {
		return "", errors.Wrap(errors.PhaseConvert, errors.KindInvalidData, err, "decode modern string")
	}
	return string(dec), nil
}

func unitsToString(u []uint16) string { return string(utf16.Decode(u)) }
func stringToUnits(s string) []uint16 { return utf16.Encode([]rune(s)) }

// UnitsToString decodes UTF-16 code units; unpaired surrogates become U+FFFD.
func UnitsToString(u []uint16) string { return unitsToString(u) }

// StringToUnits encodes s as UTF-16 code units.
func StringToUnits(s string) []uint16 { return stringToUnits(s) }

// FormatNumber renders v the way the host's General format does when a
// number is coerced to text: at most 15 significant digits, exponent form
// for very large or very small magnitudes.
func FormatNumber(v float64) string {
	switch {
	case math.IsNaN(v):
		return "#NUM!"
	case math.IsInf(v, 0):
		return "#NUM!"
	case v == 0:
		return "0"
	}
	s := strconv.FormatFloat(v, 'g', 15, 64)
	if i := strings.IndexByte(s, 'e'); i >= 0 {
		mant, exp := s[:i], s[i+1:]
		return trimZeros(mant) + "E" + exp
	}
	return trimZeros(s)
}

func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// Separators are the locale's number punctuation.
type Separators struct {
	Decimal rune
	Group   rune
}

// DefaultSeparators is the en-US convention.
var DefaultSeparators = Separators{Decimal: '.', Group: ','}

// ParseNumber parses text the host would accept as a number: optional sign,
// group separators, one decimal separator, an exponent and a trailing
// percent sign. Hex, infinities and NaN are rejected.
func ParseNumber(s string, sep Separators) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	scale := 1.0
	if strings.HasSuffix(s, "%") {
		scale = 0.01
		s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	}

	var b strings.Builder
	seenDecimal := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '+', r == '-', r == 'e', r == 'E':
			b.WriteRune(r)
		case r == sep.Decimal:
			if seenDecimal {
				return 0, false
			}
			seenDecimal = true
			b.WriteByte('.')
		case r == sep.Group && sep.Group != sep.Decimal && !seenDecimal:
		default:
			return 0, false
		}
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, false
	}
	return v * scale, true
}

// ParseBool accepts TRUE and FALSE in any case.
func ParseBool(s string) (bool, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRUE":
		return true, true
	case "FALSE":
		return false, true
	}
	return false, false
}
