package record

import (
	"golang.org/x/text/encoding/charmap"

	xlw "github.com/davidclayton/xlw"
	"github.com/davidclayton/xlw/errors"
	"github.com/davidclayton/xlw/xlcall"
	"github.com/davidclayton/xlw/xlref"
)

const (
	legacySize    = 16
	legacyTypeOff = 8
	legacyRefSize = 6
)

type legacy struct{ common }

func (legacy) ABI() xlcall.ABI { return xlcall.ABILegacy }
func (legacy) Size() uint32    { return legacySize }

func (legacy) Type(m xlw.Memory, p uint32) (xlcall.Type, error) {
	v, err := m.ReadU16(p + legacyTypeOff)
	return xlcall.Type(v), err
}

func (legacy) SetType(m xlw.Memory, p uint32, t xlcall.Type) error {
	return m.WriteU16(p+legacyTypeOff, uint16(t))
}

func (legacy) Int(m xlw.Memory, p uint32) (int32, error) {
	v, err := m.ReadU16(p)
	return int32(int16(v)), err
}

func (legacy) SetInt(m xlw.Memory, p uint32, v int16) error {
	return m.WriteU16(p, uint16(v))
}

func (legacy) Bool(m xlw.Memory, p uint32) (bool, error) {
	v, err := m.ReadU16(p)
	return v != 0, err
}

func (legacy) SetBool(m xlw.Memory, p uint32, v bool) error {
	var b uint16
	if v {
		b = 1
	}
	return m.WriteU16(p, b)
}

func (legacy) Err(m xlw.Memory, p uint32) (xlcall.ErrorCode, error) {
	v, err := m.ReadU16(p)
	return xlcall.ErrorCode(v), err
}

func (legacy) SetErr(m xlw.Memory, p uint32, code xlcall.ErrorCode) error {
	return m.WriteU16(p, uint16(code))
}

func (legacy) Array(m xlw.Memory, p uint32) (Array, error) {
	ptr, err := m.ReadU32(p)
	if err != nil {
		return Array{}, err
	}
	rows, err := m.ReadU16(p + 4)
	if err != nil {
		return Array{}, err
	}
	cols, err := m.ReadU16(p + 6)
	if err != nil {
		return Array{}, err
	}
	return Array{Ptr: ptr, Rows: uint32(rows), Cols: uint32(cols)}, nil
}

func (l legacy) SetArray(m xlw.Memory, p uint32, a Array) error {
	if a.Rows > xlcall.LegacyMaxArrayRows {
		return errors.ABILimit(errors.PhaseConstruct, "matrix row count", a.Rows, xlcall.LegacyMaxArrayRows, "legacy")
	}
	if a.Cols > xlcall.LegacyMaxArrayCols {
		return errors.ABILimit(errors.PhaseConstruct, "matrix col count", a.Cols, xlcall.LegacyMaxArrayCols, "legacy")
	}
	if err := m.WriteU32(p, a.Ptr); err != nil {
		return err
	}
	if err := m.WriteU16(p+4, uint16(a.Rows)); err != nil {
		return err
	}
	return m.WriteU16(p+6, uint16(a.Cols))
}

func (legacy) MaxArrayRows() uint32 { return xlcall.LegacyMaxArrayRows }
func (legacy) MaxArrayCols() uint32 { return xlcall.LegacyMaxArrayCols }

func (legacy) readRef(m xlw.Memory, at uint32) (xlref.Rect, error) {
	b, err := m.Read(at, legacyRefSize)
	if err != nil {
		return xlref.Rect{}, err
	}
	return xlref.Rect{
		RowFirst: uint32(b[0]) | uint32(b[1])<<8,
		RowLast:  uint32(b[2]) | uint32(b[3])<<8,
		ColFirst: uint32(b[4]),
		ColLast:  uint32(b[5]),
	}, nil
}

func (l legacy) writeRef(m xlw.Memory, at uint32, r xlref.Rect) error {
	if err := l.CheckRect(r); err != nil {
		return err
	}
	return m.Write(at, []byte{
		byte(r.RowFirst), byte(r.RowFirst >> 8),
		byte(r.RowLast), byte(r.RowLast >> 8),
		byte(r.ColFirst), byte(r.ColLast),
	})
}

func (legacy) CheckRect(r xlref.Rect) error {
	if r.RowLast >= xlcall.LegacyMaxRefRows {
		return errors.ABILimit(errors.PhaseConstruct, "reference row", r.RowLast, xlcall.LegacyMaxRefRows-1, "legacy")
	}
	if r.ColLast >= xlcall.LegacyMaxRefCols {
		return errors.ABILimit(errors.PhaseConstruct, "reference column", r.ColLast, xlcall.LegacyMaxRefCols-1, "legacy")
	}
	return nil
}

func (l legacy) SRef(m xlw.Memory, p uint32) (xlref.Rect, error) {
	return l.readRef(m, p+2)
}

func (l legacy) SetSRef(m xlw.Memory, p uint32, r xlref.Rect) error {
	if err := m.WriteU16(p, 1); err != nil {
		return err
	}
	return l.writeRef(m, p+2, r)
}

func (legacy) MRef(m xlw.Memory, p uint32) (uint32, uint64, error) {
	list, err := m.ReadU32(p)
	if err != nil {
		return 0, 0, err
	}
	sheet, err := m.ReadU32(p + 4)
	return list, uint64(sheet), err
}

func (legacy) SetMRef(m xlw.Memory, p uint32, list uint32, sheet uint64) error {
	if sheet > 0xFFFFFFFF {
		return errors.New(errors.PhaseConstruct, errors.KindABILimit).
			Value(sheet).
			Detail("sheet id %d exceeds legacy 32-bit field", sheet).
			Build()
	}
	if err := m.WriteU32(p, list); err != nil {
		return err
	}
	return m.WriteU32(p+4, uint32(sheet))
}

func (legacy) RefListSize(n int) uint32 {
	return 2 + uint32(n)*legacyRefSize
}

func (l legacy) RefList(m xlw.Memory, list uint32) ([]xlref.Rect, error) {
	n, err := m.ReadU16(list)
	if err != nil {
		return nil, err
	}
	out := make([]xlref.Rect, n)
	for i := range out {
		if out[i], err = l.readRef(m, list+2+uint32(i)*legacyRefSize); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (l legacy) WriteRefList(m xlw.Memory, list uint32, areas []xlref.Rect) error {
	if err := m.WriteU16(list, uint16(len(areas))); err != nil {
		return err
	}
	for i, a := range areas {
		if err := l.writeRef(m, list+2+uint32(i)*legacyRefSize, a); err != nil {
			return err
		}
	}
	return nil
}

func (legacy) MaxString() int { return xlcall.LegacyMaxString }

// EncodeString converts s to the legacy code page. Runes with no code page
// equivalent become '?'.
func (legacy) EncodeString(s string) ([]byte, error) {
	enc := make([]byte, 1, 1+len(s))
	for _, r := range s {
		b, ok := charmap.Windows1252.EncodeRune(r)
		if !ok {
			b = '?'
		}
		enc = append(enc, b)
	}
	if n := len(enc) - 1; n > xlcall.LegacyMaxString {
		return nil, errors.StringTooLong(errors.PhaseConstruct, n, xlcall.LegacyMaxString)
	}
	enc[0] = byte(len(enc) - 1)
	return enc, nil
}

func (l legacy) EncodeUnits(u []uint16) ([]byte, error) {
	return l.EncodeString(unitsToString(u))
}

func (legacy) StringPayload(m xlw.Memory, ptr uint32) ([]byte, error) {
	n, err := m.ReadU8(ptr)
	if err != nil {
		return nil, err
	}
	return m.Read(ptr, 1+uint32(n))
}

func (legacy) DecodeString(payload []byte) (string, error) {
	if len(payload) == 0 || int(payload[0]) > len(payload)-1 {
		return "", errors.InvalidData(errors.PhaseConvert, nil, "truncated legacy string payload")
	}
	dec, err := charmap.Windows1252.NewDecoder().Bytes(payload[1 : 1+int(payload[0])])
	if err != nil {
		return "", errors.Wrap(errors.PhaseConvert, errors.KindInvalidData, err, "decode legacy string")
	}
	return string(dec), nil
}

func (l legacy) DecodeUnits(payload []byte) ([]uint16, error) {
	s, err := l.DecodeString(payload)
	if err != nil {
		return nil, err
	}
	return stringToUnits(s), nil
}
