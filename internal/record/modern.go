package record

import (
	"encoding/binary"

	xlw "github.com/davidclayton/xlw"
	"github.com/davidclayton/xlw/errors"
	"github.com/davidclayton/xlw/xlcall"
	"github.com/davidclayton/xlw/xlref"
)

const (
	modernSize    = 32
	modernTypeOff = 24
	modernRefSize = 16
)

type modern struct{ common }

func (modern) ABI() xlcall.ABI { return xlcall.ABIModern }
func (modern) Size() uint32    { return modernSize }

func (modern) Type(m xlw.Memory, p uint32) (xlcall.Type, error) {
	v, err := m.ReadU32(p + modernTypeOff)
	return xlcall.Type(v), err
}

func (modern) SetType(m xlw.Memory, p uint32, t xlcall.Type) error {
	return m.WriteU32(p+modernTypeOff, uint32(t))
}

func (modern) Int(m xlw.Memory, p uint32) (int32, error) {
	v, err := m.ReadU32(p)
	return int32(v), err
}

func (modern) SetInt(m xlw.Memory, p uint32, v int16) error {
	return m.WriteU32(p, uint32(int32(v)))
}

func (modern) Bool(m xlw.Memory, p uint32) (bool, error) {
	v, err := m.ReadU32(p)
	return v != 0, err
}

func (modern) SetBool(m xlw.Memory, p uint32, v bool) error {
	var b uint32
	if v {
		b = 1
	}
	return m.WriteU32(p, b)
}

func (modern) Err(m xlw.Memory, p uint32) (xlcall.ErrorCode, error) {
	v, err := m.ReadU32(p)
	return xlcall.ErrorCode(v), err
}

func (modern) SetErr(m xlw.Memory, p uint32, code xlcall.ErrorCode) error {
	return m.WriteU32(p, uint32(code))
}

func (modern) Array(m xlw.Memory, p uint32) (Array, error) {
	b, err := m.Read(p, 12)
	if err != nil {
		return Array{}, err
	}
	return Array{
		Ptr:  binary.LittleEndian.Uint32(b[0:]),
		Rows: binary.LittleEndian.Uint32(b[4:]),
		Cols: binary.LittleEndian.Uint32(b[8:]),
	}, nil
}

func (modern) SetArray(m xlw.Memory, p uint32, a Array) error {
	if a.Rows > xlcall.ModernMaxArrayRows {
		return errors.ABILimit(errors.PhaseConstruct, "matrix row count", a.Rows, xlcall.ModernMaxArrayRows, "modern")
	}
	if a.Cols > xlcall.ModernMaxArrayCols {
		return errors.ABILimit(errors.PhaseConstruct, "matrix col count", a.Cols, xlcall.ModernMaxArrayCols, "modern")
	}
	b := make([]byte, 12)
	binary.LittleEndian.PutUint32(b[0:], a.Ptr)
	binary.LittleEndian.PutUint32(b[4:], a.Rows)
	binary.LittleEndian.PutUint32(b[8:], a.Cols)
	return m.Write(p, b)
}

func (modern) MaxArrayRows() uint32 { return xlcall.ModernMaxArrayRows }
func (modern) MaxArrayCols() uint32 { return xlcall.ModernMaxArrayCols }

func (modern) readRef(m xlw.Memory, at uint32) (xlref.Rect, error) {
	b, err := m.Read(at, modernRefSize)
	if err != nil {
		return xlref.Rect{}, err
	}
	return xlref.Rect{
		RowFirst: binary.LittleEndian.Uint32(b[0:]),
		RowLast:  binary.LittleEndian.Uint32(b[4:]),
		ColFirst: binary.LittleEndian.Uint32(b[8:]),
		ColLast:  binary.LittleEndian.Uint32(b[12:]),
	}, nil
}

func (l modern) writeRef(m xlw.Memory, at uint32, r xlref.Rect) error {
	if err := l.CheckRect(r); err != nil {
		return err
	}
	b := make([]byte, modernRefSize)
	binary.LittleEndian.PutUint32(b[0:], r.RowFirst)
	binary.LittleEndian.PutUint32(b[4:], r.RowLast)
	binary.LittleEndian.PutUint32(b[8:], r.ColFirst)
	binary.LittleEndian.PutUint32(b[12:], r.ColLast)
	return m.Write(at, b)
}

func (modern) CheckRect(r xlref.Rect) error {
	if r.RowLast >= xlcall.ModernMaxRefRows {
		return errors.ABILimit(errors.PhaseConstruct, "reference row", r.RowLast, xlcall.ModernMaxRefRows-1, "modern")
	}
	if r.ColLast >= xlcall.ModernMaxRefCols {
		return errors.ABILimit(errors.PhaseConstruct, "reference column", r.ColLast, xlcall.ModernMaxRefCols-1, "modern")
	}
	return nil
}

func (l modern) SRef(m xlw.Memory, p uint32) (xlref.Rect, error) {
	return l.readRef(m, p+4)
}

func (l modern) SetSRef(m xlw.Memory, p uint32, r xlref.Rect) error {
	if err := m.WriteU16(p, 1); err != nil {
		return err
	}
	return l.writeRef(m, p+4, r)
}

func (modern) MRef(m xlw.Memory, p uint32) (uint32, uint64, error) {
	list, err := m.ReadU32(p)
	if err != nil {
		return 0, 0, err
	}
	sheet, err := m.ReadU64(p + 8)
	return list, sheet, err
}

func (modern) SetMRef(m xlw.Memory, p uint32, list uint32, sheet uint64) error {
	if err := m.WriteU32(p, list); err != nil {
		return err
	}
	return m.WriteU64(p+8, sheet)
}

func (modern) RefListSize(n int) uint32 {
	return 4 + uint32(n)*modernRefSize
}

func (l modern) RefList(m xlw.Memory, list uint32) ([]xlref.Rect, error) {
	n, err := m.ReadU16(list)
	if err != nil {
		return nil, err
	}
	out := make([]xlref.Rect, n)
	for i := range out {
		if out[i], err = l.readRef(m, list+4+uint32(i)*modernRefSize); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (l modern) WriteRefList(m xlw.Memory, list uint32, areas []xlref.Rect) error {
	if err := m.WriteU32(list, uint32(len(areas))&0xFFFF); err != nil {
		return err
	}
	for i, a := range areas {
		if err := l.writeRef(m, list+4+uint32(i)*modernRefSize, a); err != nil {
			return err
		}
	}
	return nil
}

func (modern) MaxString() int { return xlcall.ModernMaxString }

func (modern) EncodeString(s string) ([]byte, error) {
	enc, err := utf16le.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConstruct, errors.KindInvalidData, err, "encode modern string")
	}
	n := len(enc) / 2
	if n > xlcall.ModernMaxString {
		return nil, errors.StringTooLong(errors.PhaseConstruct, n, xlcall.ModernMaxString)
	}
	b := make([]byte, 2, 2+len(enc))
	binary.LittleEndian.PutUint16(b, uint16(n))
	return append(b, enc...), nil
}

func (modern) EncodeUnits(u []uint16) ([]byte, error) {
	if len(u) > xlcall.ModernMaxString {
		return nil, errors.StringTooLong(errors.PhaseConstruct, len(u), xlcall.ModernMaxString)
	}
	b := make([]byte, 2+2*len(u))
	binary.LittleEndian.PutUint16(b, uint16(len(u)))
	for i, c := range u {
		binary.LittleEndian.PutUint16(b[2+2*i:], c)
	}
	return b, nil
}

func (modern) StringPayload(m xlw.Memory, ptr uint32) ([]byte, error) {
	n, err := m.ReadU16(ptr)
	if err != nil {
		return nil, err
	}
	if int(n) > xlcall.ModernMaxString {
		return nil, errors.InvalidData(errors.PhaseConvert, nil, "string length prefix exceeds host max")
	}
	return m.Read(ptr, 2+2*uint32(n))
}

func (l modern) DecodeString(payload []byte) (string, error) {
	if len(payload) < 2 {
		return "", errors.InvalidData(errors.PhaseConvert, nil, "truncated modern string payload")
	}
	n := int(binary.LittleEndian.Uint16(payload))
	if 2+2*n > len(payload) {
		return "", errors.InvalidData(errors.PhaseConvert, nil, "truncated modern string payload")
	}
	return decodeUTF16(payload[2 : 2+2*n])
}

func (modern) DecodeUnits(payload []byte) ([]uint16, error) {
	if len(payload) < 2 {
		return nil, errors.InvalidData(errors.PhaseConvert, nil, "truncated modern string payload")
	}
	n := int(binary.LittleEndian.Uint16(payload))
	if 2+2*n > len(payload) {
		return nil, errors.InvalidData(errors.PhaseConvert, nil, "truncated modern string payload")
	}
	out := make([]uint16, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(payload[2+2*i:])
	}
	return out, nil
}
