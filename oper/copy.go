package oper

import (
	"github.com/davidclayton/xlw/errors"
	"github.com/davidclayton/xlw/host"
	"github.com/davidclayton/xlw/internal/record"
	"github.com/davidclayton/xlw/xlcall"
)

// Copy deep-copies src into dst. Payloads are duplicated into new arena
// buffers owned by dst, so the two records never share memory.
func (b base) Copy(s *host.Session, dst, src uint32) error {
	if dst == src {
		return nil
	}
	m := s.Memory()
	l := b.l
	t, err := l.Type(m, src)
	if err != nil {
		return memErr(err, "read source type")
	}
	raw, err := m.Read(src, l.Size())
	if err != nil {
		return memErr(err, "read source record")
	}
	if err := b.prepare(s, dst); err != nil {
		return err
	}

	switch t.Base() {
	case xlcall.TypeStr:
		payload, ret := b.stringPayload(s, src)
		if !ret.OK() {
			return errors.InvalidData(errors.PhaseConstruct, nil, "source string payload unreadable")
		}
		return b.setStringPayload(s, dst, payload)

	case xlcall.TypeMulti:
		a, err := l.Array(m, src)
		if err != nil {
			return memErr(err, "read source array")
		}
		if err := b.checkDims(int(a.Rows), int(a.Cols)); err != nil {
			return err
		}
		na, err := b.setArray(s, dst, int(a.Rows), int(a.Cols))
		if err != nil {
			return err
		}
		for i := uint32(0); i < a.Count(); i++ {
			if err := b.copyElement(s, record.Element(l, na, i), record.Element(l, a, i)); err != nil {
				_ = s.ReleaseAuxiliaryMemory(dst)
				return err
			}
		}
		return nil

	case xlcall.TypeRef:
		list, sheet, err := l.MRef(m, src)
		if err != nil {
			return memErr(err, "read source reference")
		}
		areas, err := l.RefList(m, list)
		if err != nil {
			return memErr(err, "read source reference list")
		}
		nl, err := s.Allocate(l.RefListSize(len(areas)))
		if err != nil {
			return err
		}
		if err := l.WriteRefList(m, nl, areas); err != nil {
			s.Free(nl)
			return memErr(err, "write reference list")
		}
		if err := l.SetMRef(m, dst, nl, sheet); err != nil {
			s.Free(nl)
			return memErr(err, "write reference")
		}
		return b.setTag(s, dst, xlcall.TypeRef|xlcall.BitDLLFree)
	}

	if err := m.Write(dst, raw); err != nil {
		return memErr(err, "write record")
	}
	return b.setTag(s, dst, t.Base())
}

// copyElement copies one array element; element strings get their own
// payload.
func (b base) copyElement(s *host.Session, dst, src uint32) error {
	m := s.Memory()
	l := b.l
	t, err := l.Type(m, src)
	if err != nil {
		return memErr(err, "read element")
	}
	if t.Base() != xlcall.TypeStr {
		raw, err := m.Read(src, l.Size())
		if err != nil {
			return memErr(err, "read element")
		}
		if err := m.Write(dst, raw); err != nil {
			return memErr(err, "write element")
		}
		return memErr(l.SetType(m, dst, t.Base()), "write element")
	}
	payload, ret := b.stringPayload(s, src)
	if !ret.OK() {
		return errors.InvalidData(errors.PhaseConstruct, nil, "element string payload unreadable")
	}
	sp, err := b.newPayload(s, payload)
	if err != nil {
		return err
	}
	if err := l.SetStr(m, dst, sp); err != nil {
		s.Free(sp)
		return memErr(err, "write element")
	}
	return memErr(l.SetType(m, dst, xlcall.TypeStr), "write element")
}
