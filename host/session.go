package host

import (
	"sync"

	"go.uber.org/zap"

	xlw "github.com/davidclayton/xlw"
	"github.com/davidclayton/xlw/errors"
	"github.com/davidclayton/xlw/internal/record"
	"github.com/davidclayton/xlw/xlcall"
)

// Config holds session configuration
type Config struct {
	// Logger overrides the package logger.
	Logger *zap.Logger
	// CallBudget caps the bytes one call scope may hold. Zero means no cap.
	CallBudget uint32
}

// Stats is a snapshot of a session's memory accounting.
type Stats struct {
	Live     int    // arena allocations not yet freed
	Bytes    uint64 // bytes held by the arena
	Retained int    // records handed back to the host awaiting auto-free
	Depth    int    // nested call scopes
}

type errorConst struct {
	once sync.Once
	ptr  uint32
	err  error
}

// Session is one add-in's view of the host. All allocations made through
// it belong to the current call scope and are freed when the scope ends,
// unless Retain moves them out first.
//
// A Session is used from the host's calculation thread only.
type Session struct {
	host   Host
	mem    xlw.Memory
	log    *zap.Logger
	budget uint32

	versionOnce sync.Once
	abi         xlcall.ABI
	layout      record.Layout

	arena    *AllocationList
	coerced  map[uint32]struct{}
	retained map[uint32][]Allocation
	depth    int
	gen      uint64

	errs map[xlcall.ErrorCode]*errorConst
}

// NewSession wraps h. cfg may be nil.
func NewSession(h Host, cfg *Config) *Session {
	if cfg == nil {
		cfg = &Config{}
	}
	log := cfg.Logger
	if log == nil {
		log = Logger()
	}
	s := &Session{
		host:     h,
		mem:      h.Memory(),
		log:      log,
		budget:   cfg.CallBudget,
		arena:    NewAllocationList(),
		coerced:  make(map[uint32]struct{}),
		retained: make(map[uint32][]Allocation),
		errs:     make(map[xlcall.ErrorCode]*errorConst, len(xlcall.ErrorCodes)),
	}
	for _, code := range xlcall.ErrorCodes {
		s.errs[code] = &errorConst{}
	}
	return s
}

func (s *Session) Host() Host            { return s.host }
func (s *Session) Memory() xlw.Memory    { return s.mem }
func (s *Session) Logger() *zap.Logger   { return s.log }
func (s *Session) Layout() record.Layout { s.detect(); return s.layout }

// Version returns the host ABI. It is asked once; a failed detection falls
// back to the legacy layout for the rest of the session.
func (s *Session) Version() xlcall.ABI {
	s.detect()
	return s.abi
}

func (s *Session) detect() {
	s.versionOnce.Do(func() {
		abi, err := s.host.Version()
		if err != nil || (abi != xlcall.ABILegacy && abi != xlcall.ABIModern) {
			s.log.Warn("host version detection failed, using legacy layout",
				zap.Error(err), zap.Stringer("reported", abi))
			abi = xlcall.ABILegacy
		}
		s.abi = abi
		s.layout = record.For(abi)
		s.log.Debug("host version", zap.Stringer("abi", abi))
	})
}

// Allocate returns zeroed host memory owned by the current call scope.
func (s *Session) Allocate(size uint32) (uint32, error) {
	if size == 0 {
		size = 1
	}
	if s.budget != 0 && s.arena.Bytes()+uint64(size) > uint64(s.budget) {
		return 0, errors.New(errors.PhaseAlloc, errors.KindAllocation).
			Value(size).
			Detail("call budget of %d bytes exhausted (%d held)", s.budget, s.arena.Bytes()).
			Build()
	}
	ptr, err := s.host.Alloc(size, record.Align)
	if err != nil || ptr == 0 {
		return 0, errors.AllocationFailed(errors.PhaseAlloc, size, err)
	}
	if err := s.mem.Write(ptr, make([]byte, size)); err != nil {
		s.host.Free(ptr, size, record.Align)
		return 0, errors.AllocationFailed(errors.PhaseAlloc, size, err)
	}
	s.arena.Add(ptr, size, record.Align)
	s.log.Debug("allocate", zap.Uint32("ptr", ptr), zap.Uint32("size", size))
	return ptr, nil
}

// Free releases an arena allocation early. Pointers the arena does not
// hold are ignored.
func (s *Session) Free(ptr uint32) {
	if ptr == 0 {
		return
	}
	a, ok := s.arena.Take(ptr)
	if !ok {
		s.log.Debug("free of untracked pointer", zap.Uint32("ptr", ptr))
		return
	}
	delete(s.coerced, ptr)
	s.host.Free(a.Ptr, a.Size, a.Align)
}

// ReleaseAuxiliaryMemory frees the payload a record points at, according
// to who owns it, and leaves the record Nil. Records without an ownership
// bit are untouched, so releasing twice is a no-op.
func (s *Session) ReleaseAuxiliaryMemory(rec uint32) error {
	if rec == 0 {
		return nil
	}
	l := s.Layout()
	t, err := l.Type(s.mem, rec)
	if err != nil {
		return errors.Wrap(errors.PhaseRelease, errors.KindInvalidData, err, "read record type")
	}
	var relErr error
	switch {
	case t&xlcall.BitXLFree != 0:
		if err := s.host.FreeAux(rec); err != nil {
			s.log.Warn("host free-aux failed", zap.Uint32("record", rec), zap.Error(err))
			relErr = errors.Wrap(errors.PhaseRelease, errors.KindHostFailure, err, "host free-aux")
		}
		delete(s.coerced, rec)
	case t&xlcall.BitDLLFree != 0:
		payloads, err := record.Payloads(l, s.mem, rec)
		if err != nil {
			relErr = errors.Wrap(errors.PhaseRelease, errors.KindInvalidData, err, "walk record payloads")
		}
		for _, p := range payloads {
			s.Free(p)
		}
	default:
		return nil
	}
	if err := record.Clear(l, s.mem, rec); err != nil {
		return err
	}
	if err := l.SetType(s.mem, rec, xlcall.TypeNil); err != nil {
		return err
	}
	return relErr
}

// Coerce asks the host to convert src into target. The result record lives
// in the call arena; its payload is host-owned.
func (s *Session) Coerce(src uint32, target xlcall.Type) (uint32, xlcall.Ret) {
	dst, err := s.Allocate(s.Layout().Size())
	if err != nil {
		s.log.Debug("coerce destination denied", zap.Error(err))
		return 0, xlcall.RetFailed
	}
	ret := s.host.Coerce(src, target, dst)
	if !ret.OK() {
		s.Free(dst)
		s.log.Debug("coerce failed", zap.Uint32("src", src), zap.Stringer("target", target), zap.Stringer("ret", ret))
		return 0, ret
	}
	s.coerced[dst] = struct{}{}
	return dst, xlcall.RetSuccess
}

// BeginCall opens a call scope.
func (s *Session) BeginCall() {
	s.depth++
}

// EndCall closes the innermost call scope. Closing the outermost scope
// frees everything the arena still holds, including host payloads of
// coerced records.
func (s *Session) EndCall() {
	if s.depth > 0 {
		s.depth--
	}
	if s.depth > 0 {
		return
	}
	for rec := range s.coerced {
		if err := s.host.FreeAux(rec); err != nil {
			s.log.Warn("host free-aux failed", zap.Uint32("record", rec), zap.Error(err))
		}
	}
	clear(s.coerced)
	if n := s.arena.Count(); n > 0 {
		s.log.Debug("end call", zap.Int("freed", n), zap.Uint64("bytes", s.arena.Bytes()))
	}
	s.arena.Free(s.host)
	s.gen++
}

// Generation counts closed outermost scopes. A record allocated under an
// earlier generation has been freed.
func (s *Session) Generation() uint64 { return s.gen }

// Retain moves a record and the payloads it owns out of the call arena so
// they survive the end of the call. AutoFree releases them.
func (s *Session) Retain(rec uint32) error {
	if rec == 0 {
		return errors.NotBound(errors.PhaseCall, "")
	}
	ptrs := []uint32{rec}
	payloads, err := record.Payloads(s.Layout(), s.mem, rec)
	if err != nil {
		return errors.Wrap(errors.PhaseCall, errors.KindInvalidData, err, "walk record payloads")
	}
	ptrs = append(ptrs, payloads...)

	var moved []Allocation
	for _, p := range ptrs {
		if a, ok := s.arena.Take(p); ok {
			moved = append(moved, a)
		}
	}
	delete(s.coerced, rec)
	s.retained[rec] = append(s.retained[rec], moved...)
	return nil
}

// AutoFree releases a record previously kept by Retain. Unknown records are
// ignored.
func (s *Session) AutoFree(rec uint32) {
	allocs, ok := s.retained[rec]
	if !ok {
		s.log.Debug("auto-free of unknown record", zap.Uint32("record", rec))
		return
	}
	delete(s.retained, rec)
	if t, err := s.Layout().Type(s.mem, rec); err == nil && t&xlcall.BitXLFree != 0 {
		if err := s.host.FreeAux(rec); err != nil {
			s.log.Warn("host free-aux failed", zap.Uint32("record", rec), zap.Error(err))
		}
	}
	for _, a := range allocs {
		s.host.Free(a.Ptr, a.Size, a.Align)
	}
}

// ErrorRecord returns the persistent record holding error code. It is
// allocated on first use and lives as long as the session.
func (s *Session) ErrorRecord(code xlcall.ErrorCode) (uint32, error) {
	c, ok := s.errs[code]
	if !ok {
		return 0, errors.New(errors.PhaseConstruct, errors.KindInvalidInput).
			Value(uint16(code)).
			Detail("unknown error code %d", uint16(code)).
			Build()
	}
	c.once.Do(func() {
		l := s.Layout()
		ptr, err := s.host.Alloc(l.Size(), record.Align)
		if err != nil || ptr == 0 {
			c.err = errors.AllocationFailed(errors.PhaseAlloc, l.Size(), err)
			s.log.Warn("error constant denied", zap.Stringer("code", code), zap.Error(err))
			return
		}
		if err := record.Clear(l, s.mem, ptr); err != nil {
			c.err = err
			return
		}
		if err := l.SetErr(s.mem, ptr, code); err != nil {
			c.err = err
			return
		}
		if err := l.SetType(s.mem, ptr, xlcall.TypeErr); err != nil {
			c.err = err
			return
		}
		c.ptr = ptr
	})
	return c.ptr, c.err
}

// IsErrorConstant reports whether ptr is one of the persistent error records.
func (s *Session) IsErrorConstant(ptr uint32) bool {
	if ptr == 0 {
		return false
	}
	for _, c := range s.errs {
		if c.ptr == ptr {
			return true
		}
	}
	return false
}

// Owns reports whether ptr is held by the call arena.
func (s *Session) Owns(ptr uint32) bool {
	return s.arena.Has(ptr)
}

func (s *Session) Stats() Stats {
	return Stats{
		Live:     s.arena.Count(),
		Bytes:    s.arena.Bytes(),
		Retained: len(s.retained),
		Depth:    s.depth,
	}
}

// Close frees everything the session holds: the arena, retained records
// and the error constants.
func (s *Session) Close() {
	s.depth = 0
	s.EndCall()
	for rec := range s.retained {
		s.AutoFree(rec)
	}
	l := s.Layout()
	for _, c := range s.errs {
		if c.ptr != 0 {
			s.host.Free(c.ptr, l.Size(), record.Align)
			c.ptr = 0
		}
	}
}
