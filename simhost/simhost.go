// Package simhost is an in-process stand-in for the spreadsheet host.
//
// Host memory is the linear memory of a wasm module instantiated in a
// wazero runtime, so records and payloads are addressed by 32-bit offsets
// exactly as the real host hands them to an add-in. On top of it sit a
// free-list allocator, the host's coercion rules, constant-only worksheets
// and a log of function registrations.
package simhost

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	xlw "github.com/davidclayton/xlw"
	"github.com/davidclayton/xlw/errors"
	"github.com/davidclayton/xlw/host"
	"github.com/davidclayton/xlw/internal/record"
	"github.com/davidclayton/xlw/xlcall"
)

// Config holds configuration for the simulated host
type Config struct {
	// ABI selects the record layout. Default modern.
	ABI xlcall.ABI

	// InitialPages and MaxPages bound host memory in 64KB pages.
	// Defaults are 1 and 256 (16MB).
	InitialPages uint32
	MaxPages     uint32

	// DecimalSeparator and GroupSeparator drive text to number coercion.
	// Defaults are '.' and ','.
	DecimalSeparator rune
	GroupSeparator   rune

	Logger *zap.Logger
}

// Host is a simulated spreadsheet process.
type Host struct {
	runtime wazero.Runtime
	module  api.Module
	mem     *Memory
	alloc   *allocator
	abi     xlcall.ABI
	layout  record.Layout
	sep     record.Separators
	log     *zap.Logger

	mu        sync.Mutex
	aux       map[uint32][]uint32
	sheets    map[uint64]*Sheet
	nextSheet uint64
	active    uint64
	regs      []host.Registration
}

var (
	_ host.Host      = (*Host)(nil)
	_ host.Registrar = (*Host)(nil)
)

// New starts a simulated host. cfg may be nil.
func New(ctx context.Context, cfg *Config) (*Host, error) {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	if c.ABI == 0 {
		c.ABI = xlcall.ABIModern
	}
	if c.InitialPages == 0 {
		c.InitialPages = 1
	}
	if c.MaxPages == 0 {
		c.MaxPages = 256
	}
	if c.MaxPages < c.InitialPages {
		c.MaxPages = c.InitialPages
	}
	if c.DecimalSeparator == 0 {
		c.DecimalSeparator = record.DefaultSeparators.Decimal
	}
	if c.GroupSeparator == 0 {
		c.GroupSeparator = record.DefaultSeparators.Group
	}
	if c.Logger == nil {
		c.Logger = host.Logger()
	}

	runtimeCfg := wazero.NewRuntimeConfig().WithMemoryLimitPages(c.MaxPages)
	runtime := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	mod, err := runtime.InstantiateWithConfig(ctx, memoryModule(c.InitialPages, c.MaxPages),
		wazero.NewModuleConfig().WithName("xlhost"))
	if err != nil {
		_ = runtime.Close(ctx)
		return nil, fmt.Errorf("instantiate host memory: %w", err)
	}
	wmem := mod.Memory()
	if wmem == nil {
		_ = runtime.Close(ctx)
		return nil, fmt.Errorf("host module exports no memory")
	}

	mem := &Memory{mem: wmem}
	h := &Host{
		runtime: runtime,
		module:  mod,
		mem:     mem,
		alloc:   newAllocator(mem),
		abi:     c.ABI,
		layout:  record.For(c.ABI),
		sep:     record.Separators{Decimal: c.DecimalSeparator, Group: c.GroupSeparator},
		log:     c.Logger.Named("simhost"),
		aux:     make(map[uint32][]uint32),
		sheets:  make(map[uint64]*Sheet),
	}
	h.addSheetLocked("Sheet1")
	h.log.Debug("host started",
		zap.Stringer("abi", c.ABI),
		zap.Uint32("pages", c.InitialPages),
		zap.Uint32("max_pages", c.MaxPages))
	return h, nil
}

// Close releases the wazero runtime and with it all host memory.
func (h *Host) Close(ctx context.Context) error {
	return h.runtime.Close(ctx)
}

func (h *Host) Version() (xlcall.ABI, error) { return h.abi, nil }
func (h *Host) Memory() xlw.Memory           { return h.mem }

// Layout returns the record layout the host was configured with.
func (h *Host) Layout() record.Layout { return h.layout }

func (h *Host) Alloc(size, align uint32) (uint32, error) {
	ptr, err := h.alloc.alloc(size, align)
	if err != nil {
		h.log.Debug("alloc denied", zap.Uint32("size", size), zap.Error(err))
		return 0, err
	}
	h.log.Debug("alloc", zap.Uint32("ptr", ptr), zap.Uint32("size", size))
	return ptr, nil
}

func (h *Host) Free(ptr, size, align uint32) {
	if !h.alloc.release(ptr) {
		h.log.Debug("free of unknown block", zap.Uint32("ptr", ptr), zap.Uint32("size", size))
	}
}

// FreeAux releases the payloads the host allocated for rec. Records the
// host has no payloads for are ignored.
func (h *Host) FreeAux(rec uint32) error {
	h.mu.Lock()
	ptrs := h.aux[rec]
	delete(h.aux, rec)
	h.mu.Unlock()
	for _, p := range ptrs {
		h.alloc.release(p)
	}
	if len(ptrs) > 0 {
		h.log.Debug("free aux", zap.Uint32("record", rec), zap.Int("blocks", len(ptrs)))
	}
	return nil
}

// LiveBlocks returns the number of allocated blocks, for leak checks.
func (h *Host) LiveBlocks() int {
	return h.alloc.live()
}

// Register records a function registration.
func (h *Host) Register(reg host.Registration) error {
	if reg.Name == "" {
		return errors.Registration("<unnamed>", errors.InvalidInput(errors.PhaseRegister, "empty function name"))
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.regs {
		if r.Name == reg.Name {
			return errors.Registration(reg.Name, errors.InvalidInput(errors.PhaseRegister, "already registered with the host"))
		}
	}
	h.regs = append(h.regs, reg)
	h.log.Debug("register", zap.String("name", reg.Name), zap.String("type_text", reg.TypeText))
	return nil
}

// Registrations returns the functions registered so far, in order.
func (h *Host) Registrations() []host.Registration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]host.Registration(nil), h.regs...)
}
