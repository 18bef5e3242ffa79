// Package addin is the host call boundary: it keeps the functions an add-in
// exposes, registers them with the host and runs each host call inside its
// own allocation scope.
package addin

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/davidclayton/xlw/errors"
	"github.com/davidclayton/xlw/host"
	"github.com/davidclayton/xlw/metadata"
	"github.com/davidclayton/xlw/oper"
	"github.com/davidclayton/xlw/xlcall"
)

// Handler computes one function result. Returning an error makes the call
// evaluate to #VALUE!.
type Handler func(args *Args) (*oper.Oper, error)

// Function pairs a description with its handler.
type Function struct {
	Desc    metadata.FunctionDescription
	Handler Handler
}

// Config holds registry options. A nil Config uses defaults.
type Config struct {
	// Category groups the functions in the host's function wizard.
	Category string
	Logger   *zap.Logger
}

type Registry struct {
	s        *host.Session
	funcs    map[string]*Function
	order    []string
	category string
	log      *zap.Logger
	mu       sync.RWMutex
}

func NewRegistry(s *host.Session, cfg *Config) *Registry {
	if cfg == nil {
		cfg = &Config{}
	}
	log := cfg.Logger
	if log == nil {
		log = s.Logger()
	}
	return &Registry{
		s:        s,
		funcs:    make(map[string]*Function),
		category: cfg.Category,
		log:      log.Named("addin"),
	}
}

// Session returns the session calls run in.
func (r *Registry) Session() *host.Session { return r.s }

// Register adds a function. Names must be unique and the argument count
// must fit the host's layout.
func (r *Registry) Register(desc metadata.FunctionDescription, h Handler) error {
	name := desc.Name()
	if name == "" {
		return errors.Registration("<unnamed>", errors.InvalidInput(errors.PhaseRegister, "function name cannot be empty"))
	}
	if h == nil {
		return errors.Registration(name, errors.InvalidInput(errors.PhaseRegister, "handler cannot be nil"))
	}
	abi := r.s.Version()
	if n, limit := desc.NumberOfArguments(), metadata.MaxArguments(abi); n > limit {
		return errors.Registration(name, errors.ABILimit(errors.PhaseRegister, "argument count", uint32(n), uint32(limit), abi.String()))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.funcs[name]; dup {
		return errors.Registration(name, errors.InvalidInput(errors.PhaseRegister, "function already registered"))
	}
	r.funcs[name] = &Function{Desc: desc, Handler: h}
	r.order = append(r.order, name)
	return nil
}

// Lookup returns a registered function.
func (r *Registry) Lookup(name string) (*Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.funcs[name]
	return f, ok
}

// Functions returns the descriptions in registration order.
func (r *Registry) Functions() []metadata.FunctionDescription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]metadata.FunctionDescription, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.funcs[name].Desc)
	}
	return out
}

// RegisterWith announces every function to the host with its type text.
func (r *Registry) RegisterWith(reg host.Registrar) error {
	abi := r.s.Version()
	for _, d := range r.Functions() {
		text, err := metadata.TypeText(d, abi)
		if err != nil {
			return errors.Registration(d.Name(), err)
		}
		help := make([]string, d.NumberOfArguments())
		for i, a := range d.Arguments() {
			help[i] = a.Description()
		}
		if err := reg.Register(host.Registration{
			Name:          d.Name(),
			TypeText:      text,
			ArgumentNames: d.ArgumentNames(),
			ArgumentHelp:  help,
			Help:          d.Help(),
			Category:      r.category,
		}); err != nil {
			return err
		}
		r.log.Debug("registered", zap.String("name", d.Name()), zap.String("type_text", text))
	}
	return nil
}

// Invoke runs one host call of name with the host's argument records and
// returns the result record. Failures of any kind return an error constant:
// #NAME? for unknown functions and #VALUE! otherwise. Memory allocated
// during the call is released before Invoke returns, except the result.
func (r *Registry) Invoke(name string, argPtrs ...uint32) uint32 {
	s := r.s
	s.BeginCall()
	defer s.EndCall()

	f, ok := r.Lookup(name)
	if !ok {
		r.log.Error("call to unknown function", zap.String("name", name))
		return oper.Error(s, xlcall.ErrName).Ptr()
	}

	args := newArgs(s, f.Desc, argPtrs)
	res, err := r.call(f, args)
	if err == nil && res == nil {
		err = errors.New(errors.PhaseCall, errors.KindInvalidInput).Detail("handler returned no value").Build()
	}
	if err != nil {
		r.log.Error("function failed", zap.String("name", name), zap.Error(err))
		return oper.Error(s, xlcall.ErrValue).Ptr()
	}

	ptr, err := res.Return()
	if err != nil {
		r.log.Error("return value rejected", zap.String("name", name), zap.Error(err))
		return oper.Error(s, xlcall.ErrValue).Ptr()
	}
	return ptr
}

func (r *Registry) call(f *Function, args *Args) (res *oper.Oper, err error) {
	defer func() {
		if p := recover(); p != nil {
			res = nil
			err = errors.New(errors.PhaseCall, errors.KindHostFailure).
				Identifier(f.Desc.Name()).
				Detail("handler panic: %s", fmt.Sprint(p)).
				Build()
		}
	}()
	return f.Handler(args)
}

// AutoFree is the host's callback for a result Invoke returned.
func (r *Registry) AutoFree(ptr uint32) {
	r.s.AutoFree(ptr)
}
