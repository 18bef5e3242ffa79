package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/davidclayton/xlw/addin"
	"github.com/davidclayton/xlw/cellmatrix"
	"github.com/davidclayton/xlw/host"
	"github.com/davidclayton/xlw/oper"
	"github.com/davidclayton/xlw/simhost"
	"github.com/davidclayton/xlw/xlcall"
	"github.com/davidclayton/xlw/xlref"
)

// simulator is one simulated host with the demo add-in loaded.
type simulator struct {
	abi     xlcall.ABI
	host    *simhost.Host
	session *host.Session
	reg     *addin.Registry
}

// openSession binds the add-in to the host. The process has one host, so
// this is the process-wide session.
var openSession = host.Init

type callResult struct {
	kind  string
	cells *cellmatrix.CellMatrix
}

func newSimulator(ctx context.Context, abi xlcall.ABI, book string, log *zap.Logger) (*simulator, error) {
	h, err := simhost.New(ctx, &simhost.Config{ABI: abi, Logger: log})
	if err != nil {
		return nil, fmt.Errorf("start host: %w", err)
	}
	if book != "" {
		f, err := os.Open(book)
		if err != nil {
			_ = h.Close(ctx)
			return nil, fmt.Errorf("open workbook: %w", err)
		}
		err = h.LoadXLSX(f)
		_ = f.Close()
		if err != nil {
			_ = h.Close(ctx)
			return nil, err
		}
	}

	s := openSession(h, &host.Config{Logger: log})
	reg := addin.NewRegistry(s, &addin.Config{Category: "xlw demo"})
	if err := registerDemo(reg); err != nil {
		s.Close()
		_ = h.Close(ctx)
		return nil, err
	}
	if err := reg.RegisterWith(h); err != nil {
		s.Close()
		_ = h.Close(ctx)
		return nil, err
	}
	return &simulator{abi: abi, host: h, session: s, reg: reg}, nil
}

func (sim *simulator) Close(ctx context.Context) {
	sim.session.Close()
	_ = sim.host.Close(ctx)
}

// call builds argument records the way the host would, invokes name and
// reads the result back as a cell matrix. Every record is freed before
// call returns.
func (sim *simulator) call(name string, raw []string) (callResult, error) {
	s := sim.session
	ptrs := make([]uint32, 0, len(raw))
	defer func() {
		for _, p := range ptrs {
			s.AutoFree(p)
		}
	}()
	for _, text := range raw {
		o, err := parseArg(s, text)
		if err != nil {
			return callResult{}, err
		}
		p, err := o.Return()
		if err != nil {
			_ = o.Release()
			return callResult{}, err
		}
		ptrs = append(ptrs, p)
	}

	ptr := sim.reg.Invoke(name, ptrs...)
	defer sim.reg.AutoFree(ptr)

	res := oper.Adopt(s, ptr)
	kind := res.String()
	s.BeginCall()
	defer s.EndCall()
	cells, err := res.AsCellMatrix("result")
	if err != nil {
		return callResult{}, err
	}
	return callResult{kind: kind, cells: cells}, nil
}

// parseArg reads one command-line argument: empty means missing, then
// error names, numbers, booleans and R1C1 references are tried before
// falling back to text. Double quotes force text.
func parseArg(s *host.Session, text string) (*oper.Oper, error) {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return oper.NewMissing(s)
	case len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"':
		return oper.NewString(s, text[1:len(text)-1])
	}
	if code, ok := xlcall.ParseErrorCode(text); ok {
		return oper.NewErrorValue(s, code)
	}
	if v, err := strconv.ParseFloat(text, 64); err == nil {
		return oper.NewDouble(s, v)
	}
	if strings.EqualFold(text, "TRUE") || strings.EqualFold(text, "FALSE") {
		return oper.NewBool(s, strings.EqualFold(text, "TRUE"))
	}
	if r, err := xlref.Parse(xlref.CurrentSheet, text); err == nil {
		return oper.NewRef(s, r)
	}
	return oper.NewString(s, text)
}
