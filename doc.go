// Package xlw marshals values between Go and a spreadsheet host's native
// variant records.
//
// The host hands add-in functions raw pointers to fixed-size tagged-union
// records ("opers"). This library wraps those pointers, manages the
// auxiliary memory behind strings, arrays and reference lists, and converts
// to and from Go scalars, strings, vectors, matrices and range references.
//
// # Architecture Overview
//
//	xlw/                 Root package with the Memory and Allocator interfaces
//	├── xlcall/          Host C-API vocabulary: type tags, error codes, return codes
//	├── internal/record/ Legacy and modern physical record layouts
//	├── host/            Host service interface and the per-process Session
//	├── oper/            Value wrapper, ABI dispatch, conversions
//	├── xlref/           Range references
//	├── cellmatrix/      Cell matrices and numeric matrices
//	├── metadata/        Function and argument descriptions for registration
//	├── addin/           Host call boundary: registry, invoke, auto-free
//	├── simhost/         In-process host simulator backed by wazero memory
//	└── errors/          Structured error types
//
// # Quick Start
//
//	h, err := simhost.New(ctx, &simhost.Config{ABI: xlcall.ABIModern})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer h.Close(ctx)
//
//	s := host.NewSession(h, nil)
//	s.BeginCall()
//	defer s.EndCall()
//
//	o, err := oper.NewDouble(s, 3.5)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	v, err := o.AsDouble("x") // 3.5
//
// # ABI Versions
//
// Two record layouts exist. The legacy layout stores array dimensions in
// 16-bit fields and strings as length-prefixed code-page bytes; the modern
// layout uses 32-bit dimensions and UTF-16 strings. A Session detects the
// active layout once and every Oper created through it dispatches to the
// matching implementation.
//
// # Memory Model
//
// Records and their payloads live in host memory. Memory allocated through a
// Session is scoped to the current host call and released by EndCall.
// Values handed back to the host are retained until the host calls back
// through the add-in's auto-free entry point.
//
// # Thread Safety
//
// The host calls add-in functions one at a time on a single thread. Oper is
// not safe for concurrent use; Session only guards its one-time
// initialisation.
package xlw
