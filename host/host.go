// Package host threads the spreadsheet process's services through the
// marshalling core.
//
// A Host is the external process: its record layout version, its address
// space and allocator, and the two C-API calls the core depends on (freeing
// host-owned auxiliary memory and coercing a value to another type). A
// Session wraps one Host for the lifetime of an add-in: it detects the ABI
// once, scopes allocations to a single host call and keeps the persistent
// error constants.
package host

import (
	xlw "github.com/davidclayton/xlw"
	"github.com/davidclayton/xlw/xlcall"
)

// Host is the spreadsheet process as seen by an add-in.
type Host interface {
	xlw.Allocator

	// Version reports which record layout the process uses.
	Version() (xlcall.ABI, error)
	Memory() xlw.Memory
	// FreeAux releases auxiliary memory the host allocated for a record
	// flagged XLFree. Records the host does not know are ignored.
	FreeAux(record uint32) error
	// Coerce converts the record at src into target, writing the result
	// into the record at dst. Payloads it allocates are flagged XLFree.
	Coerce(src uint32, target xlcall.Type, dst uint32) xlcall.Ret
}

// Registration describes one worksheet function handed to the host.
type Registration struct {
	Name          string
	TypeText      string
	ArgumentNames []string
	ArgumentHelp  []string
	Help          string
	Category      string
}

// Registrar is implemented by hosts that accept function registrations.
type Registrar interface {
	Register(reg Registration) error
}
