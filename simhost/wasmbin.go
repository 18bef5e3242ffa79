package simhost

import "bytes"

const (
	pageSize = 65536

	sectionMemory = 5
	sectionExport = 7
	externMemory  = 2
)

// memoryModule returns a wasm binary that defines and exports a single
// linear memory named "memory" with the given page limits.
func memoryModule(minPages, maxPages uint32) []byte {
	var buf bytes.Buffer
	buf.Write([]byte{0x00, 'a', 's', 'm'})
	buf.Write([]byte{0x01, 0x00, 0x00, 0x00})

	var limits bytes.Buffer
	writeLEB128u(&limits, 1) // one memory
	if maxPages > 0 {
		limits.WriteByte(0x01)
		writeLEB128u(&limits, minPages)
		writeLEB128u(&limits, maxPages)
	} else {
		limits.WriteByte(0x00)
		writeLEB128u(&limits, minPages)
	}
	writeSection(&buf, sectionMemory, limits.Bytes())

	var exports bytes.Buffer
	writeLEB128u(&exports, 1)
	writeLEB128u(&exports, uint32(len("memory")))
	exports.WriteString("memory")
	exports.WriteByte(externMemory)
	writeLEB128u(&exports, 0)
	writeSection(&buf, sectionExport, exports.Bytes())

	return buf.Bytes()
}

func writeSection(w *bytes.Buffer, id byte, content []byte) {
	w.WriteByte(id)
	writeLEB128u(w, uint32(len(content)))
	w.Write(content)
}

// writeLEB128u writes an unsigned LEB128 value
func writeLEB128u(w *bytes.Buffer, v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		w.WriteByte(b)
		if v == 0 {
			break
		}
	}
}
