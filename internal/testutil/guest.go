package testutil

// GuestHostModule and GuestHostImport name the single function the test
// guest imports from the host.
const (
	GuestHostModule = "frontrow_host"
	GuestHostImport = "multiply"
)

// GuestPackedGarbage is what the test guest's "garbage" export returns:
// four zero bytes at address 8.
const GuestPackedGarbage = uint64(8)<<32 | 4

// GuestPackedOutOfBounds is what the "oob" export returns: a buffer past the
// guest's single memory page.
const GuestPackedOutOfBounds = uint64(0x20000)<<32 | 16

// GuestModule returns a small hand-assembled WebAssembly module that follows
// the allocation convention. It imports frontrow_host.multiply (i64)->i64
// and exports:
//
//	memory                one page
//	allocate(i32) i32     bump allocator starting at 1024, never frees
//	deallocate(i32, i32)  no-op
//	echo(i64) i64         returns its argument buffer
//	null(i64) i64         returns 0
//	trap(i64) i64         executes unreachable
//	relay(i64) i64        calls the imported multiply and returns its reply
//	garbage(i64) i64      returns GuestPackedGarbage
//	oob(i64) i64          returns GuestPackedOutOfBounds
func GuestModule() []byte {
	const (
		i32     = 0x7f
		i64     = 0x7e
		funcTyp = 0x60
		end     = 0x0b
	)

	types := vec(
		[]byte{funcTyp, 1, i32, 1, i32}, // 0: allocate
		[]byte{funcTyp, 2, i32, i32, 0}, // 1: deallocate
		[]byte{funcTyp, 1, i64, 1, i64}, // 2: packed -> packed
	)

	imports := vec(cat(name(GuestHostModule), name(GuestHostImport), []byte{0x00, 2}))

	// Function index 0 is the import.
	funcs := vec([]byte{0}, []byte{1}, []byte{2}, []byte{2}, []byte{2}, []byte{2}, []byte{2}, []byte{2})

	memory := vec([]byte{0x00, 1})

	globals := vec(cat([]byte{i32, 0x01, 0x41}, sleb(1024), []byte{end}))

	exports := vec(
		cat(name("memory"), []byte{0x02, 0}),
		cat(name("allocate"), []byte{0x00, 1}),
		cat(name("deallocate"), []byte{0x00, 2}),
		cat(name("echo"), []byte{0x00, 3}),
		cat(name("null"), []byte{0x00, 4}),
		cat(name("trap"), []byte{0x00, 5}),
		cat(name("relay"), []byte{0x00, 6}),
		cat(name("garbage"), []byte{0x00, 7}),
		cat(name("oob"), []byte{0x00, 8}),
	)

	code := vec(
		// allocate: local1 = heap; heap += size; return local1
		body([]byte{1, 1, i32}, 0x23, 0, 0x21, 1, 0x23, 0, 0x20, 0, 0x6a, 0x24, 0, 0x20, 1, end),
		body([]byte{0}, end),
		body([]byte{0}, 0x20, 0, end),
		body([]byte{0}, 0x42, 0, end),
		body([]byte{0}, 0x00, end),
		body([]byte{0}, 0x20, 0, 0x10, 0, end),
		body([]byte{0}, cat([]byte{0x42}, sleb(int64(GuestPackedGarbage)), []byte{end})...),
		body([]byte{0}, cat([]byte{0x42}, sleb(int64(GuestPackedOutOfBounds)), []byte{end})...),
	)

	return cat(
		[]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00},
		section(1, types),
		section(2, imports),
		section(3, funcs),
		section(5, memory),
		section(6, globals),
		section(7, exports),
		section(10, code),
	)
}

func section(id byte, payload []byte) []byte {
	return cat([]byte{id}, uleb(uint64(len(payload))), payload)
}

func vec(items ...[]byte) []byte {
	return cat(append([][]byte{uleb(uint64(len(items)))}, items...)...)
}

func name(s string) []byte {
	return cat(uleb(uint64(len(s))), []byte(s))
}

func body(locals []byte, instrs ...byte) []byte {
	fn := cat(locals, instrs)
	return cat(uleb(uint64(len(fn))), fn)
}

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func uleb(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func sleb(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}
