package linker

import (
	"debug/elf"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weld/pkg/stringpool"
)

func TestFinalizeFromObjectSection(t *testing.T) {
	diag, _ := testDiag(t)
	st := NewSymbolTable(diag)

	obj := newTestObject("a.o", testTarget64)
	text := &OutputSection{Name: ".text", Addr: 0x401000, Shndx: 1}
	obj.outputs[1] = text
	obj.offsets[1] = 0x100

	ingest(st, obj, []rawSym{
		{name: "f", bind: elf.STB_GLOBAL, typ: elf.STT_FUNC,
			shndx: 1, value: 0x10, size: 0x20},
		{name: "abs", bind: elf.STB_GLOBAL, shndx: uint16(elf.SHN_ABS),
			value: 0x1234},
		{name: "undef", bind: elf.STB_GLOBAL, shndx: uint16(elf.SHN_UNDEF)},
	})

	pool := stringpool.NewPool()
	end := st.Finalize(0x40, pool)

	assert.Equal(t, uint64(0x40), st.Offset())
	assert.Equal(t, 3, st.OutputCount())
	assert.Equal(t, uint64(0x40+3*Sym64Size), end)

	assert.Equal(t, uint64(0x401110), st.Lookup("f", "").Value)
	assert.Equal(t, uint64(0x1234), st.Lookup("abs", "").Value)
	assert.Equal(t, uint64(0), st.Lookup("undef", "").Value)

	for _, name := range []string{"f", "abs", "undef"} {
		_, ok := pool.GetOffset(name)
		assert.True(t, ok, name)
	}
}

func TestFinalizeSkipsDiscardedSections(t *testing.T) {
	diag, _ := testDiag(t)
	st := NewSymbolTable(diag)

	obj := newTestObject("a.o", testTarget64)
	// Section 5 has no output mapping: its symbols vanish.
	ingest(st, obj, []rawSym{
		{name: "gone", bind: elf.STB_GLOBAL, shndx: 5, value: 0x10},
	})

	pool := stringpool.NewPool()
	end := st.Finalize(0, pool)

	assert.Equal(t, 0, st.OutputCount())
	assert.Equal(t, uint64(0), end)
	_, ok := pool.GetOffset("gone")
	assert.False(t, ok)
}

func TestFinalizeAlignsOffset(t *testing.T) {
	diag, _ := testDiag(t)
	st := NewSymbolTable(diag)

	obj := newTestObject("a.o", testTarget64)
	ingest(st, obj, []rawSym{
		{name: "u", bind: elf.STB_GLOBAL, shndx: uint16(elf.SHN_UNDEF)},
	})

	st.Finalize(0x41, stringpool.NewPool())
	assert.Equal(t, uint64(0x48), st.Offset())
}

func TestFinalizeSegmentEnd(t *testing.T) {
	diag, _ := testDiag(t)
	st := NewSymbolTable(diag)

	seg := &OutputSegment{
		Type:   elf.PT_LOAD,
		Flags:  elf.PF_R | elf.PF_W,
		VAddr:  0x400000,
		MemSz:  0x1234,
		FileSz: 0x1000,
	}

	sym := st.DefineInOutputSegment(testTarget64, "__etext", seg, 0, 0,
		elf.STT_NOTYPE, elf.STB_GLOBAL, elf.STV_DEFAULT, 0, SegmentEnd, false)
	require.NotNil(t, sym)

	pool := stringpool.NewPool()
	st.Finalize(0, pool)
	assert.Equal(t, uint64(0x401234), sym.Value)

	of := NewOutputFile("", uint64(Sym64Size))
	st.WriteGlobals(testTarget64, pool, of)

	out := ReadSym(of.Buf, Class64, testTarget64.ByteOrder)
	assert.Equal(t, uint64(0x401234), out.Value)
	assert.Equal(t, uint16(elf.SHN_ABS), out.Shndx)
}

func TestFinalizeSegmentBases(t *testing.T) {
	diag, _ := testDiag(t)
	st := NewSymbolTable(diag)

	seg := &OutputSegment{
		Type: elf.PT_LOAD, VAddr: 0x10000, MemSz: 0x300, FileSz: 0x200,
	}

	start := st.DefineInOutputSegment(testTarget64, "start", seg, 4, 0,
		elf.STT_NOTYPE, elf.STB_GLOBAL, elf.STV_DEFAULT, 0, SegmentStart, false)
	bss := st.DefineInOutputSegment(testTarget64, "bss", seg, 0, 0,
		elf.STT_NOTYPE, elf.STB_GLOBAL, elf.STV_DEFAULT, 0, SegmentBss, false)

	st.Finalize(0, stringpool.NewPool())
	assert.Equal(t, uint64(0x10004), start.Value)
	assert.Equal(t, uint64(0x10200), bss.Value)
}

func TestFinalizeOutputData(t *testing.T) {
	diag, _ := testDiag(t)
	st := NewSymbolTable(diag)

	data := &OutputSection{Name: ".data", Addr: 0x5000, Size: 0x80, Shndx: 3}

	begin := st.DefineInOutputData(testTarget64, "__data_start", data, 0, 0,
		elf.STT_NOTYPE, elf.STB_GLOBAL, elf.STV_DEFAULT, 0, false, false)
	end := st.DefineInOutputData(testTarget64, "__data_end", data, 0, 0,
		elf.STT_NOTYPE, elf.STB_GLOBAL, elf.STV_DEFAULT, 0, true, false)

	pool := stringpool.NewPool()
	st.Finalize(0, pool)
	assert.Equal(t, uint64(0x5000), begin.Value)
	assert.Equal(t, uint64(0x5080), end.Value)

	of := NewOutputFile("", uint64(2*Sym64Size))
	st.WriteGlobals(testTarget64, pool, of)

	// Finalize order is sorted by name: __data_end first.
	first := ReadSym(of.Buf, Class64, testTarget64.ByteOrder)
	assert.Equal(t, uint64(0x5080), first.Value)
	assert.Equal(t, uint16(3), first.Shndx)
}

func TestFinalizeEmitsDynamicAsUndefined(t *testing.T) {
	diag, _ := testDiag(t)
	st := NewSymbolTable(diag)

	dyn := newTestObject("libc.so", testTarget64)
	dyn.dynamic = true

	raw, names, count := encodeSyms(testTarget64, []rawSym{
		{name: "dynf", bind: elf.STB_GLOBAL, shndx: 1, value: 0x99},
	})
	st.AddFromDynobj(dyn, raw, count, names, nil, nil)

	pool := stringpool.NewPool()
	st.Finalize(0, pool)

	sym := st.Lookup("dynf", "")
	require.NotNil(t, sym)
	assert.Equal(t, uint64(0), sym.Value)

	of := NewOutputFile("", uint64(Sym64Size))
	st.WriteGlobals(testTarget64, pool, of)
	out := ReadSym(of.Buf, Class64, testTarget64.ByteOrder)
	assert.Equal(t, uint16(elf.SHN_UNDEF), out.Shndx)
	assert.Equal(t, uint64(0), out.Value)
}

func TestFinalizeReservedSectionIsFatal(t *testing.T) {
	diag, _ := testDiag(t)
	st := NewSymbolTable(diag)

	obj := newTestObject("a.o", testTarget64)
	raw, names, count := encodeSyms(testTarget64, []rawSym{
		{name: "weird", bind: elf.STB_GLOBAL, shndx: uint16(elf.SHN_LOPROC)},
	})
	ptrs := make([]*Symbol, count)
	st.AddFromRelobj(obj, raw, count, names, ptrs)

	assert.Panics(t, func() {
		st.Finalize(0, stringpool.NewPool())
	})
	_ = diag
}

func TestWriteGlobals32BigEndian(t *testing.T) {
	diag, _ := testDiag(t)
	st := NewSymbolTable(diag)

	obj := newTestObject("a.o", testTarget32be)
	text := &OutputSection{Name: ".text", Addr: 0x1000, Shndx: 2}
	obj.outputs[1] = text

	ingest(st, obj, []rawSym{
		{name: "f", bind: elf.STB_GLOBAL, typ: elf.STT_FUNC,
			shndx: 1, value: 0x10, size: 8},
	})

	pool := stringpool.NewPool()
	end := st.Finalize(0, pool)
	assert.Equal(t, uint64(Sym32Size), end)

	of := NewOutputFile("", end)
	st.WriteGlobals(testTarget32be, pool, of)

	out := ReadSym(of.Buf, Class32, testTarget32be.ByteOrder)
	assert.Equal(t, uint64(0x1010), out.Value)
	assert.Equal(t, uint16(2), out.Shndx)
	assert.Equal(t, StInfo(elf.STB_GLOBAL, elf.STT_FUNC), out.Info)

	nameOff, ok := pool.GetOffset("f")
	require.True(t, ok)
	assert.Equal(t, nameOff, out.Name)
}

func TestFinalizeAliasedRecordEmittedOnce(t *testing.T) {
	diag, _ := testDiag(t)
	st := NewSymbolTable(diag)

	obj := newTestObject("a.o", testTarget64)
	text := &OutputSection{Name: ".text", Addr: 0x1000, Shndx: 1}
	obj.outputs[1] = text

	ingest(st, obj, []rawSym{
		{name: "foo@@V2", bind: elf.STB_GLOBAL, shndx: 1, value: 0x10},
	})

	st.Finalize(0, stringpool.NewPool())
	assert.Equal(t, 1, st.OutputCount())
}
