package linker

import (
	"debug/elf"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefineAsConstant(t *testing.T) {
	diag, _ := testDiag(t)
	st := NewSymbolTable(diag)

	sym := st.DefineAsConstant(testTarget64, "__abi_tag", 42, 4,
		elf.STT_OBJECT, elf.STB_GLOBAL, elf.STV_DEFAULT, 0, false)
	require.NotNil(t, sym)
	assert.Equal(t, Constant, sym.Source)
	assert.Equal(t, uint64(42), sym.Value)
	assert.True(t, sym.IsDef)
	assert.Same(t, sym, st.Lookup("__abi_tag", ""))
}

func TestDefineOnlyIfRef(t *testing.T) {
	diag, _ := testDiag(t)
	st := NewSymbolTable(diag)

	// No reference yet: nothing is defined.
	sym := st.DefineAsConstant(testTarget64, "_etext", 0x99, 0,
		elf.STT_NOTYPE, elf.STB_GLOBAL, elf.STV_DEFAULT, 0, true)
	assert.Nil(t, sym)
	assert.Nil(t, st.Lookup("_etext", ""))

	obj := newTestObject("a.o", testTarget64)
	ingest(st, obj, []rawSym{
		{name: "_etext", bind: elf.STB_GLOBAL, shndx: uint16(elf.SHN_UNDEF)},
	})

	sym = st.DefineAsConstant(testTarget64, "_etext", 0x99, 0,
		elf.STT_NOTYPE, elf.STB_GLOBAL, elf.STV_DEFAULT, 0, true)
	require.NotNil(t, sym)
	assert.Equal(t, Constant, sym.Source)
	assert.Equal(t, uint64(0x99), sym.Value)

	// The reference's record was reused, so relocations against the old
	// pointer see the definition.
	assert.Same(t, sym, st.Lookup("_etext", ""))
}

func TestDefineOverridesUndefAndCommon(t *testing.T) {
	diag, _ := testDiag(t)
	st := NewSymbolTable(diag)

	obj := newTestObject("a.o", testTarget64)
	ingest(st, obj, []rawSym{
		{name: "u", bind: elf.STB_GLOBAL, shndx: uint16(elf.SHN_UNDEF)},
		{name: "c", bind: elf.STB_GLOBAL, shndx: uint16(elf.SHN_COMMON),
			value: 8, size: 4},
	})

	u := st.DefineAsConstant(testTarget64, "u", 1, 0,
		elf.STT_NOTYPE, elf.STB_GLOBAL, elf.STV_DEFAULT, 0, false)
	require.NotNil(t, u)
	c := st.DefineAsConstant(testTarget64, "c", 2, 0,
		elf.STT_NOTYPE, elf.STB_GLOBAL, elf.STV_DEFAULT, 0, false)
	require.NotNil(t, c)
	assert.False(t, diag.Failed())
}

func TestDefineCollidesWithRealDefinition(t *testing.T) {
	diag, logged := testDiag(t)
	st := NewSymbolTable(diag)

	obj := newTestObject("a.o", testTarget64)
	ingest(st, obj, []rawSym{
		{name: "main", bind: elf.STB_GLOBAL, shndx: 1, value: 0x10},
	})

	sym := st.DefineAsConstant(testTarget64, "main", 0, 0,
		elf.STT_NOTYPE, elf.STB_GLOBAL, elf.STV_DEFAULT, 0, false)
	assert.Nil(t, sym)
	assert.True(t, diag.Failed())
	assert.Contains(t, logged.String(), "multiple definition of main")

	// The table still holds the real definition.
	kept := st.Lookup("main", "")
	require.NotNil(t, kept)
	assert.Equal(t, uint64(0x10), kept.Value)
}

func TestDefineOverridesSharedDefinition(t *testing.T) {
	diag, _ := testDiag(t)
	st := NewSymbolTable(diag)

	dyn := newTestObject("libc.so", testTarget64)
	dyn.dynamic = true
	raw, names, count := encodeSyms(testTarget64, []rawSym{
		{name: "environ", bind: elf.STB_GLOBAL, shndx: 1, value: 0x10},
	})
	st.AddFromDynobj(dyn, raw, count, names, nil, nil)

	sym := st.DefineAsConstant(testTarget64, "environ", 0x20, 8,
		elf.STT_OBJECT, elf.STB_GLOBAL, elf.STV_DEFAULT, 0, false)
	require.NotNil(t, sym)
	assert.Equal(t, Constant, sym.Source)
	assert.False(t, diag.Failed())
}

func TestDefineSectionSymbolsFallsBackToConstant(t *testing.T) {
	diag, _ := testDiag(t)
	st := NewSymbolTable(diag)

	layout := &Layout{
		Sections: []*OutputSection{
			{Name: ".data", Addr: 0x2000, Size: 0x10, Shndx: 2},
		},
	}

	st.DefineSectionSymbols(layout, testTarget64, []DefineSymbolInSection{
		{Name: "__data_start", Section: ".data",
			Type: elf.STT_NOTYPE, Binding: elf.STB_GLOBAL},
		{Name: "__fini_array_start", Section: ".fini_array",
			Type: elf.STT_NOTYPE, Binding: elf.STB_GLOBAL},
	})

	inData := st.Lookup("__data_start", "")
	require.NotNil(t, inData)
	assert.Equal(t, InOutputData, inData.Source)

	fallback := st.Lookup("__fini_array_start", "")
	require.NotNil(t, fallback)
	assert.Equal(t, Constant, fallback.Source)
	assert.Equal(t, uint64(0), fallback.Value)
}

func TestDefineSegmentSymbols(t *testing.T) {
	diag, _ := testDiag(t)
	st := NewSymbolTable(diag)

	layout := &Layout{
		Segments: []*OutputSegment{
			{Type: elf.PT_LOAD, Flags: elf.PF_R | elf.PF_X,
				VAddr: 0x400000, MemSz: 0x1234, FileSz: 0x1234},
		},
	}

	st.DefineSegmentSymbols(layout, testTarget64, []DefineSymbolInSegment{
		{Name: "__etext", SegmentType: elf.PT_LOAD, SegmentFlagsSet: elf.PF_X,
			Type: elf.STT_NOTYPE, Binding: elf.STB_GLOBAL,
			OffsetBase: SegmentEnd},
		{Name: "__tls_end", SegmentType: elf.PT_TLS,
			Type: elf.STT_NOTYPE, Binding: elf.STB_GLOBAL,
			OffsetBase: SegmentEnd},
	})

	etext := st.Lookup("__etext", "")
	require.NotNil(t, etext)
	assert.Equal(t, InOutputSegment, etext.Source)
	assert.Equal(t, SegmentEnd, etext.OffsetBase)

	// No PT_TLS segment in this layout: constant 0.
	tls := st.Lookup("__tls_end", "")
	require.NotNil(t, tls)
	assert.Equal(t, Constant, tls.Source)
}

func TestFindOutputSegmentFlagMatch(t *testing.T) {
	layout := &Layout{
		Segments: []*OutputSegment{
			{Type: elf.PT_LOAD, Flags: elf.PF_R | elf.PF_X},
			{Type: elf.PT_LOAD, Flags: elf.PF_R | elf.PF_W},
		},
	}

	seg := layout.FindOutputSegment(elf.PT_LOAD, elf.PF_W, elf.PF_X)
	require.NotNil(t, seg)
	assert.Equal(t, elf.PF_R|elf.PF_W, seg.Flags)
	assert.Nil(t, layout.FindOutputSegment(elf.PT_DYNAMIC, 0, 0))
}
