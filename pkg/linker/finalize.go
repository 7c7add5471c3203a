package linker

import (
	"debug/elf"
	"strings"

	"golang.org/x/exp/slices"

	"weld/pkg/stringpool"
	"weld/pkg/utils"
)

// Finalize computes the final value of every symbol once layout addresses
// are known, aligns OFF to the address size and records it as the file
// offset of the symbol table, adds the
// surviving names to the output pool, and returns the file offset past the
// table. Symbols whose defining input section was discarded are dropped
// here and never emitted.
func (st *SymbolTable) Finalize(off uint64, pool *stringpool.Pool) uint64 {
	utils.Assert(st.class != ClassNone)

	off = utils.AlignTo(off, uint64(st.class.AddrSize()))
	st.offset = off

	symSize := uint64(SymSize(st.class))

	// Default-version aliasing can index one record under two keys;
	// emit each record once. The hash order is no ABI, so fix an order
	// by name and version instead.
	seen := make(map[*Symbol]bool, st.table.Count())
	records := make([]*Symbol, 0, st.table.Count())
	st.table.Iter(func(_ SymbolKey, sym *Symbol) bool {
		if !seen[sym] {
			seen[sym] = true
			records = append(records, sym)
		}
		return false
	})
	slices.SortFunc(records, func(a, b *Symbol) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.Version, b.Version)
	})

	st.final = st.final[:0]
	for _, sym := range records {
		value, keep := st.finalValue(sym)
		if !keep {
			continue
		}
		sym.Value = value
		pool.Add(sym.Name)
		st.final = append(st.final, sym)
		off += symSize
	}
	st.outputCount = len(st.final)

	// With the winners fixed we can reliably note which symbols carry
	// warning sections.
	st.warnings.NoteWarnings(st)

	return off
}

// finalValue computes a symbol's output st_value. keep is false when the
// symbol's defining input section was discarded.
func (st *SymbolTable) finalValue(sym *Symbol) (value uint64, keep bool) {
	switch sym.Source {
	case FromObject:
		shndx := sym.Shndx

		if shndx >= uint16(elf.SHN_LORESERVE) && shndx != uint16(elf.SHN_ABS) {
			st.diag.Fatalf("%s: unsupported symbol section 0x%x",
				sym.Name, shndx)
		}

		switch {
		case sym.Object.IsDynamic():
			// Symbols from shared objects are emitted as undefined
			// references for now; a dynamic symbol table writer
			// would branch here.
			return 0, true
		case shndx == uint16(elf.SHN_UNDEF):
			return 0, true
		case shndx == uint16(elf.SHN_ABS):
			return sym.Value, true
		default:
			os, secoff, ok := sym.Object.OutputSection(shndx)
			if !ok {
				// The defining section was discarded.
				return 0, false
			}
			return sym.Value + os.Address() + secoff, true
		}

	case InOutputData:
		od := sym.Data
		value = sym.Value + od.Address()
		if sym.OffsetIsFromEnd {
			value += od.DataSize()
		}
		return value, true

	case InOutputSegment:
		seg := sym.Segment
		value = sym.Value + seg.VAddr
		switch sym.OffsetBase {
		case SegmentStart:
		case SegmentEnd:
			value += seg.MemSz
		case SegmentBss:
			value += seg.FileSz
		}
		return value, true

	default:
		return sym.Value, true
	}
}

// outShndx computes a symbol's output st_shndx. Finalize has already
// dropped discarded-section symbols and rejected reserved indexes.
func (st *SymbolTable) outShndx(sym *Symbol) uint16 {
	switch sym.Source {
	case FromObject:
		if sym.Object.IsDynamic() {
			return uint16(elf.SHN_UNDEF)
		}
		shndx := sym.Shndx
		if shndx == uint16(elf.SHN_UNDEF) || shndx == uint16(elf.SHN_ABS) {
			return shndx
		}
		os, _, ok := sym.Object.OutputSection(shndx)
		utils.Assert(ok)
		return os.OutShndx()

	case InOutputData:
		return sym.Data.OutShndx()

	default:
		// Segment-relative and constant symbols are absolute.
		return uint16(elf.SHN_ABS)
	}
}

// WriteGlobals emits the finalized records as ELF symbols at the offset
// recorded by Finalize, in the same order.
func (st *SymbolTable) WriteGlobals(target *Target, sympool *stringpool.Pool,
	of *OutputFile) {

	utils.Assert(target.Class == st.class)

	symSize := SymSize(st.class)
	length := uint64(st.outputCount * symSize)
	view := of.GetOutputView(st.offset, length)

	ps := view
	for _, sym := range st.final {
		stName, ok := sympool.GetOffset(sym.Name)
		utils.Assert(ok)

		esym := Sym{
			Name:  stName,
			Info:  StInfo(sym.Binding, sym.Type),
			Other: StOther(sym.Visibility, sym.Nonvis),
			Shndx: st.outShndx(sym),
			Value: sym.Value,
			Size:  sym.SymSize,
		}
		esym.Put(ps, st.class, target.ByteOrder)
		ps = ps[symSize:]
	}

	of.WriteOutputView(st.offset, length, view)
}

// Offset is the symbol table's file offset as recorded by Finalize.
func (st *SymbolTable) Offset() uint64 {
	return st.offset
}

// OutputCount is the number of records Finalize kept.
func (st *SymbolTable) OutputCount() int {
	return st.outputCount
}
