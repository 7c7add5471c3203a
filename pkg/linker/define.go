package linker

import (
	"debug/elf"
)

// defineSpecialSymbol creates or claims the record a linker-defined symbol
// will be written into. With onlyIfRef, it succeeds only when NAME is
// already an undefined reference. A nil return means the definition was
// refused: either there was no reference, the target's hook declined, or
// the name collides with a real non-dynamic definition or an earlier
// linker-defined one (both reported as a multiple definition).
func (st *SymbolTable) defineSpecialSymbol(target *Target, name string,
	onlyIfRef bool) *Symbol {

	if st.class == ClassNone {
		st.class = target.Class
		st.byteOrder = target.ByteOrder
	}

	var oldsym *Symbol

	if onlyIfRef {
		oldsym = st.Lookup(name, "")
		if oldsym == nil || !oldsym.IsUndefined() {
			return nil
		}
	} else {
		_, nameKey := st.namePool.Add(name)
		key := SymbolKey{nameKey, 0}

		var found bool
		oldsym, found = st.table.Get(key)
		if !found {
			var sym *Symbol
			if !target.HasMakeSymbol() {
				sym = &Symbol{}
			} else {
				sym = target.MakeSymbol()
				if sym == nil {
					return nil
				}
				sym.IsTargetSpecial = true
			}
			st.table.Put(key, sym)
			return sym
		}
	}

	// Overriding an existing record: a real definition in a regular
	// object wins over us, and doubly defining is an error. References,
	// commons and shared-object definitions may be overridden.
	if oldsym.Source == FromObject {
		if oldsym.Shndx != uint16(elf.SHN_UNDEF) &&
			oldsym.Shndx != uint16(elf.SHN_COMMON) &&
			!oldsym.Object.IsDynamic() {
			st.diag.Errorf("linker defined: multiple definition of %s", name)
			return nil
		}
	} else {
		st.diag.Errorf("linker defined: multiple definition of %s", name)
		return nil
	}

	return oldsym
}

// DefineInOutputData defines NAME relative to an output data block.
func (st *SymbolTable) DefineInOutputData(target *Target, name string,
	od OutputData, value, symSize uint64, typ elf.SymType, binding elf.SymBind,
	visibility elf.SymVis, nonvis uint8, offsetIsFromEnd, onlyIfRef bool) *Symbol {

	sym := st.defineSpecialSymbol(target, name, onlyIfRef)
	if sym == nil {
		return nil
	}
	name = st.CanonicalizeName(name)
	sym.InitInOutputData(name, od, value, symSize, typ, binding, visibility,
		nonvis, offsetIsFromEnd)
	return sym
}

// DefineInOutputSegment defines NAME relative to an output segment.
func (st *SymbolTable) DefineInOutputSegment(target *Target, name string,
	seg *OutputSegment, value, symSize uint64, typ elf.SymType, binding elf.SymBind,
	visibility elf.SymVis, nonvis uint8, offsetBase SegmentOffsetBase,
	onlyIfRef bool) *Symbol {

	sym := st.defineSpecialSymbol(target, name, onlyIfRef)
	if sym == nil {
		return nil
	}
	name = st.CanonicalizeName(name)
	sym.InitInOutputSegment(name, seg, value, symSize, typ, binding, visibility,
		nonvis, offsetBase)
	return sym
}

// DefineAsConstant defines NAME as an absolute value.
func (st *SymbolTable) DefineAsConstant(target *Target, name string,
	value, symSize uint64, typ elf.SymType, binding elf.SymBind,
	visibility elf.SymVis, nonvis uint8, onlyIfRef bool) *Symbol {

	sym := st.defineSpecialSymbol(target, name, onlyIfRef)
	if sym == nil {
		return nil
	}
	name = st.CanonicalizeName(name)
	sym.InitAsConstant(name, value, symSize, typ, binding, visibility, nonvis)
	return sym
}

// DefineSymbolInSection describes one linker-defined symbol anchored to a
// named output section.
type DefineSymbolInSection struct {
	Name            string
	Section         string
	Value           uint64
	Size            uint64
	Type            elf.SymType
	Binding         elf.SymBind
	Visibility      elf.SymVis
	Nonvis          uint8
	OffsetIsFromEnd bool
	OnlyIfRef       bool
}

// DefineSymbolInSegment describes one linker-defined symbol anchored to an
// output segment selected by type and flags.
type DefineSymbolInSegment struct {
	Name              string
	SegmentType       elf.ProgType
	SegmentFlagsSet   elf.ProgFlag
	SegmentFlagsClear elf.ProgFlag
	Value             uint64
	Size              uint64
	Type              elf.SymType
	Binding           elf.SymBind
	Visibility        elf.SymVis
	Nonvis            uint8
	OffsetBase        SegmentOffsetBase
	OnlyIfRef         bool
}

// DefineSectionSymbols defines each descriptor in its named output section
// when the layout has it, and as constant 0 otherwise.
func (st *SymbolTable) DefineSectionSymbols(layout *Layout, target *Target,
	defs []DefineSymbolInSection) {

	for i := range defs {
		p := &defs[i]
		if os := layout.FindOutputSection(p.Section); os != nil {
			st.DefineInOutputData(target, p.Name, os, p.Value, p.Size,
				p.Type, p.Binding, p.Visibility, p.Nonvis,
				p.OffsetIsFromEnd, p.OnlyIfRef)
		} else {
			st.DefineAsConstant(target, p.Name, 0, p.Size, p.Type,
				p.Binding, p.Visibility, p.Nonvis, p.OnlyIfRef)
		}
	}
}

// DefineSegmentSymbols defines each descriptor in its selected output
// segment when the layout has one, and as constant 0 otherwise.
func (st *SymbolTable) DefineSegmentSymbols(layout *Layout, target *Target,
	defs []DefineSymbolInSegment) {

	for i := range defs {
		p := &defs[i]
		if seg := layout.FindOutputSegment(p.SegmentType, p.SegmentFlagsSet,
			p.SegmentFlagsClear); seg != nil {
			st.DefineInOutputSegment(target, p.Name, seg, p.Value, p.Size,
				p.Type, p.Binding, p.Visibility, p.Nonvis,
				p.OffsetBase, p.OnlyIfRef)
		} else {
			st.DefineAsConstant(target, p.Name, 0, p.Size, p.Type,
				p.Binding, p.Visibility, p.Nonvis, p.OnlyIfRef)
		}
	}
}
