package linker

import (
	"debug/elf"
)

// SymbolSource says where a merged symbol's definition ultimately lives.
type SymbolSource uint8

const (
	// FromObject: defined or referenced in an input object.
	FromObject SymbolSource = iota
	// InOutputData: defined relative to an output data block.
	InOutputData
	// InOutputSegment: defined relative to an output segment.
	InOutputSegment
	// Constant: an absolute value.
	Constant
)

// SegmentOffsetBase selects which segment address a symbol is relative to.
type SegmentOffsetBase uint8

const (
	SegmentStart SegmentOffsetBase = iota
	SegmentEnd
	SegmentBss
)

// Symbol is one merged global symbol. The symbol table owns it; Object,
// Data and Segment are non-owning back-pointers whose referents outlive
// the table.
type Symbol struct {
	Name    string
	Version string

	Value   uint64
	SymSize uint64

	Type       elf.SymType
	Binding    elf.SymBind
	Visibility elf.SymVis
	Nonvis     uint8

	Source SymbolSource

	// Valid when Source == FromObject.
	Object Object
	Shndx  uint16

	// Valid when Source == InOutputData.
	Data            OutputData
	OffsetIsFromEnd bool

	// Valid when Source == InOutputSegment.
	Segment    *OutputSegment
	OffsetBase SegmentOffsetBase

	GotOffset uint64

	IsTargetSpecial bool
	IsDef           bool
	IsForwarder     bool
	InDyn           bool
	HasGotOffset    bool
	HasWarning      bool
}

func (s *Symbol) initFields(name, version string, typ elf.SymType,
	binding elf.SymBind, visibility elf.SymVis, nonvis uint8) {
	s.Name = name
	s.Version = version
	s.Type = typ
	s.Binding = binding
	s.Visibility = visibility
	s.Nonvis = nonvis
	s.GotOffset = 0
	s.IsDef = false
	s.IsForwarder = false
	s.InDyn = false
	s.HasGotOffset = false
	s.HasWarning = false
}

// InitFromObject initializes the symbol from a raw ELF record in OBJECT.
func (s *Symbol) InitFromObject(name, version string, object Object, esym *Sym) {
	s.initFields(name, version, esym.Type(), esym.Bind(), esym.Visibility(),
		esym.Nonvis())
	s.Source = FromObject
	s.Object = object
	s.Shndx = esym.Shndx
	s.Value = esym.Value
	s.SymSize = esym.Size
	s.InDyn = object.IsDynamic()
	s.IsDef = !esym.IsUndef()
}

// InitInOutputData initializes the symbol as defined in an output data block.
func (s *Symbol) InitInOutputData(name string, od OutputData, value, symSize uint64,
	typ elf.SymType, binding elf.SymBind, visibility elf.SymVis, nonvis uint8,
	offsetIsFromEnd bool) {
	s.initFields(name, "", typ, binding, visibility, nonvis)
	s.Source = InOutputData
	s.Data = od
	s.OffsetIsFromEnd = offsetIsFromEnd
	s.Value = value
	s.SymSize = symSize
	s.Object = nil
	s.IsDef = true
}

// InitInOutputSegment initializes the symbol as defined in an output segment.
func (s *Symbol) InitInOutputSegment(name string, seg *OutputSegment, value, symSize uint64,
	typ elf.SymType, binding elf.SymBind, visibility elf.SymVis, nonvis uint8,
	offsetBase SegmentOffsetBase) {
	s.initFields(name, "", typ, binding, visibility, nonvis)
	s.Source = InOutputSegment
	s.Segment = seg
	s.OffsetBase = offsetBase
	s.Value = value
	s.SymSize = symSize
	s.Object = nil
	s.IsDef = true
}

// InitAsConstant initializes the symbol as an absolute constant.
func (s *Symbol) InitAsConstant(name string, value, symSize uint64,
	typ elf.SymType, binding elf.SymBind, visibility elf.SymVis, nonvis uint8) {
	s.initFields(name, "", typ, binding, visibility, nonvis)
	s.Source = Constant
	s.Value = value
	s.SymSize = symSize
	s.Object = nil
	s.IsDef = true
}

func (s *Symbol) IsUndefined() bool {
	return s.Source == FromObject && s.Shndx == uint16(elf.SHN_UNDEF)
}

func (s *Symbol) IsCommon() bool {
	return s.Source == FromObject && s.Shndx == uint16(elf.SHN_COMMON)
}

// IsDefined reports whether the symbol has a definition, counting common
// symbols as defined.
func (s *Symbol) IsDefined() bool {
	return !s.IsUndefined()
}

func (s *Symbol) IsWeak() bool {
	return s.Binding == elf.STB_WEAK
}

// IsFromDynobj reports whether the current winner came from a shared object.
func (s *Symbol) IsFromDynobj() bool {
	return s.Source == FromObject && s.Object != nil && s.Object.IsDynamic()
}

func (s *Symbol) SetGotOffset(off uint64) {
	s.GotOffset = off
	s.HasGotOffset = true
}
