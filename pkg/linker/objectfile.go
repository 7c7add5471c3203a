package linker

import (
	"debug/elf"

	"weld/pkg/utils"
)

// ObjectFile is a relocatable input.
type ObjectFile struct {
	InputFile

	SymtabSec   *Shdr
	SymtabShndx []uint32
	Sections    []*InputSection

	// Symbols holds the merged record for each global symbol position,
	// filled by the symbol table during ingestion.
	Symbols []*Symbol
}

func NewObjectFile(file *File) *ObjectFile {
	o := &ObjectFile{InputFile: NewInputFile(file)}
	return o
}

func (o *ObjectFile) Parse() {
	o.SymtabSec = o.FindSection(uint32(elf.SHT_SYMTAB))
	if o.SymtabSec != nil {
		o.FirstGlobal = int(o.SymtabSec.Info)
		o.FillUpSymbols(o.SymtabSec)
	}

	o.InitializeSections()
}

func (o *ObjectFile) InitializeSections() {
	o.Sections = make([]*InputSection, len(o.InputFile.Sections))
	for i := 0; i < len(o.InputFile.Sections); i++ {
		shdr := &o.InputFile.Sections[i]
		switch elf.SectionType(shdr.Type) {
		case elf.SHT_NULL, elf.SHT_GROUP, elf.SHT_SYMTAB, elf.SHT_STRTAB,
			elf.SHT_REL, elf.SHT_RELA:
		case elf.SHT_SYMTAB_SHNDX:
			o.FillUpSymtabShndx(shdr)
		default:
			o.Sections[i] = NewInputSection(o, uint16(i))
		}
	}
}

func (o *ObjectFile) FillUpSymtabShndx(s *Shdr) {
	bs := o.GetBytesFromShdr(s)
	o.SymtabShndx = make([]uint32, 0, len(bs)/4)
	for len(bs) >= 4 {
		o.SymtabShndx = append(o.SymtabShndx, o.ByteOrder.Uint32(bs))
		bs = bs[4:]
	}
}

// GlobalSyms returns the raw records of the global part of the symbol
// table and their count.
func (o *ObjectFile) GlobalSyms() ([]byte, int) {
	if o.SymtabSec == nil {
		return nil, 0
	}
	symSize := SymSize(o.Class)
	return o.SymsBytes[o.FirstGlobal*symSize:], o.SymCount - o.FirstGlobal
}

// GlobalSymNames reads the raw name of every global symbol.
func (o *ObjectFile) GlobalSymNames() []string {
	syms, count := o.GlobalSyms()
	names := make([]string, 0, count)
	for i := 0; i < count; i++ {
		esym := ReadSym(syms[i*SymSize(o.Class):], o.Class, o.ByteOrder)
		names = append(names, GetNameFromTable(o.SymStrtab, esym.Name))
	}
	return names
}

func (o *ObjectFile) IsDynamic() bool {
	return false
}

func (o *ObjectFile) IsSectionIncluded(shndx uint16) bool {
	utils.Assert(int(shndx) < len(o.Sections))
	isec := o.Sections[shndx]
	return isec != nil && isec.IsAlive
}

func (o *ObjectFile) OutputSection(shndx uint16) (*OutputSection, uint64, bool) {
	if int(shndx) >= len(o.Sections) {
		return nil, 0, false
	}
	isec := o.Sections[shndx]
	if isec == nil || !isec.IsAlive || isec.OutputSection == nil {
		return nil, 0, false
	}
	return isec.OutputSection, isec.Offset, true
}

func (o *ObjectFile) SectionContents(shndx uint16) []byte {
	return o.GetBytesFromIndex(int(shndx))
}
