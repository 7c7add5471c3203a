package linker

import (
	"debug/elf"
)

// SharedFile is a shared (dynamic) input. Only its dynamic symbols and
// version tables matter to the link.
type SharedFile struct {
	InputFile

	DynsymSec  *Shdr
	Versym     []byte
	VersionMap []string
	SoName     string
}

func NewSharedFile(file *File) *SharedFile {
	s := &SharedFile{InputFile: NewInputFile(file)}
	return s
}

func (s *SharedFile) Parse() {
	s.DynsymSec = s.FindSection(uint32(elf.SHT_DYNSYM))
	if s.DynsymSec != nil {
		s.FirstGlobal = int(s.DynsymSec.Info)
		s.FillUpSymbols(s.DynsymSec)
	}

	if versym := s.FindSection(uint32(elf.SHT_GNU_VERSYM)); versym != nil {
		s.Versym = s.GetBytesFromShdr(versym)
	}

	s.parseVerdef()
	s.parseVerneed()

	s.SoName = s.File.Name
	s.parseSoName()
}

func (s *SharedFile) setVersion(ndx uint16, name string) {
	idx := int(ndx & VersymVersion)
	for len(s.VersionMap) <= idx {
		s.VersionMap = append(s.VersionMap, "")
	}
	s.VersionMap[idx] = name
}

// parseVerdef reads .gnu.version_d: the versions this object defines.
func (s *SharedFile) parseVerdef() {
	shdr := s.FindSection(uint32(elf.SHT_GNU_VERDEF))
	if shdr == nil {
		return
	}
	data := s.GetBytesFromShdr(shdr)
	strtab := s.GetBytesFromIndex(int(shdr.Link))
	order := s.ByteOrder

	pos := uint32(0)
	for count := shdr.Info; count > 0; count-- {
		if int(pos)+20 > len(data) {
			return
		}
		ndx := order.Uint16(data[pos+4:])
		aux := order.Uint32(data[pos+12:])
		next := order.Uint32(data[pos+16:])

		// The first auxiliary entry names the version.
		if int(pos+aux)+8 <= len(data) {
			nameOff := order.Uint32(data[pos+aux:])
			s.setVersion(ndx, GetNameFromTable(strtab, nameOff))
		}

		if next == 0 {
			break
		}
		pos += next
	}
}

// parseVerneed reads .gnu.version_r: the versions this object needs from
// its own dependencies. Symbols may still reference them.
func (s *SharedFile) parseVerneed() {
	shdr := s.FindSection(uint32(elf.SHT_GNU_VERNEED))
	if shdr == nil {
		return
	}
	data := s.GetBytesFromShdr(shdr)
	strtab := s.GetBytesFromIndex(int(shdr.Link))
	order := s.ByteOrder

	pos := uint32(0)
	for count := shdr.Info; count > 0; count-- {
		if int(pos)+16 > len(data) {
			return
		}
		cnt := order.Uint16(data[pos+2:])
		aux := order.Uint32(data[pos+8:])
		next := order.Uint32(data[pos+12:])

		apos := pos + aux
		for ; cnt > 0; cnt-- {
			if int(apos)+16 > len(data) {
				break
			}
			other := order.Uint16(data[apos+6:])
			nameOff := order.Uint32(data[apos+8:])
			s.setVersion(other, GetNameFromTable(strtab, nameOff))

			anext := order.Uint32(data[apos+12:])
			if anext == 0 {
				break
			}
			apos += anext
		}

		if next == 0 {
			break
		}
		pos += next
	}
}

// parseSoName reads DT_SONAME from the dynamic section when present.
func (s *SharedFile) parseSoName() {
	shdr := s.FindSection(uint32(elf.SHT_DYNAMIC))
	if shdr == nil {
		return
	}
	data := s.GetBytesFromShdr(shdr)
	strtab := s.GetBytesFromIndex(int(shdr.Link))
	order := s.ByteOrder

	entSize := s.Class.AddrSize() * 2
	for pos := 0; pos+entSize <= len(data); pos += entSize {
		var tag int64
		var val uint64
		if s.Class == Class32 {
			tag = int64(int32(order.Uint32(data[pos:])))
			val = uint64(order.Uint32(data[pos+4:]))
		} else {
			tag = int64(order.Uint64(data[pos:]))
			val = order.Uint64(data[pos+8:])
		}
		if tag == int64(elf.DT_NULL) {
			break
		}
		if tag == int64(elf.DT_SONAME) {
			s.SoName = GetNameFromTable(strtab, uint32(val))
		}
	}
}

// Dynsyms returns the raw records of the dynamic symbol table and their
// count. Unlike relocatable ingestion this spans the whole table; the
// merger skips locals itself.
func (s *SharedFile) Dynsyms() ([]byte, int) {
	if s.DynsymSec == nil {
		return nil, 0
	}
	return s.SymsBytes, s.SymCount
}

func (s *SharedFile) IsDynamic() bool {
	return true
}

func (s *SharedFile) IsSectionIncluded(shndx uint16) bool {
	return true
}

func (s *SharedFile) OutputSection(shndx uint16) (*OutputSection, uint64, bool) {
	return nil, 0, false
}

func (s *SharedFile) SectionContents(shndx uint16) []byte {
	return s.GetBytesFromIndex(int(shndx))
}
