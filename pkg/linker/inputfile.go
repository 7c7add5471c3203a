package linker

import (
	"debug/elf"
	"encoding/binary"
	"fmt"
	"sync"

	"weld/pkg/utils"
)

// InputFile is the ELF plumbing shared by relocatable and shared inputs:
// header, section table, and the symbol table span handed to the symbol
// table merger.
type InputFile struct {
	File      *File
	Class     Class
	ByteOrder binary.ByteOrder
	Ehdr      Ehdr
	Sections  []Shdr
	ShStrtab  []byte

	FirstGlobal int
	SymsBytes   []byte
	SymCount    int
	SymStrtab   []byte

	target *Target

	mu sync.Mutex
}

func NewInputFile(file *File) InputFile {
	f := InputFile{File: file}

	if len(file.Contents) < Ehdr32Size {
		utils.Fatal("ELF file too small!")
	}
	if !CheckMagic(file.Contents) {
		utils.Fatal("Not an ELF file!")
	}

	switch elf.Class(file.Contents[elf.EI_CLASS]) {
	case elf.ELFCLASS32:
		f.Class = Class32
	case elf.ELFCLASS64:
		f.Class = Class64
	default:
		utils.Fatal("unknown ELF class")
	}

	switch elf.Data(file.Contents[elf.EI_DATA]) {
	case elf.ELFDATA2LSB:
		f.ByteOrder = binary.LittleEndian
	case elf.ELFDATA2MSB:
		f.ByteOrder = binary.BigEndian
	default:
		utils.Fatal("unknown ELF data encoding")
	}

	f.Ehdr = ReadEhdr(file.Contents, f.Class, f.ByteOrder)

	f.target = &Target{
		Class:     f.Class,
		ByteOrder: f.ByteOrder,
		Machine:   f.Ehdr.Machine,
	}

	shdrSize := uint64(ShdrSize(f.Class))
	contents := file.Contents[f.Ehdr.Shoff:]

	first := ReadShdr(contents, f.Class, f.ByteOrder)
	shnum := uint64(f.Ehdr.Shnum)
	if shnum == 0 {
		// Extended section count lives in the first header's size.
		shnum = first.Size
	}

	f.Sections = []Shdr{first}
	for i := uint64(1); i < shnum; i++ {
		contents = contents[shdrSize:]
		f.Sections = append(f.Sections, ReadShdr(contents, f.Class, f.ByteOrder))
	}

	shstrndx := uint64(f.Ehdr.Shstrndx)
	if shstrndx == uint64(elf.SHN_XINDEX) {
		shstrndx = uint64(first.Link)
	}
	f.ShStrtab = f.GetBytesFromIndex(int(shstrndx))

	return f
}

func (f *InputFile) GetBytesFromShdr(hdr *Shdr) []byte {
	start := hdr.Offset
	end := hdr.Offset + hdr.Size
	if uint64(len(f.File.Contents)) < end {
		utils.Fatal(
			fmt.Sprintf("Section header is out of range: %d", hdr.Offset),
		)
	}
	return f.File.Contents[start:end]
}

func (f *InputFile) GetBytesFromIndex(idx int) []byte {
	utils.Assert(idx >= 0 && idx < len(f.Sections))
	return f.GetBytesFromShdr(&f.Sections[idx])
}

func (f *InputFile) FindSection(typ uint32) *Shdr {
	idx := f.FindSectionIndex(typ)
	if idx < 0 {
		return nil
	}
	return &f.Sections[idx]
}

func (f *InputFile) FindSectionIndex(typ uint32) int {
	for i := 0; i < len(f.Sections); i++ {
		if f.Sections[i].Type == typ {
			return i
		}
	}
	return -1
}

func (f *InputFile) SectionName(shdr *Shdr) string {
	return GetNameFromTable(f.ShStrtab, shdr.Name)
}

// FillUpSymbols records the raw symbol span of S and its companion string
// table. The raw bytes are kept as-is; the symbol table decodes them with
// the file's class and byte order.
func (f *InputFile) FillUpSymbols(s *Shdr) {
	f.SymsBytes = f.GetBytesFromShdr(s)
	f.SymCount = len(f.SymsBytes) / SymSize(f.Class)
	f.SymStrtab = f.GetBytesFromIndex(int(s.Link))
}

func (f *InputFile) Name() string {
	return f.File.Name
}

func (f *InputFile) Target() *Target {
	return f.target
}

func (f *InputFile) Lock() {
	f.mu.Lock()
}

func (f *InputFile) Unlock() {
	f.mu.Unlock()
}
