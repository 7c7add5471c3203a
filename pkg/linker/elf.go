package linker

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
)

// Class is the ELF class of the link, 32 or 64 bit. It fixes the width of
// addresses and the layout of symbol records.
type Class uint8

const (
	ClassNone Class = 0
	Class32   Class = 32
	Class64   Class = 64
)

const (
	Ehdr32Size = 52
	Ehdr64Size = 64
	Shdr32Size = 40
	Shdr64Size = 64
	Sym32Size  = 16
	Sym64Size  = 24
)

// AddrSize is the byte width of an address for this class.
func (c Class) AddrSize() int {
	return int(c) >> 3
}

func SymSize(c Class) int {
	if c == Class32 {
		return Sym32Size
	}
	return Sym64Size
}

func ShdrSize(c Class) int {
	if c == Class32 {
		return Shdr32Size
	}
	return Shdr64Size
}

func EhdrSize(c Class) int {
	if c == Class32 {
		return Ehdr32Size
	}
	return Ehdr64Size
}

// Versym encoding from the GNU symbol versioning extension.
const (
	VersymHidden  uint16 = 0x8000
	VersymVersion uint16 = 0x7fff

	VerNdxLocal  uint16 = 0
	VerNdxGlobal uint16 = 1
)

// Ehdr is a class-neutral view of the ELF file header.
type Ehdr struct {
	Type      elf.Type
	Machine   elf.Machine
	Entry     uint64
	Phoff     uint64
	Shoff     uint64
	Flags     uint32
	Phnum     int
	Shnum     int
	Shstrndx  int
}

// Shdr is a class-neutral view of Elf{32,64}_Shdr.
type Shdr struct {
	Name      uint32
	Type      uint32
	Flags     uint64
	Addr      uint64
	Offset    uint64
	Size      uint64
	Link      uint32
	Info      uint32
	AddrAlign uint64
	EntSize   uint64
}

// Sym is a class-neutral view of Elf{32,64}_Sym.
type Sym struct {
	Name  uint32
	Info  uint8
	Other uint8
	Shndx uint16
	Value uint64
	Size  uint64
}

func (s *Sym) Bind() elf.SymBind {
	return elf.ST_BIND(s.Info)
}

func (s *Sym) Type() elf.SymType {
	return elf.ST_TYPE(s.Info)
}

func (s *Sym) Visibility() elf.SymVis {
	return elf.ST_VISIBILITY(s.Other)
}

func (s *Sym) Nonvis() uint8 {
	return s.Other >> 2
}

func (s *Sym) IsUndef() bool {
	return s.Shndx == uint16(elf.SHN_UNDEF)
}

func (s *Sym) IsAbs() bool {
	return s.Shndx == uint16(elf.SHN_ABS)
}

func (s *Sym) IsCommon() bool {
	return s.Shndx == uint16(elf.SHN_COMMON)
}

func StInfo(binding elf.SymBind, typ elf.SymType) uint8 {
	return uint8(binding)<<4 | uint8(typ)&0xf
}

func StOther(visibility elf.SymVis, nonvis uint8) uint8 {
	return nonvis<<2 | uint8(visibility)&3
}

// ReadSym decodes one symbol record. DATA must hold at least SymSize(class)
// bytes.
func ReadSym(data []byte, class Class, order binary.ByteOrder) Sym {
	var s Sym
	if class == Class32 {
		s.Name = order.Uint32(data[0:])
		s.Value = uint64(order.Uint32(data[4:]))
		s.Size = uint64(order.Uint32(data[8:]))
		s.Info = data[12]
		s.Other = data[13]
		s.Shndx = order.Uint16(data[14:])
	} else {
		s.Name = order.Uint32(data[0:])
		s.Info = data[4]
		s.Other = data[5]
		s.Shndx = order.Uint16(data[6:])
		s.Value = order.Uint64(data[8:])
		s.Size = order.Uint64(data[16:])
	}
	return s
}

// Put encodes the symbol record into DATA.
func (s *Sym) Put(data []byte, class Class, order binary.ByteOrder) {
	if class == Class32 {
		order.PutUint32(data[0:], s.Name)
		order.PutUint32(data[4:], uint32(s.Value))
		order.PutUint32(data[8:], uint32(s.Size))
		data[12] = s.Info
		data[13] = s.Other
		order.PutUint16(data[14:], s.Shndx)
	} else {
		order.PutUint32(data[0:], s.Name)
		data[4] = s.Info
		data[5] = s.Other
		order.PutUint16(data[6:], s.Shndx)
		order.PutUint64(data[8:], s.Value)
		order.PutUint64(data[16:], s.Size)
	}
}

func ReadShdr(data []byte, class Class, order binary.ByteOrder) Shdr {
	var h Shdr
	if class == Class32 {
		h.Name = order.Uint32(data[0:])
		h.Type = order.Uint32(data[4:])
		h.Flags = uint64(order.Uint32(data[8:]))
		h.Addr = uint64(order.Uint32(data[12:]))
		h.Offset = uint64(order.Uint32(data[16:]))
		h.Size = uint64(order.Uint32(data[20:]))
		h.Link = order.Uint32(data[24:])
		h.Info = order.Uint32(data[28:])
		h.AddrAlign = uint64(order.Uint32(data[32:]))
		h.EntSize = uint64(order.Uint32(data[36:]))
	} else {
		h.Name = order.Uint32(data[0:])
		h.Type = order.Uint32(data[4:])
		h.Flags = order.Uint64(data[8:])
		h.Addr = order.Uint64(data[16:])
		h.Offset = order.Uint64(data[24:])
		h.Size = order.Uint64(data[32:])
		h.Link = order.Uint32(data[40:])
		h.Info = order.Uint32(data[44:])
		h.AddrAlign = order.Uint64(data[48:])
		h.EntSize = order.Uint64(data[56:])
	}
	return h
}

func (h *Shdr) Put(data []byte, class Class, order binary.ByteOrder) {
	if class == Class32 {
		order.PutUint32(data[0:], h.Name)
		order.PutUint32(data[4:], h.Type)
		order.PutUint32(data[8:], uint32(h.Flags))
		order.PutUint32(data[12:], uint32(h.Addr))
		order.PutUint32(data[16:], uint32(h.Offset))
		order.PutUint32(data[20:], uint32(h.Size))
		order.PutUint32(data[24:], h.Link)
		order.PutUint32(data[28:], h.Info)
		order.PutUint32(data[32:], uint32(h.AddrAlign))
		order.PutUint32(data[36:], uint32(h.EntSize))
	} else {
		order.PutUint32(data[0:], h.Name)
		order.PutUint32(data[4:], h.Type)
		order.PutUint64(data[8:], h.Flags)
		order.PutUint64(data[16:], h.Addr)
		order.PutUint64(data[24:], h.Offset)
		order.PutUint64(data[32:], h.Size)
		order.PutUint32(data[40:], h.Link)
		order.PutUint32(data[44:], h.Info)
		order.PutUint64(data[48:], h.AddrAlign)
		order.PutUint64(data[56:], h.EntSize)
	}
}

func ReadEhdr(data []byte, class Class, order binary.ByteOrder) Ehdr {
	var e Ehdr
	e.Type = elf.Type(order.Uint16(data[16:]))
	e.Machine = elf.Machine(order.Uint16(data[18:]))
	if class == Class32 {
		e.Entry = uint64(order.Uint32(data[24:]))
		e.Phoff = uint64(order.Uint32(data[28:]))
		e.Shoff = uint64(order.Uint32(data[32:]))
		e.Flags = order.Uint32(data[36:])
		e.Phnum = int(order.Uint16(data[44:]))
		e.Shnum = int(order.Uint16(data[48:]))
		e.Shstrndx = int(order.Uint16(data[50:]))
	} else {
		e.Entry = order.Uint64(data[24:])
		e.Phoff = order.Uint64(data[32:])
		e.Shoff = order.Uint64(data[40:])
		e.Flags = order.Uint32(data[48:])
		e.Phnum = int(order.Uint16(data[56:]))
		e.Shnum = int(order.Uint16(data[60:]))
		e.Shstrndx = int(order.Uint16(data[62:]))
	}
	return e
}

// Put encodes the file header, identification bytes included.
func (e *Ehdr) Put(data []byte, class Class, order binary.ByteOrder) {
	WriteMagic(data)
	if class == Class32 {
		data[elf.EI_CLASS] = byte(elf.ELFCLASS32)
	} else {
		data[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	}
	if order == binary.ByteOrder(binary.BigEndian) {
		data[elf.EI_DATA] = byte(elf.ELFDATA2MSB)
	} else {
		data[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	}
	data[elf.EI_VERSION] = byte(elf.EV_CURRENT)

	order.PutUint16(data[16:], uint16(e.Type))
	order.PutUint16(data[18:], uint16(e.Machine))
	order.PutUint32(data[20:], uint32(elf.EV_CURRENT))
	if class == Class32 {
		order.PutUint32(data[24:], uint32(e.Entry))
		order.PutUint32(data[28:], uint32(e.Phoff))
		order.PutUint32(data[32:], uint32(e.Shoff))
		order.PutUint32(data[36:], e.Flags)
		order.PutUint16(data[40:], Ehdr32Size)
		order.PutUint16(data[42:], 32)
		order.PutUint16(data[44:], uint16(e.Phnum))
		order.PutUint16(data[46:], Shdr32Size)
		order.PutUint16(data[48:], uint16(e.Shnum))
		order.PutUint16(data[50:], uint16(e.Shstrndx))
	} else {
		order.PutUint64(data[24:], e.Entry)
		order.PutUint64(data[32:], e.Phoff)
		order.PutUint64(data[40:], e.Shoff)
		order.PutUint32(data[48:], e.Flags)
		order.PutUint16(data[52:], Ehdr64Size)
		order.PutUint16(data[54:], 56)
		order.PutUint16(data[56:], uint16(e.Phnum))
		order.PutUint16(data[58:], Shdr64Size)
		order.PutUint16(data[60:], uint16(e.Shnum))
		order.PutUint16(data[62:], uint16(e.Shstrndx))
	}
}

func CheckMagic(contents []byte) bool {
	return bytes.HasPrefix(contents, []byte("\177ELF"))
}

func WriteMagic(contents []byte) {
	copy(contents, "\177ELF")
}

// GetNameFromTable reads the NUL-terminated string at OFFSET in an ELF
// string table.
func GetNameFromTable(strTable []byte, offset uint32) string {
	if offset >= uint32(len(strTable)) {
		return ""
	}
	length := bytes.IndexByte(strTable[offset:], 0)
	if length < 0 {
		return string(strTable[offset:])
	}
	return string(strTable[offset : offset+uint32(length)])
}
