package linker

import (
	"debug/elf"
	"os"

	"github.com/pkg/errors"
)

// OutputData is a block of the output file with a final address. An
// OutputSection is the usual implementation.
type OutputData interface {
	Address() uint64
	DataSize() uint64
	OutShndx() uint16
}

// OutputSection is a section of the linked output. Layout fills in Addr,
// Size and Shndx before the symbol table finalizes.
type OutputSection struct {
	Name      string
	Type      uint32
	Flags     uint64
	Addr      uint64
	Size      uint64
	Shndx     uint16
	AddrAlign uint64
}

func NewOutputSection(name string, typ uint32, flags uint64) *OutputSection {
	return &OutputSection{
		Name:      name,
		Type:      typ,
		Flags:     flags,
		AddrAlign: 1,
	}
}

func (o *OutputSection) Address() uint64 {
	return o.Addr
}

func (o *OutputSection) DataSize() uint64 {
	return o.Size
}

func (o *OutputSection) OutShndx() uint16 {
	return o.Shndx
}

// OutputSegment is a loadable region of the output with a final virtual
// address range.
type OutputSegment struct {
	Type   elf.ProgType
	Flags  elf.ProgFlag
	VAddr  uint64
	MemSz  uint64
	FileSz uint64
}

// Layout is the subset of the layout phase the symbol table consumes:
// named output sections and typed output segments with final addresses.
type Layout struct {
	Sections []*OutputSection
	Segments []*OutputSegment
}

func (l *Layout) FindOutputSection(name string) *OutputSection {
	for _, os := range l.Sections {
		if os.Name == name {
			return os
		}
	}
	return nil
}

// FindOutputSegment returns the first segment of TYP whose flags contain
// SET and exclude CLEAR.
func (l *Layout) FindOutputSegment(typ elf.ProgType, set, clear elf.ProgFlag) *OutputSegment {
	for _, seg := range l.Segments {
		if seg.Type == typ && seg.Flags&set == set && seg.Flags&clear == 0 {
			return seg
		}
	}
	return nil
}

// OutputFile is the output image. Views are windows into the single
// backing buffer; WriteOutputView is the release point.
type OutputFile struct {
	Name string
	Buf  []byte
}

func NewOutputFile(name string, size uint64) *OutputFile {
	return &OutputFile{
		Name: name,
		Buf:  make([]byte, size),
	}
}

func (of *OutputFile) GetOutputView(offset, length uint64) []byte {
	if offset+length > uint64(len(of.Buf)) {
		grown := make([]byte, offset+length)
		copy(grown, of.Buf)
		of.Buf = grown
	}
	return of.Buf[offset : offset+length]
}

func (of *OutputFile) WriteOutputView(offset, length uint64, view []byte) {
	if length == 0 {
		return
	}
	if &of.Buf[offset] != &view[0] {
		copy(of.Buf[offset:offset+length], view)
	}
}

func (of *OutputFile) Save() error {
	if err := os.WriteFile(of.Name, of.Buf, 0o755); err != nil {
		return errors.Wrapf(err, "write %s", of.Name)
	}
	return nil
}
