package linker

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"sync"
	"testing"

	"github.com/go-kit/log"

	"weld/pkg/utils"
)

// testObject is a minimal Object for driving the symbol table directly.
type testObject struct {
	sync.Mutex
	name     string
	dynamic  bool
	target   *Target
	excluded map[uint16]bool
	outputs  map[uint16]*OutputSection
	offsets  map[uint16]uint64
	contents map[uint16][]byte
}

func newTestObject(name string, target *Target) *testObject {
	return &testObject{
		name:     name,
		target:   target,
		excluded: make(map[uint16]bool),
		outputs:  make(map[uint16]*OutputSection),
		offsets:  make(map[uint16]uint64),
		contents: make(map[uint16][]byte),
	}
}

func (o *testObject) Name() string    { return o.name }
func (o *testObject) IsDynamic() bool { return o.dynamic }
func (o *testObject) Target() *Target { return o.target }

func (o *testObject) IsSectionIncluded(shndx uint16) bool {
	return !o.excluded[shndx]
}

func (o *testObject) OutputSection(shndx uint16) (*OutputSection, uint64, bool) {
	os, ok := o.outputs[shndx]
	if !ok {
		return nil, 0, false
	}
	return os, o.offsets[shndx], true
}

func (o *testObject) SectionContents(shndx uint16) []byte {
	return o.contents[shndx]
}

var testTarget64 = &Target{
	Class:     Class64,
	ByteOrder: binary.LittleEndian,
	Machine:   elf.EM_X86_64,
}

var testTarget32be = &Target{
	Class:     Class32,
	ByteOrder: binary.BigEndian,
	Machine:   elf.EM_PPC,
}

// testDiag returns a Diag whose fatal path panics instead of exiting, and
// a capture of everything logged.
func testDiag(t *testing.T) (*Diag, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	d := NewDiag(log.NewLogfmtLogger(buf))
	d.SetExit(func(code int) {
		panic(fmt.Sprintf("fatal exit %d", code))
	})
	return d, buf
}

// strtab builds an ELF string table and returns each name's offset.
type strtab struct {
	buf  []byte
	offs map[string]uint32
}

func newStrtab() *strtab {
	return &strtab{buf: []byte{0}, offs: map[string]uint32{"": 0}}
}

func (s *strtab) add(name string) uint32 {
	if off, ok := s.offs[name]; ok {
		return off
	}
	off := uint32(len(s.buf))
	s.buf = append(s.buf, name...)
	s.buf = append(s.buf, 0)
	s.offs[name] = off
	return off
}

// rawSym describes one input symbol for encoding.
type rawSym struct {
	name  string
	bind  elf.SymBind
	typ   elf.SymType
	vis   elf.SymVis
	shndx uint16
	value uint64
	size  uint64
}

// encodeSyms builds the raw symbol span plus its string table in the
// target's class and byte order.
func encodeSyms(target *Target, syms []rawSym) (raw []byte, names []byte, count int) {
	st := newStrtab()
	symSize := SymSize(target.Class)
	raw = make([]byte, symSize*len(syms))
	for i, s := range syms {
		esym := Sym{
			Name:  st.add(s.name),
			Info:  StInfo(s.bind, s.typ),
			Other: StOther(s.vis, 0),
			Shndx: s.shndx,
			Value: s.value,
			Size:  s.size,
		}
		esym.Put(raw[i*symSize:], target.Class, target.ByteOrder)
	}
	return raw, st.buf, len(syms)
}

// ingest merges SYMS from OBJ and returns the per-position merged records.
func ingest(st *SymbolTable, obj Object, syms []rawSym) []*Symbol {
	raw, names, count := encodeSyms(obj.Target(), syms)
	sympointers := make([]*Symbol, count)
	st.AddFromRelobj(obj, raw, count, names, sympointers)
	return sympointers
}

// buildSec describes one section of a synthetic ELF input.
type buildSec struct {
	name      string
	typ       uint32
	flags     uint64
	data      []byte
	link      uint32
	info      uint32
	entsize   uint64
	addralign uint64
}

// buildELF assembles an in-memory ELF file: null section, the given
// sections, and a trailing .shstrtab.
func buildELF(ftype elf.Type, target *Target, secs []buildSec) *File {
	class := target.Class
	order := target.ByteOrder

	shstr := newStrtab()
	for _, s := range secs {
		shstr.add(s.name)
	}
	shstrNameOff := shstr.add(".shstrtab")

	shnum := len(secs) + 2
	off := uint64(EhdrSize(class))

	type placed struct {
		shdr Shdr
	}
	headers := make([]placed, 0, shnum)
	headers = append(headers, placed{})

	var body bytes.Buffer
	for _, s := range secs {
		align := s.addralign
		if align == 0 {
			align = 1
		}
		for (off+uint64(body.Len()))%align != 0 {
			body.WriteByte(0)
		}
		headers = append(headers, placed{Shdr{
			Name:      shstr.offs[s.name],
			Type:      s.typ,
			Flags:     s.flags,
			Offset:    off + uint64(body.Len()),
			Size:      uint64(len(s.data)),
			Link:      s.link,
			Info:      s.info,
			AddrAlign: align,
			EntSize:   s.entsize,
		}})
		body.Write(s.data)
	}

	headers = append(headers, placed{Shdr{
		Name:      shstrNameOff,
		Type:      uint32(elf.SHT_STRTAB),
		Offset:    off + uint64(body.Len()),
		Size:      uint64(len(shstr.buf)),
		AddrAlign: 1,
	}})
	body.Write(shstr.buf)

	shoff := utils.AlignTo(off+uint64(body.Len()), 8)

	ehdr := Ehdr{
		Type:     ftype,
		Machine:  target.Machine,
		Shoff:    shoff,
		Shnum:    shnum,
		Shstrndx: shnum - 1,
	}

	total := shoff + uint64(shnum*ShdrSize(class))
	out := make([]byte, total)
	ehdr.Put(out, class, order)
	copy(out[off:], body.Bytes())
	for i := range headers {
		headers[i].shdr.Put(out[shoff+uint64(i*ShdrSize(class)):], class, order)
	}

	return &File{Name: "test.o", Contents: out}
}
