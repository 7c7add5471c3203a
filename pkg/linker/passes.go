package linker

import (
	"debug/elf"

	"weld/pkg/stringpool"
	"weld/pkg/utils"
)

const ImageBase = 0x200000

const warningPrefix = ".gnu.warning."

// CollectWarnings peels off .gnu.warning.SYM sections before ingestion:
// the section text becomes a warning attached to SYM and the section
// itself is excluded from the output.
func CollectWarnings(ctx *Context) {
	for _, obj := range ctx.Objs {
		for _, isec := range obj.Sections {
			if isec == nil || !isec.IsAlive {
				continue
			}
			if rest, ok := utils.RemovePrefix(isec.Name(), warningPrefix); ok {
				ctx.Symtab.Warnings().AddWarning(ctx.Symtab, rest, obj,
					isec.Shndx)
				isec.IsAlive = false
			}
		}
	}
}

// IngestSymbols merges every input's symbols, in link order.
func IngestSymbols(ctx *Context) {
	for _, obj := range ctx.Objs {
		syms, count := obj.GlobalSyms()
		obj.Symbols = make([]*Symbol, count)
		ctx.Symtab.AddFromRelobj(obj, syms, count, obj.SymStrtab, obj.Symbols)
	}
	for _, sf := range ctx.Shareds {
		syms, count := sf.Dynsyms()
		ctx.Symtab.AddFromDynobj(sf, syms, count, sf.SymStrtab, sf.Versym,
			sf.VersionMap)
	}
}

// CreateLayout folds the included input sections into output sections by
// name, allocates surviving commons into .bss, and assigns final addresses
// and indexes. One loadable segment covers the whole image.
func CreateLayout(ctx *Context) {
	foldInputSections(ctx)
	allocateCommons(ctx)
	assignAddresses(ctx)
}

func foldInputSections(ctx *Context) {
	layout := ctx.Layout

	for _, obj := range ctx.Objs {
		for _, isec := range obj.Sections {
			if isec == nil || !isec.IsAlive {
				continue
			}
			shdr := isec.Shdr()

			os := layout.FindOutputSection(isec.Name())
			if os == nil {
				os = NewOutputSection(isec.Name(), shdr.Type, shdr.Flags)
				layout.Sections = append(layout.Sections, os)
			}
			if shdr.AddrAlign > os.AddrAlign {
				os.AddrAlign = shdr.AddrAlign
			}

			os.Size = utils.AlignTo(os.Size, shdr.AddrAlign)
			isec.OutputSection = os
			isec.Offset = os.Size
			os.Size += shdr.Size
		}
	}
}

// allocateCommons gives every common symbol that survived resolution a slot
// at the end of .bss, creating the section when no input contributed one.
// A common's st_value holds its required alignment.
func allocateCommons(ctx *Context) {
	var bss *OutputSection

	for _, sym := range ctx.Symtab.Commons() {
		sym = ctx.Symtab.ResolveForwards(sym)
		if !sym.IsCommon() {
			continue
		}

		if bss == nil {
			bss = ctx.Layout.FindOutputSection(".bss")
			if bss == nil {
				bss = NewOutputSection(".bss", uint32(elf.SHT_NOBITS),
					uint64(elf.SHF_ALLOC|elf.SHF_WRITE))
				ctx.Layout.Sections = append(ctx.Layout.Sections, bss)
			}
		}

		align := sym.Value
		if align == 0 {
			align = 1
		}
		if align > bss.AddrAlign {
			bss.AddrAlign = align
		}
		bss.Size = utils.AlignTo(bss.Size, align)

		sym.Source = InOutputData
		sym.Data = bss
		sym.OffsetIsFromEnd = false
		sym.Object = nil
		sym.Value = bss.Size
		sym.IsDef = true
		bss.Size += sym.SymSize
	}
}

func assignAddresses(ctx *Context) {
	layout := ctx.Layout

	addr := uint64(ImageBase)
	fileSz := uint64(0)
	for i, os := range layout.Sections {
		os.Shndx = uint16(i + 1)
		addr = utils.AlignTo(addr, os.AddrAlign)
		os.Addr = addr
		addr += os.Size
		if elf.SectionType(os.Type) != elf.SHT_NOBITS {
			fileSz = addr - ImageBase
		}
	}

	layout.Segments = append(layout.Segments, &OutputSegment{
		Type:   elf.PT_LOAD,
		Flags:  elf.PF_R | elf.PF_W | elf.PF_X,
		VAddr:  ImageBase,
		MemSz:  addr - ImageBase,
		FileSz: fileSz,
	})
}

// DefineStandardSymbols plants the usual linker-provided symbols against
// the layout.
func DefineStandardSymbols(ctx *Context) {
	sectionDefs := []DefineSymbolInSection{
		{Name: "__bss_start", Section: ".bss",
			Type: elf.STT_NOTYPE, Binding: elf.STB_GLOBAL},
		{Name: "__preinit_array_start", Section: ".preinit_array",
			Type: elf.STT_NOTYPE, Binding: elf.STB_GLOBAL,
			Visibility: elf.STV_HIDDEN, OnlyIfRef: true},
		{Name: "__preinit_array_end", Section: ".preinit_array",
			Type: elf.STT_NOTYPE, Binding: elf.STB_GLOBAL,
			Visibility: elf.STV_HIDDEN, OffsetIsFromEnd: true, OnlyIfRef: true},
	}

	segmentDefs := []DefineSymbolInSegment{
		{Name: "__executable_start", SegmentType: elf.PT_LOAD,
			SegmentFlagsSet: elf.PF_R,
			Type:            elf.STT_NOTYPE, Binding: elf.STB_GLOBAL,
			OffsetBase: SegmentStart},
		{Name: "_etext", SegmentType: elf.PT_LOAD,
			SegmentFlagsSet: elf.PF_X,
			Type:            elf.STT_NOTYPE, Binding: elf.STB_GLOBAL,
			OffsetBase: SegmentEnd, OnlyIfRef: true},
		{Name: "_edata", SegmentType: elf.PT_LOAD,
			SegmentFlagsSet: elf.PF_W,
			Type:            elf.STT_NOTYPE, Binding: elf.STB_GLOBAL,
			OffsetBase: SegmentBss},
		{Name: "_end", SegmentType: elf.PT_LOAD,
			SegmentFlagsSet: elf.PF_W,
			Type:            elf.STT_NOTYPE, Binding: elf.STB_GLOBAL,
			OffsetBase: SegmentEnd},
	}

	ctx.Symtab.DefineSectionSymbols(ctx.Layout, ctx.Target, sectionDefs)
	ctx.Symtab.DefineSegmentSymbols(ctx.Layout, ctx.Target, segmentDefs)
}

// WriteOutput finalizes the symbol table and writes the output image:
// file header, global symbol table, string tables, and the section
// header table.
func WriteOutput(ctx *Context) {
	class := ctx.Symtab.Class()
	order := ctx.Target.ByteOrder

	// The symbol table leads with the customary null record; the merged
	// globals follow it.
	symtabOff := uint64(EhdrSize(class))
	off := ctx.Symtab.Finalize(symtabOff+uint64(SymSize(class)), ctx.SymPool)
	symtabSize := off - symtabOff

	strtabOff := off
	strtabSize := uint64(ctx.SymPool.Size())

	shstrPool := stringpool.NewPool()
	for _, os := range ctx.Layout.Sections {
		shstrPool.Add(os.Name)
	}
	shstrPool.Add(".symtab")
	shstrPool.Add(".strtab")
	shstrPool.Add(".shstrtab")

	shstrtabOff := strtabOff + strtabSize
	shstrtabSize := uint64(shstrPool.Size())

	shoff := utils.AlignTo(shstrtabOff+shstrtabSize, uint64(class.AddrSize()))

	// null + output sections + .symtab + .strtab + .shstrtab
	shnum := 1 + len(ctx.Layout.Sections) + 3
	symtabNdx := 1 + len(ctx.Layout.Sections)
	strtabNdx := symtabNdx + 1
	shstrtabNdx := strtabNdx + 1

	shdrSize := uint64(ShdrSize(class))
	total := shoff + uint64(shnum)*shdrSize

	of := NewOutputFile(ctx.Args.Output, total)

	ehdr := Ehdr{
		Type:     elf.ET_REL,
		Machine:  ctx.Target.Machine,
		Shoff:    shoff,
		Shnum:    shnum,
		Shstrndx: shstrtabNdx,
	}
	ehdr.Put(of.Buf, class, order)

	ctx.Symtab.WriteGlobals(ctx.Target, ctx.SymPool, of)

	copy(of.Buf[strtabOff:], ctx.SymPool.Contents())
	copy(of.Buf[shstrtabOff:], shstrPool.Contents())

	putShdr := func(ndx int, shdr *Shdr) {
		shdr.Put(of.Buf[shoff+uint64(ndx)*shdrSize:], class, order)
	}

	shstrOffsetOf := func(name string) uint32 {
		off, ok := shstrPool.GetOffset(name)
		utils.Assert(ok)
		return off
	}

	for _, os := range ctx.Layout.Sections {
		putShdr(int(os.Shndx), &Shdr{
			Name:      shstrOffsetOf(os.Name),
			Type:      os.Type,
			Flags:     os.Flags,
			Addr:      os.Addr,
			Size:      os.Size,
			AddrAlign: os.AddrAlign,
		})
	}

	putShdr(symtabNdx, &Shdr{
		Name:      shstrOffsetOf(".symtab"),
		Type:      uint32(elf.SHT_SYMTAB),
		Offset:    symtabOff,
		Size:      symtabSize,
		Link:      uint32(strtabNdx),
		Info:      1,
		AddrAlign: uint64(class.AddrSize()),
		EntSize:   uint64(SymSize(class)),
	})
	putShdr(strtabNdx, &Shdr{
		Name:      shstrOffsetOf(".strtab"),
		Type:      uint32(elf.SHT_STRTAB),
		Offset:    strtabOff,
		Size:      strtabSize,
		AddrAlign: 1,
	})
	putShdr(shstrtabNdx, &Shdr{
		Name:      shstrOffsetOf(".shstrtab"),
		Type:      uint32(elf.SHT_STRTAB),
		Offset:    shstrtabOff,
		Size:      shstrtabSize,
		AddrAlign: 1,
	})

	utils.MustNo(of.Save())
}
