package linker

import "weld/pkg/utils"

// InputSection is one section of a relocatable input. IsAlive is cleared
// when the section is not included in the output; OutputSection and Offset
// are filled by layout for the sections that are.
type InputSection struct {
	File     *ObjectFile
	Contents []byte
	Shndx    uint16
	IsAlive  bool

	OutputSection *OutputSection
	Offset        uint64
}

func NewInputSection(file *ObjectFile, shndx uint16) *InputSection {
	s := &InputSection{
		File:    file,
		Shndx:   shndx,
		IsAlive: true,
	}

	shdr := s.Shdr()
	s.Contents = file.File.Contents[shdr.Offset : shdr.Offset+shdr.Size]

	return s
}

func (i *InputSection) Shdr() *Shdr {
	utils.Assert(int(i.Shndx) < len(i.File.Sections))
	return &i.File.InputFile.Sections[i.Shndx]
}

func (i *InputSection) Name() string {
	return i.File.SectionName(i.Shdr())
}
