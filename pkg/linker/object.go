package linker

// Object is an input object as the symbol table sees it. ObjectFile and
// SharedFile implement it; tests substitute their own.
//
// OutputSection maps an input section index to the output section it was
// placed in plus the offset of the input section within it; ok is false
// when the section was discarded. Lock serializes section reads against
// relocation-time consumers.
type Object interface {
	Name() string
	IsDynamic() bool
	Target() *Target
	IsSectionIncluded(shndx uint16) bool
	OutputSection(shndx uint16) (os *OutputSection, offset uint64, ok bool)
	SectionContents(shndx uint16) []byte
	Lock()
	Unlock()
}
