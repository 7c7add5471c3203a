package linker

// A warning section attaches text to a symbol name: any relocation against
// the symbol should print it.
type warningLoc struct {
	object Object
	shndx  uint16
	text   string
}

// Warnings collects .gnu.warning-style entries until the symbol table is
// final, then marks the matching records.
type Warnings struct {
	warnings map[string]*warningLoc
	diag     *Diag
}

func NewWarnings(diag *Diag) *Warnings {
	return &Warnings{
		warnings: make(map[string]*warningLoc),
		diag:     diag,
	}
}

// AddWarning records that SHNDX of OBJECT holds warning text for NAME.
func (w *Warnings) AddWarning(symtab *SymbolTable, name string, object Object,
	shndx uint16) {
	name = symtab.CanonicalizeName(name)
	w.warnings[name] = &warningLoc{object: object, shndx: shndx}
}

// NoteWarnings marks the merged symbols whose winner is the recorded
// object and materializes each warning's text. Called from Finalize, when
// the winners are stable. The text is read now because warnings are issued
// while relocating, when the object's lock may not be taken again.
func (w *Warnings) NoteWarnings(symtab *SymbolTable) {
	for name, loc := range w.warnings {
		sym := symtab.Lookup(name, "")
		if sym == nil || sym.Source != FromObject || sym.Object != loc.object {
			continue
		}
		sym.HasWarning = true

		func() {
			loc.object.Lock()
			defer loc.object.Unlock()
			loc.text = string(loc.object.SectionContents(loc.shndx))
		}()
	}
}

// IssueWarning prints the warning attached to SYM for a relocation at
// LOCATION.
func (w *Warnings) IssueWarning(sym *Symbol, location string) {
	if !sym.HasWarning {
		return
	}
	loc, ok := w.warnings[sym.Name]
	if !ok {
		return
	}
	w.diag.Warnf("%s: %s", location, loc.text)
}
