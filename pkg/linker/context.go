package linker

import (
	"weld/pkg/stringpool"
)

type ContextArgs struct {
	Output       string
	Emulation    MachineType
	LibraryPaths []string
}

// Context carries one link's state: inputs in link order, the global
// symbol table, and the output pools.
type Context struct {
	Args ContextArgs

	Diag *Diag

	Objs    []*ObjectFile
	Shareds []*SharedFile

	Symtab  *SymbolTable
	Layout  *Layout
	SymPool *stringpool.Pool

	Target *Target
}

func NewContext(diag *Diag) *Context {
	return &Context{
		Args: ContextArgs{
			Output: "a.out",
		},
		Diag:    diag,
		Symtab:  NewSymbolTable(diag),
		Layout:  &Layout{},
		SymPool: stringpool.NewPool(),
	}
}
