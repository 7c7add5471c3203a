package main

import (
	"fmt"
	"os"

	"github.com/go-kit/log"
	flag "github.com/spf13/pflag"

	"weld/pkg/linker"
	"weld/pkg/utils"
)

func main() {
	var (
		output    = flag.StringP("output", "o", "a.out", "output file")
		libPaths  = flag.StringArrayP("library-path", "L", nil, "library search path")
		emulation = flag.StringP("emulation", "m", "", "target emulation")
		verbose   = flag.BoolP("verbose", "v", false, "print the merged symbols")
	)
	flag.Parse()

	if flag.NArg() == 0 {
		utils.Fatal("no input files")
	}

	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	diag := linker.NewDiag(logger)

	ctx := linker.NewContext(diag)
	ctx.Args.Output = *output
	ctx.Args.LibraryPaths = *libPaths
	switch *emulation {
	case "":
	case "elf64lriscv":
		ctx.Args.Emulation = linker.MachineTypeRISCV64
	case "elf_x86_64":
		ctx.Args.Emulation = linker.MachineTypeX86_64
	default:
		utils.Fatal("unknown emulation: " + *emulation)
	}

	linker.ReadInputFiles(ctx, flag.Args())

	linker.CollectWarnings(ctx)
	linker.IngestSymbols(ctx)
	linker.CreateLayout(ctx)
	linker.DefineStandardSymbols(ctx)
	linker.WriteOutput(ctx)

	if *verbose {
		for _, obj := range ctx.Objs {
			for _, sym := range obj.Symbols {
				if sym == nil {
					continue
				}
				sym = ctx.Symtab.ResolveForwards(sym)
				where := "<none>"
				if sym.Object != nil {
					where = sym.Object.Name()
				}
				fmt.Printf("%s\t%#x\t%s\n", sym.Name, sym.Value, where)
			}
		}
	}

	if diag.Failed() {
		os.Exit(1)
	}
}
