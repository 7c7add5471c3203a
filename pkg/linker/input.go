package linker

import (
	"os"
	"path/filepath"

	"weld/pkg/utils"
)

func ReadInputFiles(ctx *Context, remaining []string) {
	for _, arg := range remaining {
		var ok bool

		if arg, ok = utils.RemovePrefix(arg, "-l"); ok {
			ReadFile(ctx, FindLibrary(ctx, arg))
		} else {
			ReadFile(ctx, MustNewFile(arg))
		}
	}
}

func FindLibrary(ctx *Context, name string) *File {
	for _, dir := range ctx.Args.LibraryPaths {
		for _, stem := range []string{"lib" + name + ".so", "lib" + name + ".a"} {
			path := filepath.Join(dir, stem)
			if _, err := os.Stat(path); err == nil {
				return MustNewFile(path)
			}
		}
	}
	utils.Fatal("library not found: " + name)
	return nil
}

func ReadFile(ctx *Context, file *File) {
	ft := GetFileType(file.Contents)

	switch ft {
	case FileTypeObject:
		ctx.Objs = append(ctx.Objs, CreateObjectFile(ctx, file))
	case FileTypeShared:
		ctx.Shareds = append(ctx.Shareds, CreateSharedFile(ctx, file))
	case FileTypeArchive:
		for _, child := range ReadArchiveMembers(file) {
			utils.Assert(GetFileType(child.Contents) == FileTypeObject)
			ctx.Objs = append(ctx.Objs, CreateObjectFile(ctx, child))
		}
	default:
		utils.Fatal("unknown file type")
	}
}

func checkEmulation(ctx *Context, file *File) {
	mt := GetMachineTypeFromContents(file.Contents)
	if ctx.Args.Emulation == MachineTypeNone {
		ctx.Args.Emulation = mt
	}
	if mt != ctx.Args.Emulation {
		utils.Fatal("incompatible file type")
	}
}

func CreateObjectFile(ctx *Context, file *File) *ObjectFile {
	checkEmulation(ctx, file)

	obj := NewObjectFile(file)
	obj.Parse()
	if ctx.Target == nil {
		ctx.Target = obj.Target()
	}

	return obj
}

func CreateSharedFile(ctx *Context, file *File) *SharedFile {
	checkEmulation(ctx, file)

	sf := NewSharedFile(file)
	sf.Parse()
	if ctx.Target == nil {
		ctx.Target = sf.Target()
	}

	return sf
}
