package wasm

import (
	"github.com/wippyai/kool-runtime/wasm/internal/binary"
)

// Encode encodes the module to the wasm binary format. Empty sections are
// omitted.
func (m *Module) Encode() []byte {
	w := binary.NewWriter()
	w.WriteU32LE(Magic)
	w.WriteU32LE(Version)

	if len(m.Types) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(m.Types)))
		for _, ft := range m.Types {
			sec.Byte(FuncTypeByte)
			writeValTypes(sec, ft.Params)
			writeValTypes(sec, ft.Results)
		}
		w.Section(SectionType, sec)
	}

	if len(m.Imports) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(m.Imports)))
		for _, imp := range m.Imports {
			sec.WriteName(imp.Module)
			sec.WriteName(imp.Name)
			sec.Byte(KindFunc)
			sec.WriteU32(imp.TypeIdx)
		}
		w.Section(SectionImport, sec)
	}

	if len(m.Funcs) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(m.Funcs)))
		for _, typeIdx := range m.Funcs {
			sec.WriteU32(typeIdx)
		}
		w.Section(SectionFunction, sec)
	}

	if len(m.Memories) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(m.Memories)))
		for _, l := range m.Memories {
			writeLimits(sec, l)
		}
		w.Section(SectionMemory, sec)
	}

	if len(m.Globals) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(m.Globals)))
		for _, g := range m.Globals {
			sec.Byte(byte(ValI32))
			if g.Mutable {
				sec.Byte(1)
			} else {
				sec.Byte(0)
			}
			sec.Byte(OpI32Const)
			sec.WriteS32(g.Init)
			sec.Byte(OpEnd)
		}
		w.Section(SectionGlobal, sec)
	}

	if len(m.Exports) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(m.Exports)))
		for _, exp := range m.Exports {
			sec.WriteName(exp.Name)
			sec.Byte(exp.Kind)
			sec.WriteU32(exp.Idx)
		}
		w.Section(SectionExport, sec)
	}

	if m.Start != nil {
		sec := binary.NewWriter()
		sec.WriteU32(*m.Start)
		w.Section(SectionStart, sec)
	}

	if len(m.Code) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(m.Code)))
		for _, body := range m.Code {
			fn := binary.NewWriter()
			fn.WriteU32(uint32(len(body.Locals)))
			for _, local := range body.Locals {
				fn.WriteU32(local.Count)
				fn.Byte(byte(local.ValType))
			}
			fn.WriteBytes(body.Code)
			sec.WriteU32(uint32(fn.Len()))
			sec.WriteBytes(fn.Bytes())
		}
		w.Section(SectionCode, sec)
	}

	if len(m.Data) > 0 {
		sec := binary.NewWriter()
		sec.WriteU32(uint32(len(m.Data)))
		for _, d := range m.Data {
			sec.WriteU32(0) // active, memory 0
			sec.Byte(OpI32Const)
			sec.WriteS32(int32(d.Offset))
			sec.Byte(OpEnd)
			sec.WriteU32(uint32(len(d.Init)))
			sec.WriteBytes(d.Init)
		}
		w.Section(SectionData, sec)
	}

	return w.Bytes()
}

func writeValTypes(w *binary.Writer, types []ValType) {
	w.WriteU32(uint32(len(types)))
	for _, t := range types {
		w.Byte(byte(t))
	}
}

func writeLimits(w *binary.Writer, l Limits) {
	if l.Max != nil {
		w.Byte(LimitsHasMax)
		w.WriteU32(l.Min)
		w.WriteU32(*l.Max)
		return
	}
	w.Byte(0)
	w.WriteU32(l.Min)
}
