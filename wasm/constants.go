package wasm

const (
	// Magic is "\0asm" read as a little-endian uint32.
	Magic   uint32 = 0x6D736100
	Version uint32 = 0x01
)

// Section IDs, in the order they must appear.
const (
	SectionType     byte = 1
	SectionImport   byte = 2
	SectionFunction byte = 3
	SectionMemory   byte = 5
	SectionGlobal   byte = 6
	SectionExport   byte = 7
	SectionStart    byte = 8
	SectionCode     byte = 10
	SectionData     byte = 11
)

// Import and export descriptor kinds.
const (
	KindFunc   byte = 0
	KindMemory byte = 2
	KindGlobal byte = 3
)

const (
	ValI32 ValType = 0x7F
	ValI64 ValType = 0x7E
	ValF32 ValType = 0x7D
	ValF64 ValType = 0x7C
)

const (
	FuncTypeByte byte = 0x60
	BlockEmpty   byte = 0x40

	LimitsHasMax byte = 0x01
)

// Opcodes emitted by Code.
const (
	OpUnreachable byte = 0x00
	OpNop         byte = 0x01
	OpIf          byte = 0x04
	OpElse        byte = 0x05
	OpEnd         byte = 0x0B
	OpReturn      byte = 0x0F
	OpCall        byte = 0x10
	OpDrop        byte = 0x1A
	OpLocalGet    byte = 0x20
	OpLocalSet    byte = 0x21
	OpGlobalGet   byte = 0x23
	OpGlobalSet   byte = 0x24
	OpI32Load     byte = 0x28
	OpI32Load8U   byte = 0x2D
	OpI32Store    byte = 0x36
	OpI32Store8   byte = 0x3A
	OpI32Const    byte = 0x41
	OpI32Eqz      byte = 0x45
	OpI32Eq       byte = 0x46
	OpI32GtU      byte = 0x4B
	OpI32Add      byte = 0x6A
	OpI32Sub      byte = 0x6B
	OpI32And      byte = 0x71
)
