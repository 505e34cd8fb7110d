// Package ir defines the intermediate representation used by texlegal.
//
// # Structure
//
// The IR is organized around a Module that contains:
//   - Types: all type definitions, deduplicated through a TypeRegistry
//   - Insts: a single arena holding every instruction of the module
//   - Globals: module-scope instructions (global variables, constants)
//   - Functions: each owning an ordered list of basic blocks
//
// Instructions are referenced by InstHandle. A block is an ordered list of
// handles ending in a terminator. Each instruction records the instructions
// that use it, so uses can be rewritten in place with ReplaceAllUsesWith.
//
// # Removal
//
// RemoveInst tombstones the instruction and its slot in the owning block.
// Slots of the other instructions do not move, so a pass may remove the
// instruction it is visiting while walking a block by index. Compact drops the
// tombstones once the walk is over.
//
// # Instruction kinds
//
// InstKind is a closed set of variants, each carrying its own operand layout.
// The texture capability queries (InstIsTextureAccess, InstIsTextureArrayAccess,
// InstIsTextureScalarAccess) share the CapabilityQuery interface and have
// exactly one operand, the address under interrogation.
package ir
