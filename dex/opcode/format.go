/*
 * Redex - A peephole optimizer for Dalvik bytecode
 *
 * Copyright Redex Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *   http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package opcode

// Format is a Dalvik instruction encoding format.
// The format determines how many code units an instruction occupies
// and how many bits each register operand is encoded with.
type Format byte

const (
	FormatUnknown Format = iota
	Format10x            // op
	Format10t            // op +AA
	Format11n            // op vA, #+B
	Format11x            // op vAA
	Format12x            // op vA, vB
	Format21c            // op vAA, thing@BBBB
	Format21s            // op vAA, #+BBBB
	Format21t            // op vAA, +BBBB
	Format22b            // op vAA, vBB, #+CC
	Format22s            // op vA, vB, #+CCCC
	Format22t            // op vA, vB, +CCCC
	Format31i            // op vAA, #+BBBBBBBB
	Format32x            // op vAAAA, vBBBB
	Format35c            // op {vC..vG}, thing@BBBB
	Format3rc            // op {vCCCC..vNNNN}, thing@BBBB
	Format51l            // op vAA, #+BBBBBBBBBBBBBBBB
)

// registerBitWidths is the bit width of every register operand of the
// format, in encoding order. Formats with register lists (35c, 3rc) use
// the same width for every list element.
var registerBitWidths = map[Format][]int{
	Format10x: nil,
	Format10t: nil,
	Format11n: {4},
	Format11x: {8},
	Format12x: {4, 4},
	Format21c: {8},
	Format21s: {8},
	Format21t: {8},
	Format22b: {8, 8},
	Format22s: {4, 4},
	Format22t: {4, 4},
	Format31i: {8},
	Format32x: {16, 16},
	Format35c: {4},
	Format3rc: {16},
	Format51l: {8},
}

var formats = [OpcodeMax]Format{
	Nop:                  Format10x,
	Move:                 Format12x,
	MoveObject:           Format12x,
	Move16:               Format32x,
	MoveResult:           Format11x,
	MoveResultObject:     Format11x,
	Const4:               Format11n,
	Const16:              Format21s,
	Const:                Format31i,
	ConstWide16:          Format21s,
	ConstWide32:          Format31i,
	ConstWide:            Format51l,
	ConstString:          Format21c,
	ConstClass:           Format21c,
	CheckCast:            Format21c,
	NewInstance:          Format21c,
	InvokeVirtual:        Format35c,
	InvokeSuper:          Format35c,
	InvokeDirect:         Format35c,
	InvokeStatic:         Format35c,
	InvokeInterface:      Format35c,
	InvokeVirtualRange:   Format3rc,
	InvokeSuperRange:     Format3rc,
	InvokeDirectRange:    Format3rc,
	InvokeStaticRange:    Format3rc,
	InvokeInterfaceRange: Format3rc,
	NegInt:               Format12x,
	AddIntLit16:          Format22s,
	MulIntLit16:          Format22s,
	DivIntLit16:          Format22s,
	AddIntLit8:           Format22b,
	MulIntLit8:           Format22b,
	DivIntLit8:           Format22b,
	Goto:                 Format10t,
	IfEq:                 Format22t,
	IfNe:                 Format22t,
	IfLt:                 Format22t,
	IfGe:                 Format22t,
	IfGt:                 Format22t,
	IfLe:                 Format22t,
	IfEqz:                Format21t,
	IfNez:                Format21t,
	IfLtz:                Format21t,
	IfGez:                Format21t,
	IfGtz:                Format21t,
	IfLez:                Format21t,
	ReturnVoid:           Format10x,
	Return:               Format11x,
	ReturnWide:           Format11x,
	ReturnObject:         Format11x,
	Throw:                Format11x,
}

// FormatOf returns the encoding format of the given opcode.
func (o Opcode) Format() Format {
	if o >= OpcodeMax {
		return FormatUnknown
	}
	return formats[o]
}

// NoWidthLimit is the bit width reported for opcodes without register
// operands: any register fits.
const NoWidthLimit = 16

// MinVRegBitWidth returns the smallest bit width of any source or
// destination register operand for the given opcode.
// Returns NoWidthLimit if the opcode has no register operands.
func MinVRegBitWidth(o Opcode) int {
	result := NoWidthLimit
	for _, width := range registerBitWidths[o.Format()] {
		result = min(result, width)
	}
	return result
}
