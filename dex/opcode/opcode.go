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

import "fmt"

// Opcode identifies a Dalvik instruction.
// Only the subset relevant to the optimizer is modeled.
type Opcode byte

const (
	Unknown Opcode = iota

	Nop

	// Moves

	Move
	MoveObject
	Move16
	MoveResult
	MoveResultObject

	// Constant loading

	Const4
	Const16
	Const
	ConstWide16
	ConstWide32
	ConstWide
	ConstString
	ConstClass

	// Type operations

	CheckCast
	NewInstance

	// Invocations

	InvokeVirtual
	InvokeSuper
	InvokeDirect
	InvokeStatic
	InvokeInterface
	InvokeVirtualRange
	InvokeSuperRange
	InvokeDirectRange
	InvokeStaticRange
	InvokeInterfaceRange

	// Arithmetic

	NegInt
	AddIntLit16
	MulIntLit16
	DivIntLit16
	AddIntLit8
	MulIntLit8
	DivIntLit8

	// Control flow

	Goto
	IfEq
	IfNe
	IfLt
	IfGe
	IfGt
	IfLe
	IfEqz
	IfNez
	IfLtz
	IfGez
	IfGtz
	IfLez

	// Method exit

	ReturnVoid
	Return
	ReturnWide
	ReturnObject
	Throw

	OpcodeMax
)

var mnemonics = [OpcodeMax]string{
	Unknown:              "unknown",
	Nop:                  "nop",
	Move:                 "move",
	MoveObject:           "move-object",
	Move16:               "move/16",
	MoveResult:           "move-result",
	MoveResultObject:     "move-result-object",
	Const4:               "const/4",
	Const16:              "const/16",
	Const:                "const",
	ConstWide16:          "const-wide/16",
	ConstWide32:          "const-wide/32",
	ConstWide:            "const-wide",
	ConstString:          "const-string",
	ConstClass:           "const-class",
	CheckCast:            "check-cast",
	NewInstance:          "new-instance",
	InvokeVirtual:        "invoke-virtual",
	InvokeSuper:          "invoke-super",
	InvokeDirect:         "invoke-direct",
	InvokeStatic:         "invoke-static",
	InvokeInterface:      "invoke-interface",
	InvokeVirtualRange:   "invoke-virtual/range",
	InvokeSuperRange:     "invoke-super/range",
	InvokeDirectRange:    "invoke-direct/range",
	InvokeStaticRange:    "invoke-static/range",
	InvokeInterfaceRange: "invoke-interface/range",
	NegInt:               "neg-int",
	AddIntLit16:          "add-int/lit16",
	MulIntLit16:          "mul-int/lit16",
	DivIntLit16:          "div-int/lit16",
	AddIntLit8:           "add-int/lit8",
	MulIntLit8:           "mul-int/lit8",
	DivIntLit8:           "div-int/lit8",
	Goto:                 "goto",
	IfEq:                 "if-eq",
	IfNe:                 "if-ne",
	IfLt:                 "if-lt",
	IfGe:                 "if-ge",
	IfGt:                 "if-gt",
	IfLe:                 "if-le",
	IfEqz:                "if-eqz",
	IfNez:                "if-nez",
	IfLtz:                "if-ltz",
	IfGez:                "if-gez",
	IfGtz:                "if-gtz",
	IfLez:                "if-lez",
	ReturnVoid:           "return-void",
	Return:               "return",
	ReturnWide:           "return-wide",
	ReturnObject:         "return-object",
	Throw:                "throw",
}

func (o Opcode) String() string {
	if o >= OpcodeMax || mnemonics[o] == "" {
		return fmt.Sprintf("Opcode(%d)", byte(o))
	}
	return mnemonics[o]
}

// FromMnemonic returns the opcode for the given Dalvik mnemonic,
// or Unknown if there is none.
func FromMnemonic(mnemonic string) Opcode {
	op, ok := byMnemonic[mnemonic]
	if !ok {
		return Unknown
	}
	return op
}

var byMnemonic = func() map[string]Opcode {
	m := make(map[string]Opcode, OpcodeMax)
	for op := Nop; op < OpcodeMax; op++ {
		m[mnemonics[op]] = op
	}
	return m
}()

// IsInvoke returns true for all invocation opcodes, including the
// range variants.
func (o Opcode) IsInvoke() bool {
	switch o {
	case InvokeVirtual, InvokeSuper, InvokeDirect, InvokeStatic, InvokeInterface,
		InvokeVirtualRange, InvokeSuperRange, InvokeDirectRange,
		InvokeStaticRange, InvokeInterfaceRange:
		return true
	default:
		return false
	}
}

// IsBranch returns true for opcodes that transfer control to a label.
func (o Opcode) IsBranch() bool {
	switch o {
	case Goto,
		IfEq, IfNe, IfLt, IfGe, IfGt, IfLe,
		IfEqz, IfNez, IfLtz, IfGez, IfGtz, IfLez:
		return true
	default:
		return false
	}
}

// IsTerminator returns true for opcodes that end a basic block:
// unconditional control transfer or method exit.
func (o Opcode) IsTerminator() bool {
	switch o {
	case Goto, ReturnVoid, Return, ReturnWide, ReturnObject, Throw:
		return true
	default:
		return o.IsBranch()
	}
}
