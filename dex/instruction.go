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

package dex

import (
	"fmt"
	"strings"

	"github.com/psmaoalove/redex/dex/opcode"
)

// Reg is a virtual register number.
type Reg uint16

func (r Reg) String() string {
	return fmt.Sprintf("v%d", uint16(r))
}

// Payload is the non-register operand of an instruction,
// as a closed sum: exactly one of the variants below, or nil for
// instructions with only register operands.
type Payload interface {
	isPayload()
}

// MethodPayload is the method reference of an invocation.
type MethodPayload struct {
	Method *Method
}

// StringPayload is the string constant of a const-string.
type StringPayload struct {
	String *String
}

// LiteralPayload is a signed 64-bit immediate.
type LiteralPayload struct {
	Value int64
}

// TypePayload is the type reference of a const-class, check-cast,
// or new-instance.
type TypePayload struct {
	Type *Type
}

// BranchPayload is the target of a goto or if instruction.
type BranchPayload struct {
	Target *Label
}

func (MethodPayload) isPayload()  {}
func (StringPayload) isPayload()  {}
func (LiteralPayload) isPayload() {}
func (TypePayload) isPayload()    {}
func (BranchPayload) isPayload()  {}

// Item is an entry of a method's code list:
// either a real *Instruction or a pseudo-entry such as a *Label.
type Item interface {
	isCodeItem()
}

// Label is a pseudo-entry marking a branch target.
type Label struct {
	Name string
}

func (*Label) isCodeItem() {}

func (l *Label) String() string {
	return ":" + l.Name
}

// Instruction is a decoded Dalvik instruction: an opcode, an ordered
// list of source registers, an optional destination register, and an
// optional payload.
type Instruction struct {
	op      opcode.Opcode
	srcs    []Reg
	dest    Reg
	hasDest bool
	payload Payload
}

var _ Item = &Instruction{}

func (*Instruction) isCodeItem() {}

// New returns a bare instruction of the given opcode, with no operands.
// Operands are attached with SetDest, SetSources, and SetPayload.
func New(op opcode.Opcode) *Instruction {
	return &Instruction{op: op}
}

func (i *Instruction) Opcode() opcode.Opcode {
	return i.op
}

func (i *Instruction) SourceCount() int {
	return len(i.srcs)
}

func (i *Instruction) Source(n int) Reg {
	return i.srcs[n]
}

func (i *Instruction) SetSources(srcs ...Reg) {
	i.srcs = srcs
}

func (i *Instruction) SetSource(n int, reg Reg) {
	i.srcs[n] = reg
}

// SetSourceCount resizes the source register list to n entries,
// to be filled with SetSource.
func (i *Instruction) SetSourceCount(n int) {
	i.srcs = make([]Reg, n)
}

func (i *Instruction) HasDest() bool {
	return i.hasDest
}

func (i *Instruction) Dest() Reg {
	return i.dest
}

func (i *Instruction) SetDest(reg Reg) {
	i.dest = reg
	i.hasDest = true
}

func (i *Instruction) Payload() Payload {
	return i.payload
}

func (i *Instruction) SetPayload(payload Payload) {
	i.payload = payload
}

// Literal returns the immediate value.
// The instruction must carry a LiteralPayload.
func (i *Instruction) Literal() int64 {
	return i.payload.(LiteralPayload).Value
}

// StringRef returns the string constant.
// The instruction must carry a StringPayload.
func (i *Instruction) StringRef() *String {
	return i.payload.(StringPayload).String
}

// MethodRef returns the invoked method.
// The instruction must carry a MethodPayload.
func (i *Instruction) MethodRef() *Method {
	return i.payload.(MethodPayload).Method
}

// TypeRef returns the type reference.
// The instruction must carry a TypePayload.
func (i *Instruction) TypeRef() *Type {
	return i.payload.(TypePayload).Type
}

// Target returns the branch target.
// The instruction must carry a BranchPayload.
func (i *Instruction) Target() *Label {
	return i.payload.(BranchPayload).Target
}

// Clone returns a copy of the instruction with identical operands.
// Payloads are interned or immutable, so they are shared.
func (i *Instruction) Clone() *Instruction {
	clone := &Instruction{
		op:      i.op,
		dest:    i.dest,
		hasDest: i.hasDest,
		payload: i.payload,
	}
	if i.srcs != nil {
		clone.srcs = make([]Reg, len(i.srcs))
		copy(clone.srcs, i.srcs)
	}
	return clone
}

func (i *Instruction) String() string {
	var builder strings.Builder
	builder.WriteString(i.op.String())
	operands := i.OperandsString()
	if operands != "" {
		builder.WriteByte(' ')
		builder.WriteString(operands)
	}
	return builder.String()
}

// OperandsString formats the operands the way they appear in a
// disassembly listing: destination first, then sources (invoke sources
// in braces), then the payload.
func (i *Instruction) OperandsString() string {
	var parts []string

	if i.hasDest {
		parts = append(parts, i.dest.String())
	}

	if i.op.IsInvoke() {
		srcs := make([]string, len(i.srcs))
		for n, src := range i.srcs {
			srcs[n] = src.String()
		}
		parts = append(parts, "{"+strings.Join(srcs, ", ")+"}")
	} else {
		for _, src := range i.srcs {
			parts = append(parts, src.String())
		}
	}

	switch payload := i.payload.(type) {
	case nil:
		// only register operands
	case MethodPayload:
		parts = append(parts, payload.Method.String())
	case StringPayload:
		parts = append(parts, payload.String.String())
	case LiteralPayload:
		parts = append(parts, fmt.Sprintf("#%d", payload.Value))
	case TypePayload:
		parts = append(parts, payload.Type.String())
	case BranchPayload:
		parts = append(parts, payload.Target.String())
	}

	return strings.Join(parts, ", ")
}

// Convenience constructors, mirroring the Dalvik formats.

// NewConst returns a const-family instruction loading an immediate.
func NewConst(op opcode.Opcode, dest Reg, value int64) *Instruction {
	i := New(op)
	i.SetDest(dest)
	i.SetPayload(LiteralPayload{Value: value})
	return i
}

func NewConstString(dest Reg, s *String) *Instruction {
	i := New(opcode.ConstString)
	i.SetDest(dest)
	i.SetPayload(StringPayload{String: s})
	return i
}

func NewConstClass(dest Reg, t *Type) *Instruction {
	i := New(opcode.ConstClass)
	i.SetDest(dest)
	i.SetPayload(TypePayload{Type: t})
	return i
}

func NewNewInstance(dest Reg, t *Type) *Instruction {
	i := New(opcode.NewInstance)
	i.SetDest(dest)
	i.SetPayload(TypePayload{Type: t})
	return i
}

func NewCheckCast(src Reg, t *Type) *Instruction {
	i := New(opcode.CheckCast)
	i.SetSources(src)
	i.SetPayload(TypePayload{Type: t})
	return i
}

func NewInvoke(op opcode.Opcode, method *Method, args ...Reg) *Instruction {
	i := New(op)
	i.SetSources(args...)
	i.SetPayload(MethodPayload{Method: method})
	return i
}

func NewMove(op opcode.Opcode, dest Reg, src Reg) *Instruction {
	i := New(op)
	i.SetDest(dest)
	i.SetSources(src)
	return i
}

func NewMoveResult(op opcode.Opcode, dest Reg) *Instruction {
	i := New(op)
	i.SetDest(dest)
	return i
}

func NewUnary(op opcode.Opcode, dest Reg, src Reg) *Instruction {
	i := New(op)
	i.SetDest(dest)
	i.SetSources(src)
	return i
}

// NewLitArith returns a two-address arithmetic instruction with an
// immediate operand, e.g. add-int/lit8.
func NewLitArith(op opcode.Opcode, dest Reg, src Reg, value int64) *Instruction {
	i := New(op)
	i.SetDest(dest)
	i.SetSources(src)
	i.SetPayload(LiteralPayload{Value: value})
	return i
}

func NewGoto(target *Label) *Instruction {
	i := New(opcode.Goto)
	i.SetPayload(BranchPayload{Target: target})
	return i
}

func NewIf(op opcode.Opcode, target *Label, srcs ...Reg) *Instruction {
	i := New(op)
	i.SetSources(srcs...)
	i.SetPayload(BranchPayload{Target: target})
	return i
}

func NewReturn(op opcode.Opcode, srcs ...Reg) *Instruction {
	i := New(op)
	i.SetSources(srcs...)
	return i
}
