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

package peephole

import (
	"github.com/psmaoalove/redex/dex"
	"github.com/psmaoalove/redex/dex/opcode"
)

// Template describes one instruction of a pattern: a set of acceptable
// opcodes, symbolic source and destination register slots, and an
// optional payload operand.
type Template struct {
	Opcodes []opcode.Opcode
	Srcs    []Register
	// Dests holds at most one destination slot.
	Dests   []Register
	Payload TemplateOperand
}

func (t *Template) acceptsOpcode(op opcode.Opcode) bool {
	for _, candidate := range t.Opcodes {
		if candidate == op {
			return true
		}
	}
	return false
}

// TemplateOperand is the payload operand of a template, as a closed
// sum: exactly one of the variants below, or nil when the template has
// only register operands.
type TemplateOperand interface {
	isTemplateOperand()
}

// MethodOperand requires (or emits) a fixed method reference.
type MethodOperand struct {
	Method *dex.Method
}

// StringOperand requires a symbolic string slot, or emits a string
// directive.
type StringOperand struct {
	String String
}

// LiteralOperand requires a symbolic literal slot, or emits a literal
// directive.
type LiteralOperand struct {
	Literal Literal
}

// TypeOperand requires or emits a symbolic type slot.
type TypeOperand struct {
	Type Type
}

// CopyOperand replaces with a clone of the Index-th matched
// instruction. Replacement-only.
type CopyOperand struct {
	Index int
}

func (MethodOperand) isTemplateOperand()  {}
func (StringOperand) isTemplateOperand()  {}
func (LiteralOperand) isTemplateOperand() {}
func (TypeOperand) isTemplateOperand()    {}
func (CopyOperand) isTemplateOperand()    {}

// copyMatchedInstruction returns a template that clones the index-th
// originally matched instruction verbatim.
func copyMatchedInstruction(index int) Template {
	return Template{
		Payload: CopyOperand{Index: index},
	}
}
