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
	"github.com/psmaoalove/redex/errors"
)

// Matcher holds the matching state for one pattern during a sweep:
// the position in the match template list, the instructions matched so
// far, and the bindings of symbolic registers, literals, strings, and
// types to concrete values.
//
// Bindings are append-only within one match attempt: once a symbolic
// identity is bound it stays bound until Reset.
type Matcher struct {
	Pattern *Pattern

	matchIndex          int
	matchedInstructions []*dex.Instruction

	matchedRegisters [registerArraySize]dex.Reg
	boundRegisters   [registerArraySize]bool

	matchedLiterals [literalArraySize]int64
	boundLiterals   [literalArraySize]bool

	matchedStrings [stringArraySize]*dex.String
	boundStrings   [stringArraySize]bool

	matchedTypes [typeArraySize]*dex.Type
	boundTypes   [typeArraySize]bool
}

func NewMatcher(pattern *Pattern) *Matcher {
	return &Matcher{Pattern: pattern}
}

// Reset clears all matching state.
func (m *Matcher) Reset() {
	m.matchIndex = 0
	m.matchedInstructions = m.matchedInstructions[:0]
	clear(m.boundRegisters[:])
	clear(m.boundLiterals[:])
	clear(m.boundStrings[:])
	clear(m.boundTypes[:])
}

// MatchedInstructions returns the instructions matched so far,
// in match order. The slice is owned by the matcher.
func (m *Matcher) MatchedInstructions() []*dex.Instruction {
	return m.matchedInstructions
}

// TryMatch updates the matching state for the given instruction.
// Returns true if the instruction completes the match template list
// and the pattern's predicate (if any) accepts the bindings.
//
// On a mismatch, the sweep heuristic applies: only when the failure
// occurs on the second template of the pattern is the instruction
// retried against the first template, from fresh state. Any other
// failure resets the matcher outright; earlier instructions are never
// rescanned.
func (m *Matcher) TryMatch(instruction *dex.Instruction) bool {
	if !m.matchInstruction(&m.Pattern.Match[m.matchIndex], instruction) {
		retry := m.matchIndex == 1
		m.Reset()
		if !retry || !m.matchInstruction(&m.Pattern.Match[0], instruction) {
			m.Reset()
			return false
		}
	}

	m.matchedInstructions = append(m.matchedInstructions, instruction)
	m.matchIndex++

	done := m.matchIndex == len(m.Pattern.Match)

	// Even with everything matched, the predicate may still veto.
	if done && m.Pattern.Predicate != nil && !m.Pattern.Predicate(m) {
		m.Reset()
		return false
	}
	return done
}

// matchInstruction reports whether the instruction satisfies the
// template. Bindings are applied incrementally and are not rolled back
// on failure; the caller resets on overall failure.
func (m *Matcher) matchInstruction(template *Template, instruction *dex.Instruction) bool {
	if !template.acceptsOpcode(instruction.Opcode()) ||
		len(template.Srcs) != instruction.SourceCount() ||
		len(template.Dests) != destCount(instruction) {
		return false
	}

	if len(template.Dests) != 0 {
		if !m.matchRegister(template.Dests[0], instruction.Dest()) {
			return false
		}
	}

	for n, src := range template.Srcs {
		if !m.matchRegister(src, instruction.Source(n)) {
			return false
		}
	}

	switch operand := template.Payload.(type) {
	case nil:
		return true
	case StringOperand:
		return m.matchString(operand.String, instruction.StringRef())
	case LiteralOperand:
		return m.matchLiteral(operand.Literal, instruction.Literal())
	case MethodOperand:
		// Always a fixed external reference; no binding table.
		return operand.Method == instruction.MethodRef()
	case TypeOperand:
		return m.matchType(operand.Type, instruction.TypeRef())
	case CopyOperand:
		panic(errors.NewUnexpectedError(
			"copy operands can only be used in replacements, not matches",
		))
	default:
		panic(errors.NewUnreachableError())
	}
}

func destCount(instruction *dex.Instruction) int {
	if instruction.HasDest() {
		return 1
	}
	return 0
}

func (m *Matcher) matchRegister(reg Register, value dex.Reg) bool {
	// This register has been observed already. Check whether they are same.
	if m.boundRegisters[reg] {
		return m.matchedRegisters[reg] == value
	}

	// Refuse to match if the register exceeds the replacement's width limit.
	if !m.Pattern.registerCanMatchValue(reg, value) {
		return false
	}

	// Newly observed. Remember it.
	m.matchedRegisters[reg] = value
	m.boundRegisters[reg] = true
	return true
}

func (m *Matcher) matchLiteral(literal Literal, value int64) bool {
	if m.boundLiterals[literal] {
		return m.matchedLiterals[literal] == value
	}
	m.matchedLiterals[literal] = value
	m.boundLiterals[literal] = true
	return true
}

func (m *Matcher) matchString(str String, value *dex.String) bool {
	if str == StringEmpty {
		return value.Utf16Length() == 0
	}
	if m.boundStrings[str] {
		return m.matchedStrings[str] == value
	}
	m.matchedStrings[str] = value
	m.boundStrings[str] = true
	return true
}

func (m *Matcher) matchType(typ Type, value *dex.Type) bool {
	if m.boundTypes[typ] {
		return m.matchedTypes[typ] == value
	}
	m.matchedTypes[typ] = value
	m.boundTypes[typ] = true
	return true
}

// Bound-value accessors. Absence of a required binding during
// replacement is an internal consistency error.

func (m *Matcher) matchedRegister(reg Register) dex.Reg {
	if !m.boundRegisters[reg] {
		panic(errors.NewUnexpectedError(
			"pattern %s: unbound symbolic register %d",
			m.Pattern.Name,
			reg,
		))
	}
	return m.matchedRegisters[reg]
}

func (m *Matcher) matchedLiteral(literal Literal) int64 {
	if !m.boundLiterals[literal] {
		panic(errors.NewUnexpectedError(
			"pattern %s: unbound symbolic literal %d",
			m.Pattern.Name,
			literal,
		))
	}
	return m.matchedLiterals[literal]
}

func (m *Matcher) matchedString(str String) *dex.String {
	if !m.boundStrings[str] {
		panic(errors.NewUnexpectedError(
			"pattern %s: unbound symbolic string %d",
			m.Pattern.Name,
			str,
		))
	}
	return m.matchedStrings[str]
}

func (m *Matcher) matchedType(typ Type) *dex.Type {
	if !m.boundTypes[typ] {
		panic(errors.NewUnexpectedError(
			"pattern %s: unbound symbolic type %d",
			m.Pattern.Name,
			typ,
		))
	}
	return m.matchedTypes[typ]
}
