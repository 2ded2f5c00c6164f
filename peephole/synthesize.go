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
	"math"
	"strconv"
	"strings"

	"github.com/psmaoalove/redex/dex"
	"github.com/psmaoalove/redex/dex/opcode"
	"github.com/psmaoalove/redex/errors"
)

// Replacements instantiates the pattern's replacement templates with
// the bound values of a completed match, resolving computed literal and
// string directives.
//
// Must only be called after TryMatch reported completion.
func (m *Matcher) Replacements() []*dex.Instruction {
	if m.matchIndex != len(m.Pattern.Match) {
		panic(errors.NewUnexpectedError(
			"pattern %s: replacements requested before match completed",
			m.Pattern.Name,
		))
	}

	replacements := make([]*dex.Instruction, 0, len(m.Pattern.Replace))
	for _, template := range m.Pattern.Replace {

		if operand, ok := template.Payload.(CopyOperand); ok {
			if operand.Index >= len(m.matchedInstructions) {
				panic(errors.NewUnexpectedError(
					"pattern %s: copy index %d out of range",
					m.Pattern.Name,
					operand.Index,
				))
			}
			replacements = append(
				replacements,
				m.matchedInstructions[operand.Index].Clone(),
			)
			continue
		}

		replacement := m.generateInstruction(&template)

		// Fill the register operands from the bindings.
		if len(template.Dests) > 0 {
			replacement.SetDest(m.matchedRegister(template.Dests[0]))
		}
		for n, src := range template.Srcs {
			replacement.SetSource(n, m.matchedRegister(src))
		}

		switch operand := template.Payload.(type) {
		case StringOperand:
			replacement.SetPayload(dex.StringPayload{
				String: m.resolveStringDirective(operand.String),
			})
		case LiteralOperand:
			replacement.SetPayload(dex.LiteralPayload{
				Value: m.resolveLiteralDirective(operand.Literal),
			})
		case TypeOperand:
			replacement.SetPayload(dex.TypePayload{
				Type: m.matchedType(operand.Type),
			})
		}

		replacements = append(replacements, replacement)
	}
	return replacements
}

// generateInstruction creates the skeleton instruction for a
// replacement template. Unrecognized opcodes and payload mismatches are
// rule-authoring errors and abort immediately.
func (m *Matcher) generateInstruction(template *Template) *dex.Instruction {
	if len(template.Opcodes) != 1 {
		panic(errors.NewUnexpectedError(
			"pattern %s: replacement template must have a unique opcode",
			m.Pattern.Name,
		))
	}
	op := template.Opcodes[0]

	switch op {
	case opcode.InvokeDirect, opcode.InvokeStatic, opcode.InvokeVirtual:
		operand, ok := template.Payload.(MethodOperand)
		if !ok {
			panic(errSynthesisPayload(m.Pattern, op))
		}
		instruction := dex.New(op)
		instruction.SetSourceCount(len(template.Srcs))
		instruction.SetPayload(dex.MethodPayload{Method: operand.Method})
		return instruction

	case opcode.Move16, opcode.MoveResult, opcode.MoveResultObject, opcode.NegInt:
		if template.Payload != nil {
			panic(errSynthesisPayload(m.Pattern, op))
		}
		instruction := dex.New(op)
		instruction.SetSourceCount(len(template.Srcs))
		return instruction

	case opcode.ConstString:
		if _, ok := template.Payload.(StringOperand); !ok {
			panic(errSynthesisPayload(m.Pattern, op))
		}
		return dex.New(op)

	case opcode.Const4, opcode.Const16, opcode.Const:
		if _, ok := template.Payload.(LiteralOperand); !ok {
			panic(errSynthesisPayload(m.Pattern, op))
		}
		return dex.New(op)

	default:
		panic(errors.NewUnexpectedError(
			"pattern %s: unhandled replacement opcode %s",
			m.Pattern.Name,
			op,
		))
	}
}

func errSynthesisPayload(pattern *Pattern, op opcode.Opcode) error {
	return errors.NewUnexpectedError(
		"pattern %s: replacement opcode %s has wrong payload kind",
		pattern.Name,
		op,
	)
}

func (m *Matcher) resolveLiteralDirective(literal Literal) int64 {
	switch literal {
	case LiteralA:
		return m.matchedLiteral(LiteralA)

	case CompareStringsAB:
		a := m.matchedString(StringA)
		b := m.matchedString(StringB)
		// Strings are interned, so pointer comparison is content
		// comparison.
		if a == b {
			return 1
		}
		return 0

	case LengthStringA:
		return int64(m.matchedString(StringA).Utf16Length())

	default:
		panic(errors.NewUnexpectedError(
			"pattern %s: unexpected literal directive %d",
			m.Pattern.Name,
			literal,
		))
	}
}

func (m *Matcher) resolveStringDirective(str String) *dex.String {
	switch str {
	case StringA:
		return m.matchedString(StringA)

	case BooleanAToString:
		return dex.MakeString(formatBoolean(m.matchedLiteral(LiteralA)))

	case CharAToString:
		return dex.MakeString(formatChar(m.matchedLiteral(LiteralA)))

	case IntAToString:
		return dex.MakeString(formatInt(m.matchedLiteral(LiteralA)))

	case LongAToString:
		return dex.MakeString(formatLong(m.matchedLiteral(LiteralA)))

	case FloatAToString:
		return dex.MakeString(formatFloat(m.matchedLiteral(LiteralA)))

	case DoubleAToString:
		return dex.MakeString(formatDouble(m.matchedLiteral(LiteralA)))

	case ConcatABStrings:
		a := m.matchedString(StringA).Value()
		b := m.matchedString(StringB).Value()
		return dex.MakeString(a + b)

	case ConcatStringABooleanA:
		a := m.matchedString(StringA).Value()
		return dex.MakeString(a + formatBoolean(m.matchedLiteral(LiteralA)))

	case ConcatStringACharA:
		a := m.matchedString(StringA).Value()
		return dex.MakeString(a + formatChar(m.matchedLiteral(LiteralA)))

	case ConcatStringAIntA:
		a := m.matchedString(StringA).Value()
		return dex.MakeString(a + formatInt(m.matchedLiteral(LiteralA)))

	case ConcatStringALongA:
		a := m.matchedString(StringA).Value()
		return dex.MakeString(a + formatLong(m.matchedLiteral(LiteralA)))

	case TypeAGetSimpleName:
		return simpleName(m.matchedType(TypeA))

	default:
		panic(errors.NewUnexpectedError(
			"pattern %s: unexpected string directive %d",
			m.Pattern.Name,
			str,
		))
	}
}

func formatBoolean(value int64) string {
	if value != 0 {
		return "true"
	}
	return "false"
}

// formatChar re-encodes a literal holding a UTF-16 code point as a
// one-character string.
func formatChar(value int64) string {
	return string(rune(value))
}

// formatInt formats an int-typed literal, truncating to 32 bits first.
func formatInt(value int64) string {
	return strconv.FormatInt(int64(int32(value)), 10)
}

func formatLong(value int64) string {
	return strconv.FormatInt(value, 10)
}

// formatFloat reinterprets the low 32 bits of the literal as a float
// and formats it with six fractional digits.
func formatFloat(value int64) string {
	f := math.Float32frombits(uint32(int32(value)))
	return strconv.FormatFloat(float64(f), 'f', 6, 32)
}

func formatDouble(value int64) string {
	d := math.Float64frombits(uint64(value))
	return strconv.FormatFloat(d, 'f', 6, 64)
}

// simpleName extracts the class name after the last package separator,
// trimming the descriptor's trailing ';',
// e.g. "Ljava/lang/String;" -> "String".
func simpleName(typ *dex.Type) *dex.String {
	descriptor := typ.Descriptor()
	slash := strings.LastIndexByte(descriptor, '/')
	return dex.MakeString(descriptor[slash+1 : len(descriptor)-1])
}
