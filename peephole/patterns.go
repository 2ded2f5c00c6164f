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

const (
	javaString        = "Ljava/lang/String;"
	javaStringBuilder = "Ljava/lang/StringBuilder;"
	javaObject        = "Ljava/lang/Object;"
	javaClass         = "Ljava/lang/Class;"
)

// Template helpers

// invoke-direct {instance}, Ljava/lang/StringBuilder;.<init>:()V
func invokeStringBuilderInit(instance Register) Template {
	return Template{
		Opcodes: []opcode.Opcode{opcode.InvokeDirect},
		Srcs:    []Register{instance},
		Payload: MethodOperand{
			Method: dex.MakeMethod(javaStringBuilder, "<init>", "V"),
		},
	}
}

// invoke-direct {instance, argument},
// Ljava/lang/StringBuilder;.<init>:(Ljava/lang/String;)V
func invokeStringBuilderInitString(instance Register, argument Register) Template {
	return Template{
		Opcodes: []opcode.Opcode{opcode.InvokeDirect},
		Srcs:    []Register{instance, argument},
		Payload: MethodOperand{
			Method: dex.MakeMethod(javaStringBuilder, "<init>", "V", javaString),
		},
	}
}

// invoke-virtual {instance, argument},
// Ljava/lang/StringBuilder;.append:(paramType)Ljava/lang/StringBuilder;
func invokeStringBuilderAppend(instance Register, argument Register, paramType string) Template {
	var srcs []Register
	if paramType == "J" || paramType == "D" {
		srcs = []Register{instance, argument, PairOf(argument)}
	} else {
		srcs = []Register{instance, argument}
	}
	return Template{
		Opcodes: []opcode.Opcode{opcode.InvokeVirtual},
		Srcs:    srcs,
		Payload: MethodOperand{
			Method: dex.MakeMethod(javaStringBuilder, "append", javaStringBuilder, paramType),
		},
	}
}

func invokeStringValueOf(argument Register, paramType string) Template {
	var srcs []Register
	if paramType == "J" || paramType == "D" {
		srcs = []Register{argument, PairOf(argument)}
	} else {
		srcs = []Register{argument}
	}
	return Template{
		Opcodes: []opcode.Opcode{opcode.InvokeStatic},
		Srcs:    srcs,
		Payload: MethodOperand{
			Method: dex.MakeMethod(javaString, "valueOf", javaString, paramType),
		},
	}
}

func invokeStringEquals(instance Register, argument Register) Template {
	return Template{
		Opcodes: []opcode.Opcode{opcode.InvokeVirtual},
		Srcs:    []Register{instance, argument},
		Payload: MethodOperand{
			Method: dex.MakeMethod(javaString, "equals", "Z", javaObject),
		},
	}
}

func invokeStringLength(instance Register) Template {
	return Template{
		Opcodes: []opcode.Opcode{opcode.InvokeVirtual},
		Srcs:    []Register{instance},
		Payload: MethodOperand{
			Method: dex.MakeMethod(javaString, "length", "I"),
		},
	}
}

func constString(dest Register, str String) Template {
	return Template{
		Opcodes: []opcode.Opcode{opcode.ConstString},
		Dests:   []Register{dest},
		Payload: StringOperand{String: str},
	}
}

func moveResultObject(dest Register) Template {
	return Template{
		Opcodes: []opcode.Opcode{opcode.MoveResultObject},
		Dests:   []Register{dest},
	}
}

func moveResult(dest Register) Template {
	return Template{
		Opcodes: []opcode.Opcode{opcode.MoveResult},
		Dests:   []Register{dest},
	}
}

func constLiteral(op opcode.Opcode, dest Register, literal Literal) Template {
	return Template{
		Opcodes: []opcode.Opcode{op},
		Dests:   []Register{dest},
		Payload: LiteralOperand{Literal: literal},
	}
}

func constWide(dest Register, literal Literal) Template {
	return Template{
		Opcodes: []opcode.Opcode{opcode.ConstWide16, opcode.ConstWide32, opcode.ConstWide},
		Dests:   []Register{dest},
		Payload: LiteralOperand{Literal: literal},
	}
}

func constInteger(dest Register, literal Literal) Template {
	return Template{
		Opcodes: []opcode.Opcode{opcode.Const4, opcode.Const16, opcode.Const},
		Dests:   []Register{dest},
		Payload: LiteralOperand{Literal: literal},
	}
}

func constFloat(dest Register, literal Literal) Template {
	return Template{
		Opcodes: []opcode.Opcode{opcode.Const4, opcode.Const},
		Dests:   []Register{dest},
		Payload: LiteralOperand{Literal: literal},
	}
}

func constChar(dest Register, literal Literal) Template {
	// dx loads a char through the same const family as an int.
	return constInteger(dest, literal)
}

func moveOps(dest Register, src Register) Template {
	return Template{
		Opcodes: []opcode.Opcode{opcode.Move, opcode.MoveObject},
		Srcs:    []Register{src},
		Dests:   []Register{dest},
	}
}

func mulOrDivLit(src Register, dest Register) Template {
	return Template{
		Opcodes: []opcode.Opcode{
			opcode.MulIntLit8,
			opcode.MulIntLit16,
			opcode.DivIntLit8,
			opcode.DivIntLit16,
		},
		Srcs:  []Register{src},
		Dests: []Register{dest},
	}
}

func addLit(src Register, dest Register) Template {
	return Template{
		Opcodes: []opcode.Opcode{opcode.AddIntLit8, opcode.AddIntLit16},
		Srcs:    []Register{src},
		Dests:   []Register{dest},
	}
}

var anyInvoke = []opcode.Opcode{
	opcode.InvokeVirtual,
	opcode.InvokeSuper,
	opcode.InvokeDirect,
	opcode.InvokeStatic,
	opcode.InvokeInterface,
	opcode.InvokeVirtualRange,
	opcode.InvokeSuperRange,
	opcode.InvokeDirectRange,
	opcode.InvokeStaticRange,
	opcode.InvokeInterfaceRange,
}

func invokeClassGetSimpleName() Template {
	return Template{
		Opcodes: anyInvoke,
		Srcs:    []Register{RegA},
		Payload: MethodOperand{
			Method: dex.MakeMethod(javaClass, "getSimpleName", javaString),
		},
	}
}

func constClass(dest Register, typ Type) Template {
	return Template{
		Opcodes: []opcode.Opcode{opcode.ConstClass},
		Dests:   []Register{dest},
		Payload: TypeOperand{Type: typ},
	}
}

func firstInstructionLiteralIs(value int64) Predicate {
	return func(m *Matcher) bool {
		matched := m.MatchedInstructions()
		if len(matched) == 0 {
			return false
		}
		return matched[0].Literal() == value
	}
}

// Pattern tables

func nopPatterns() []Pattern {
	return []Pattern{
		// Remove redundant move and move-object instructions,
		// e.g. move v0, v0
		NewPattern("Remove_Redundant_Move",
			[]Template{moveOps(RegA, RegA)},
			nil,
			nil),
	}
}

func stringPatterns() []Pattern {
	return []Pattern{
		// It coalesces init(void) and append(string) into init(string).
		// new StringBuilder().append("...") = new StringBuilder("...")
		NewPattern("Coalesce_InitVoid_AppendString",
			[]Template{
				invokeStringBuilderInit(RegA),
				constString(RegB, StringA),
				invokeStringBuilderAppend(RegA, RegB, javaString),
				moveResultObject(RegA),
			},
			[]Template{
				constString(RegB, StringA),
				invokeStringBuilderInitString(RegA, RegB),
			},
			nil),

		// It coalesces consecutive two append(string) to a single append call.
		// StringBuilder.append("A").append("B") = StringBuilder.append("AB")
		NewPattern("Coalesce_AppendString_AppendString",
			[]Template{
				constString(RegB, StringA),
				invokeStringBuilderAppend(RegA, RegB, javaString),
				moveResultObject(RegC),
				constString(RegD, StringB),
				invokeStringBuilderAppend(RegC, RegD, javaString),
			},
			[]Template{
				constString(RegB, ConcatABStrings),
				invokeStringBuilderAppend(RegA, RegB, javaString),
			},
			nil),

		// It evaluates the length of a literal in compile time.
		// "stringA".length() ==> length_of_stringA
		NewPattern("CompileTime_StringLength",
			[]Template{
				constString(RegA, StringA),
				invokeStringLength(RegA),
				moveResult(RegB),
			},
			[]Template{
				// Potentially the string load becomes dead code.
				constString(RegA, StringA),
				constLiteral(opcode.Const16, RegB, LengthStringA),
			},
			nil),

		// It coalesces init(void) and append(char) into init(string).
		// StringBuilder().append(C) = new StringBuilder("....")
		NewPattern("Coalesce_Init_AppendChar",
			[]Template{
				invokeStringBuilderInit(RegA),
				constChar(RegB, LiteralA),
				invokeStringBuilderAppend(RegA, RegB, "C"),
				moveResultObject(RegA),
			},
			[]Template{
				constString(RegB, CharAToString),
				invokeStringBuilderInitString(RegA, RegB),
			},
			nil),

		// It coalesces append(string) and append(integer) into append(string).
		// StringBuilder.append("...").append(I) = StringBuilder.append("....")
		NewPattern("Coalesce_AppendString_AppendInt",
			[]Template{
				constString(RegB, StringA),
				invokeStringBuilderAppend(RegA, RegB, javaString),
				moveResultObject(RegC),
				constInteger(RegD, LiteralA),
				invokeStringBuilderAppend(RegC, RegD, "I"),
			},
			[]Template{
				constString(RegB, ConcatStringAIntA),
				invokeStringBuilderAppend(RegA, RegB, javaString),
			},
			nil),

		// It coalesces append(string) and append(char) into append(string).
		// StringBuilder.append("...").append(C) = StringBuilder.append("....")
		NewPattern("Coalesce_AppendString_AppendChar",
			[]Template{
				constString(RegB, StringA),
				invokeStringBuilderAppend(RegA, RegB, javaString),
				moveResultObject(RegC),
				constChar(RegD, LiteralA),
				invokeStringBuilderAppend(RegC, RegD, "C"),
			},
			[]Template{
				constString(RegB, ConcatStringACharA),
				invokeStringBuilderAppend(RegA, RegB, javaString),
			},
			nil),

		// It coalesces append(string) and append(boolean) into append(string).
		// StringBuilder.append("...").append(Z) = StringBuilder.append("....")
		NewPattern("Coalesce_AppendString_AppendBoolean",
			[]Template{
				constString(RegB, StringA),
				invokeStringBuilderAppend(RegA, RegB, javaString),
				moveResultObject(RegC),
				constLiteral(opcode.Const4, RegD, LiteralA),
				invokeStringBuilderAppend(RegC, RegD, "Z"),
			},
			[]Template{
				constString(RegB, ConcatStringABooleanA),
				invokeStringBuilderAppend(RegA, RegB, javaString),
			},
			nil),

		// It coalesces append(string) and append(long int) into append(string).
		// StringBuilder.append("...").append(J) = StringBuilder.append("....")
		NewPattern("Coalesce_AppendString_AppendLongInt",
			[]Template{
				constString(RegB, StringA),
				invokeStringBuilderAppend(RegA, RegB, javaString),
				moveResultObject(RegC),
				constWide(RegD, LiteralA),
				invokeStringBuilderAppend(RegC, RegD, "J"),
			},
			[]Template{
				constString(RegB, ConcatStringALongA),
				invokeStringBuilderAppend(RegA, RegB, javaString),
			},
			nil),

		// It evaluates the identity of two literal strings in compile time.
		// "stringA".equals("stringB") ==> true or false
		NewPattern("CompileTime_StringCompare",
			[]Template{
				constString(RegA, StringA),
				constString(RegB, StringB),
				invokeStringEquals(RegA, RegB),
				moveResult(RegC),
			},
			[]Template{
				constLiteral(opcode.Const4, RegC, CompareStringsAB),
			},
			nil),

		// It replaces valueOf on a boolean value by "true" or "false" directly.
		// String.valueOf(true/false) ==> "true" or "false"
		NewPattern("Replace_ValueOfBoolean",
			[]Template{
				constLiteral(opcode.Const4, RegA, LiteralA),
				invokeStringValueOf(RegA, "Z"),
				moveResultObject(RegB),
			},
			[]Template{
				constString(RegB, BooleanAToString),
			},
			nil),

		// It replaces valueOf on a literal character by the character itself.
		// String.valueOf(char) ==> "char"
		NewPattern("Replace_ValueOfChar",
			[]Template{
				constChar(RegA, LiteralA),
				invokeStringValueOf(RegA, "C"),
				moveResultObject(RegB),
			},
			[]Template{
				constString(RegB, CharAToString),
			},
			nil),

		// It replaces valueOf on an integer literal by the integer itself.
		// String.valueOf(int) ==> "int"
		NewPattern("Replace_ValueOfInt",
			[]Template{
				constInteger(RegA, LiteralA),
				invokeStringValueOf(RegA, "I"),
				moveResultObject(RegB),
			},
			[]Template{
				constString(RegB, IntAToString),
			},
			nil),

		// It replaces valueOf on a long integer literal by the number itself.
		// String.valueOf(long int) ==> "long int"
		NewPattern("Replace_ValueOfLongInt",
			[]Template{
				constWide(RegA, LiteralA),
				invokeStringValueOf(RegA, "J"),
				moveResultObject(RegB),
			},
			[]Template{
				constString(RegB, LongAToString),
			},
			nil),

		// It replaces valueOf on a float literal by the float itself.
		// String.valueOf(float) ==> "float"
		NewPattern("Replace_ValueOfFloat",
			[]Template{
				constFloat(RegA, LiteralA),
				invokeStringValueOf(RegA, "F"),
				moveResultObject(RegB),
			},
			[]Template{
				constString(RegB, FloatAToString),
			},
			nil),

		// It replaces valueOf on a double literal by the double itself.
		// String.valueOf(double) ==> "double"
		NewPattern("Replace_ValueOfDouble",
			[]Template{
				constWide(RegA, LiteralA),
				invokeStringValueOf(RegA, "D"),
				moveResultObject(RegB),
			},
			[]Template{
				constString(RegB, DoubleAToString),
			},
			nil),
	}
}

func arithPatterns() []Pattern {
	// These arith patterns emit full 16-bit register indices.
	// Another pass will tighten them when possible.
	return []Pattern{
		// Replace *1 or /1 with move
		NewPattern("Arith_MulDivLit_Pos1",
			[]Template{mulOrDivLit(RegA, RegB)},
			[]Template{
				// x = y * 1 -> x = y
				{
					Opcodes: []opcode.Opcode{opcode.Move16},
					Srcs:    []Register{RegA},
					Dests:   []Register{RegB},
				},
			},
			firstInstructionLiteralIs(1)),

		// Replace multiplies or divides by -1 with negation
		NewPattern("Arith_MulDivLit_Neg1",
			[]Template{mulOrDivLit(RegA, RegB)},
			[]Template{
				// Eliminates the literal-carrying halfword
				{
					Opcodes: []opcode.Opcode{opcode.NegInt},
					Srcs:    []Register{RegA},
					Dests:   []Register{RegB},
				},
			},
			firstInstructionLiteralIs(-1)),

		// Replace +0 with moves
		NewPattern("Arith_AddLit_0",
			[]Template{addLit(RegA, RegB)},
			[]Template{
				// Eliminates the literal-carrying halfword
				{
					Opcodes: []opcode.Opcode{opcode.Move16},
					Srcs:    []Register{RegA},
					Dests:   []Register{RegB},
				},
			},
			firstInstructionLiteralIs(0)),
	}
}

func funcPatterns() []Pattern {
	return []Pattern{
		NewPattern("Remove_LangClass_GetSimpleName",
			[]Template{
				constClass(RegA, TypeA),
				invokeClassGetSimpleName(),
				moveResultObject(RegB),
			},
			[]Template{
				// The class-reference load may still be needed.
				copyMatchedInstruction(0),
				constString(RegB, TypeAGetSimpleName),
			},
			nil),
	}
}

// AllPatterns returns the built-in patterns in priority order:
// no-op removal first, then string patterns, arithmetic identities,
// and reflection patterns. Declaration order within a group is the
// tie-break when several patterns could match the same instruction.
func AllPatterns() []Pattern {
	var patterns []Pattern
	patterns = append(patterns, nopPatterns()...)
	patterns = append(patterns, stringPatterns()...)
	patterns = append(patterns, arithPatterns()...)
	patterns = append(patterns, funcPatterns()...)
	return patterns
}
