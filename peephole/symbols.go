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
	"github.com/psmaoalove/redex/errors"
)

// Patterns describe instruction arguments with symbolic placeholders:
// an abstract register, literal, string, or type that is bound to a
// concrete value during matching and resolved during replacement.
//
// Replacement-only directives (computed literals and strings) share the
// same enumerations.

// Register is a symbolic register identity.
// Pair registers hold the high half of a wide (64-bit) operand and
// occupy the even ordinal following their primary register.
type Register uint8

const (
	RegA Register = 1
	RegB Register = 3
	RegC Register = 5
	RegD Register = 7

	PairA Register = 2
	PairB Register = 4
	PairC Register = 6
	PairD Register = 8
)

// registerArraySize is the size of an array indexable by Register.
const registerArraySize = 9

// PairOf returns the pair register of a primary register.
func PairOf(reg Register) Register {
	switch reg {
	case RegA, RegB, RegC, RegD:
		return reg + 1
	default:
		panic(errors.NewUnexpectedError("register %d has no pair", reg))
	}
}

// Literal is a symbolic literal slot or a computed-literal directive.
type Literal uint8

const (
	// LiteralA matches an arbitrary literal argument.
	LiteralA Literal = iota
	// CompareStringsAB writes the identity comparison of strings A and B
	// as a 0/1 integer. Replacement-only.
	CompareStringsAB
	// LengthStringA writes the UTF-16 length of string A.
	// Replacement-only.
	LengthStringA

	literalArraySize
)

// String is a symbolic string slot or a computed-string directive.
type String uint8

const (
	// StringA and StringB match arbitrary string arguments.
	StringA String = iota
	StringB
	// StringEmpty matches only an empty string argument. It never binds.
	StringEmpty

	// Replacement-only directives.

	BooleanAToString
	CharAToString
	IntAToString
	LongAToString
	FloatAToString
	DoubleAToString
	ConcatABStrings
	ConcatStringABooleanA
	ConcatStringACharA
	ConcatStringAIntA
	ConcatStringALongA
	TypeAGetSimpleName

	stringArraySize
)

// Type is a symbolic type slot.
type Type uint8

const (
	TypeA Type = iota
	TypeB

	typeArraySize
)
