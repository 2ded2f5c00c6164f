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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psmaoalove/redex/dex/opcode"
)

func TestNewPatternValidation(t *testing.T) {
	t.Parallel()

	t.Run("empty match list", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() {
			NewPattern("Empty", nil, nil, nil)
		})
	})

	t.Run("copy directive in match", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() {
			NewPattern("Copy_In_Match",
				[]Template{copyMatchedInstruction(0)},
				nil,
				nil)
		})
	})
}

func TestRegisterWidthLimits(t *testing.T) {
	t.Parallel()

	t.Run("no replacements", func(t *testing.T) {
		t.Parallel()

		pattern := NewPattern("Test",
			[]Template{moveOps(RegA, RegA)},
			nil,
			nil)

		assert.True(t, pattern.registerCanMatchValue(RegA, 0xFFFF))
	})

	t.Run("narrow replacement", func(t *testing.T) {
		t.Parallel()

		// neg-int holds 4-bit register operands
		pattern := NewPattern("Test",
			[]Template{mulOrDivLit(RegA, RegB)},
			[]Template{
				{
					Opcodes: []opcode.Opcode{opcode.NegInt},
					Srcs:    []Register{RegA},
					Dests:   []Register{RegB},
				},
			},
			nil)

		assert.True(t, pattern.registerCanMatchValue(RegA, 15))
		assert.False(t, pattern.registerCanMatchValue(RegA, 16))
		assert.False(t, pattern.registerCanMatchValue(RegB, 16))

		// symbolic registers absent from the replacements stay unlimited
		assert.True(t, pattern.registerCanMatchValue(RegC, 0xFFFF))
	})

	t.Run("widest replacement opcode does not widen the limit", func(t *testing.T) {
		t.Parallel()

		// const-string holds an 8-bit register, neg-int a 4-bit one;
		// the stricter of the two wins
		pattern := NewPattern("Test",
			[]Template{moveOps(RegA, RegB)},
			[]Template{
				constString(RegA, StringA),
				{
					Opcodes: []opcode.Opcode{opcode.NegInt},
					Srcs:    []Register{RegB},
					Dests:   []Register{RegA},
				},
			},
			nil)

		assert.False(t, pattern.registerCanMatchValue(RegA, 16))
		assert.True(t, pattern.registerCanMatchValue(RegB, 15))
		assert.False(t, pattern.registerCanMatchValue(RegB, 16))
	})
}

func TestPairOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, PairA, PairOf(RegA))
	assert.Equal(t, PairD, PairOf(RegD))

	assert.Panics(t, func() {
		PairOf(PairA)
	})
}

func TestBuiltinPatternNames(t *testing.T) {
	t.Parallel()

	seen := map[string]struct{}{}
	for _, pattern := range AllPatterns() {
		_, duplicate := seen[pattern.Name]
		require.False(t, duplicate, "duplicate pattern name %s", pattern.Name)
		seen[pattern.Name] = struct{}{}

		require.NotEmpty(t, pattern.Match)
	}
}
