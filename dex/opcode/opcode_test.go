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

package opcode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psmaoalove/redex/dex/opcode"
)

func TestMnemonics(t *testing.T) {
	t.Parallel()

	for op := opcode.Nop; op < opcode.OpcodeMax; op++ {
		mnemonic := op.String()
		require.NotEmpty(t, mnemonic, "opcode %d has no mnemonic", op)
		require.Equal(t, op, opcode.FromMnemonic(mnemonic))
	}

	assert.Equal(t, opcode.Unknown, opcode.FromMnemonic("does-not-exist"))
}

func TestMinVRegBitWidth(t *testing.T) {
	t.Parallel()

	// 11n: 4-bit destination
	assert.Equal(t, 4, opcode.MinVRegBitWidth(opcode.Const4))
	// 12x: two 4-bit registers
	assert.Equal(t, 4, opcode.MinVRegBitWidth(opcode.NegInt))
	assert.Equal(t, 4, opcode.MinVRegBitWidth(opcode.Move))
	// 21c: 8-bit destination
	assert.Equal(t, 8, opcode.MinVRegBitWidth(opcode.ConstString))
	assert.Equal(t, 8, opcode.MinVRegBitWidth(opcode.Const16))
	// 22b: 8-bit registers
	assert.Equal(t, 8, opcode.MinVRegBitWidth(opcode.AddIntLit8))
	// 35c: 4-bit argument registers
	assert.Equal(t, 4, opcode.MinVRegBitWidth(opcode.InvokeVirtual))
	// 32x: full 16-bit registers
	assert.Equal(t, 16, opcode.MinVRegBitWidth(opcode.Move16))
	// no register operands at all
	assert.Equal(t, 16, opcode.MinVRegBitWidth(opcode.Nop))
	assert.Equal(t, 16, opcode.MinVRegBitWidth(opcode.ReturnVoid))
	assert.Equal(t, 16, opcode.MinVRegBitWidth(opcode.Goto))
}

func TestPredicates(t *testing.T) {
	t.Parallel()

	assert.True(t, opcode.InvokeStaticRange.IsInvoke())
	assert.False(t, opcode.Return.IsInvoke())

	assert.True(t, opcode.IfLez.IsBranch())
	assert.True(t, opcode.Goto.IsBranch())
	assert.False(t, opcode.Throw.IsBranch())

	assert.True(t, opcode.Throw.IsTerminator())
	assert.True(t, opcode.IfEq.IsTerminator())
	assert.False(t, opcode.Move.IsTerminator())
}
