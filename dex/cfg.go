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
	"github.com/bits-and-blooms/bitset"
)

// BasicBlock is a maximal straight-line run of code items:
// one entry, one exit.
type BasicBlock struct {
	Items []Item
}

// Instructions returns the real instructions of the block in program
// order, skipping pseudo-entries.
func (b *BasicBlock) Instructions() []*Instruction {
	var instructions []*Instruction
	for _, item := range b.Items {
		if instruction, ok := item.(*Instruction); ok {
			instructions = append(instructions, instruction)
		}
	}
	return instructions
}

// BasicBlocks partitions the code list into basic blocks.
// A new block starts at every label (branch target) and after every
// terminator (branch, return, throw).
func BasicBlocks(code *Code) []*BasicBlock {
	items := code.Items()
	if len(items) == 0 {
		return nil
	}

	leaders := bitset.New(uint(len(items)))
	leaders.Set(0)

	for index, item := range items {
		switch item := item.(type) {
		case *Label:
			leaders.Set(uint(index))
		case *Instruction:
			if item.Opcode().IsTerminator() && index+1 < len(items) {
				leaders.Set(uint(index + 1))
			}
		}
	}

	var blocks []*BasicBlock
	start := 0
	for index := 1; index < len(items); index++ {
		if leaders.Test(uint(index)) {
			blocks = append(blocks, &BasicBlock{Items: items[start:index]})
			start = index
		}
	}
	blocks = append(blocks, &BasicBlock{Items: items[start:]})

	return blocks
}
