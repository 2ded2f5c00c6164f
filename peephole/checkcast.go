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

// CheckCastRemoverName is the configuration name under which the
// check-cast remover can be disabled, alongside the pattern names.
const CheckCastRemoverName = "Remove_Redundant_CheckCast"

// CheckCastRemover deletes check-cast instructions whose register is
// already known to hold exactly the checked type. Only exact matches
// are removed; subtyping would require hierarchy information this pass
// does not have.
type CheckCastRemover struct{}

// Optimize removes redundant check-casts from the code and returns the
// number of removed instructions. Type knowledge is tracked per basic
// block and never flows across block boundaries.
func (r *CheckCastRemover) Optimize(code *dex.Code) int {
	var deletes []*dex.Instruction

	for _, block := range dex.BasicBlocks(code) {
		known := map[dex.Reg]*dex.Type{}

		var lastInvokeReturn *dex.Type

		for _, instruction := range block.Instructions() {
			op := instruction.Opcode()

			switch {
			case op == opcode.NewInstance || op == opcode.CheckCast:
				typ := instruction.TypeRef()
				var reg dex.Reg
				if op == opcode.NewInstance {
					reg = instruction.Dest()
				} else {
					reg = instruction.Source(0)
					if known[reg] == typ {
						deletes = append(deletes, instruction)
						continue
					}
				}
				known[reg] = typ

			case op == opcode.ConstString:
				known[instruction.Dest()] = dex.MakeType("Ljava/lang/String;")

			case op.IsInvoke():
				lastInvokeReturn = instruction.MethodRef().ReturnType
				continue

			case op == opcode.MoveResultObject:
				known[instruction.Dest()] = lastInvokeReturn

			case op == opcode.Move || op == opcode.MoveObject || op == opcode.Move16:
				known[instruction.Dest()] = known[instruction.Source(0)]

			default:
				if instruction.HasDest() {
					delete(known, instruction.Dest())
				}
			}

			lastInvokeReturn = nil
		}
	}

	for _, instruction := range deletes {
		code.Remove(instruction)
	}

	return len(deletes)
}
