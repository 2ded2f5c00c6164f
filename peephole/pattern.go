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
	"github.com/psmaoalove/redex/errors"
)

// Predicate is an optional veto over a fully matched pattern:
// it may inspect the completed binding state and still reject the
// match.
type Predicate func(*Matcher) bool

// Pattern is a named rewrite rule: a sequence of match templates,
// a sequence of replacement templates, and an optional veto predicate.
// Patterns are immutable after construction.
type Pattern struct {
	Name      string
	Match     []Template
	Replace   []Template
	Predicate Predicate

	// registerWidthLimits[reg] is the smallest operand bit width of any
	// replacement instruction using the symbolic register, so matching
	// never binds a register the replacement cannot encode.
	registerWidthLimits [registerArraySize]int
}

// NewPattern constructs a pattern and precomputes its register width
// limits. Malformed declarations (empty match list, a copy directive in
// a match template) are programmer errors and abort immediately.
func NewPattern(name string, match []Template, replace []Template, predicate Predicate) Pattern {
	if len(match) == 0 {
		panic(errors.NewUnexpectedError("pattern %s has no match templates", name))
	}
	for _, template := range match {
		if _, ok := template.Payload.(CopyOperand); ok {
			panic(errors.NewUnexpectedError(
				"pattern %s uses a copy directive in a match template",
				name,
			))
		}
	}

	pattern := Pattern{
		Name:      name,
		Match:     match,
		Replace:   replace,
		Predicate: predicate,
	}
	pattern.determineRegisterWidthLimits()
	return pattern
}

func (p *Pattern) determineRegisterWidthLimits() {
	for reg := range p.registerWidthLimits {
		p.registerWidthLimits[reg] = opcode.NoWidthLimit
	}

	// Most opcodes use the same bit width for sources and destination,
	// so a single minimum per replacement opcode suffices.
	for _, template := range p.Replace {
		for _, op := range template.Opcodes { // just expect 1
			width := opcode.MinVRegBitWidth(op)
			for _, reg := range template.Srcs {
				p.registerWidthLimits[reg] = min(p.registerWidthLimits[reg], width)
			}
			for _, reg := range template.Dests {
				p.registerWidthLimits[reg] = min(p.registerWidthLimits[reg], width)
			}
		}
	}
}

// registerCanMatchValue returns whether the concrete register value is
// representable in every replacement instruction using the symbolic
// register.
func (p *Pattern) registerCanMatchValue(reg Register, value dex.Reg) bool {
	limit := p.registerWidthLimits[reg]
	return uint32(value) < 1<<limit
}
