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

// Code is the body of a method: an ordered list of items,
// real instructions interleaved with pseudo-entries (labels).
type Code struct {
	items []Item
}

func NewCode(items ...Item) *Code {
	return &Code{items: items}
}

func (c *Code) Items() []Item {
	return c.items
}

func (c *Code) Append(items ...Item) {
	c.items = append(c.items, items...)
}

// Instructions returns the real instructions in program order,
// skipping pseudo-entries.
func (c *Code) Instructions() []*Instruction {
	var instructions []*Instruction
	for _, item := range c.items {
		if instruction, ok := item.(*Instruction); ok {
			instructions = append(instructions, instruction)
		}
	}
	return instructions
}

func (c *Code) InstructionCount() int {
	count := 0
	for _, item := range c.items {
		if _, ok := item.(*Instruction); ok {
			count++
		}
	}
	return count
}

// InsertAfter splices the given instructions into the code list,
// immediately after the anchor instruction.
// The anchor must be present in the list.
func (c *Code) InsertAfter(anchor *Instruction, instructions []*Instruction) {
	index := c.indexOf(anchor)

	items := make([]Item, 0, len(c.items)+len(instructions))
	items = append(items, c.items[:index+1]...)
	for _, instruction := range instructions {
		items = append(items, instruction)
	}
	items = append(items, c.items[index+1:]...)
	c.items = items
}

// Remove deletes the given instruction (by identity) from the code list.
// The instruction must be present in the list.
func (c *Code) Remove(instruction *Instruction) {
	index := c.indexOf(instruction)
	c.items = append(c.items[:index], c.items[index+1:]...)
}

func (c *Code) indexOf(instruction *Instruction) int {
	for index, item := range c.items {
		if item == Item(instruction) {
			return index
		}
	}
	panic(errMissingInstruction(instruction))
}

// Class is a class definition: its type and its methods.
type Class struct {
	Type    *Type
	Methods []*Method
}

// NewClass returns a class definition for the given descriptor and
// attaches the methods to it.
func NewClass(descriptor string, methods ...*Method) *Class {
	class := &Class{
		Type:    MakeType(descriptor),
		Methods: methods,
	}
	return class
}

// WalkMethods calls f for every method of every class in the scope.
func WalkMethods(scope []*Class, f func(*Method)) {
	for _, class := range scope {
		for _, method := range class.Methods {
			f(method)
		}
	}
}
