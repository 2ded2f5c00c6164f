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
	"fmt"
	"strconv"
	"strings"

	"github.com/psmaoalove/redex/dex/opcode"
	"github.com/psmaoalove/redex/errors"
)

// Assemble parses a textual listing into a code list.
//
// The listing is line-oriented:
//
//	// comment
//	:loop
//	const-string v0, "foo"
//	invoke-virtual {v0}, Ljava/lang/String;.length:()I
//	move-result v1
//	if-eqz v1, :loop
//	return-void
//
// A line consisting of ":name" defines a label; branch operands
// reference labels by the same syntax. Forward references are allowed.
func Assemble(source string) (*Code, error) {
	asm := &assembler{
		labels: map[string]*Label{},
	}

	for number, line := range strings.Split(source, "\n") {
		line = stripComment(line)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		err := asm.parseLine(line)
		if err != nil {
			return nil, errors.NewDefaultUserError(
				"line %d: %w",
				number+1,
				err,
			)
		}
	}

	return NewCode(asm.items...), nil
}

type assembler struct {
	items  []Item
	labels map[string]*Label
}

func (a *assembler) label(name string) *Label {
	label, ok := a.labels[name]
	if !ok {
		label = &Label{Name: name}
		a.labels[name] = label
	}
	return label
}

func (a *assembler) parseLine(line string) error {
	if name, ok := strings.CutPrefix(line, ":"); ok {
		a.items = append(a.items, a.label(name))
		return nil
	}

	mnemonic, rest, _ := strings.Cut(line, " ")
	op := opcode.FromMnemonic(mnemonic)
	if op == opcode.Unknown {
		return fmt.Errorf("unknown mnemonic %q", mnemonic)
	}

	operands := splitOperands(rest)

	instruction, err := a.parseInstruction(op, operands)
	if err != nil {
		return fmt.Errorf("%s: %w", mnemonic, err)
	}
	a.items = append(a.items, instruction)
	return nil
}

func (a *assembler) parseInstruction(op opcode.Opcode, operands []string) (*Instruction, error) {
	switch op {
	case opcode.Nop, opcode.ReturnVoid:
		if err := expectOperands(operands, 0); err != nil {
			return nil, err
		}
		return New(op), nil

	case opcode.Const4, opcode.Const16, opcode.Const,
		opcode.ConstWide16, opcode.ConstWide32, opcode.ConstWide:

		if err := expectOperands(operands, 2); err != nil {
			return nil, err
		}
		dest, err := parseRegister(operands[0])
		if err != nil {
			return nil, err
		}
		value, err := parseLiteral(operands[1])
		if err != nil {
			return nil, err
		}
		return NewConst(op, dest, value), nil

	case opcode.ConstString:
		if err := expectOperands(operands, 2); err != nil {
			return nil, err
		}
		dest, err := parseRegister(operands[0])
		if err != nil {
			return nil, err
		}
		value, err := strconv.Unquote(operands[1])
		if err != nil {
			return nil, fmt.Errorf("invalid string literal %s", operands[1])
		}
		return NewConstString(dest, MakeString(value)), nil

	case opcode.ConstClass, opcode.NewInstance:
		if err := expectOperands(operands, 2); err != nil {
			return nil, err
		}
		dest, err := parseRegister(operands[0])
		if err != nil {
			return nil, err
		}
		descriptor, err := parseTypeDescriptor(operands[1])
		if err != nil {
			return nil, err
		}
		if op == opcode.ConstClass {
			return NewConstClass(dest, MakeType(descriptor)), nil
		}
		return NewNewInstance(dest, MakeType(descriptor)), nil

	case opcode.CheckCast:
		if err := expectOperands(operands, 2); err != nil {
			return nil, err
		}
		src, err := parseRegister(operands[0])
		if err != nil {
			return nil, err
		}
		descriptor, err := parseTypeDescriptor(operands[1])
		if err != nil {
			return nil, err
		}
		return NewCheckCast(src, MakeType(descriptor)), nil

	case opcode.Move, opcode.MoveObject, opcode.Move16, opcode.NegInt:
		if err := expectOperands(operands, 2); err != nil {
			return nil, err
		}
		dest, err := parseRegister(operands[0])
		if err != nil {
			return nil, err
		}
		src, err := parseRegister(operands[1])
		if err != nil {
			return nil, err
		}
		return NewMove(op, dest, src), nil

	case opcode.MoveResult, opcode.MoveResultObject:
		if err := expectOperands(operands, 1); err != nil {
			return nil, err
		}
		dest, err := parseRegister(operands[0])
		if err != nil {
			return nil, err
		}
		return NewMoveResult(op, dest), nil

	case opcode.AddIntLit16, opcode.MulIntLit16, opcode.DivIntLit16,
		opcode.AddIntLit8, opcode.MulIntLit8, opcode.DivIntLit8:

		if err := expectOperands(operands, 3); err != nil {
			return nil, err
		}
		dest, err := parseRegister(operands[0])
		if err != nil {
			return nil, err
		}
		src, err := parseRegister(operands[1])
		if err != nil {
			return nil, err
		}
		value, err := parseLiteral(operands[2])
		if err != nil {
			return nil, err
		}
		return NewLitArith(op, dest, src, value), nil

	case opcode.Goto:
		if err := expectOperands(operands, 1); err != nil {
			return nil, err
		}
		name, err := parseLabelName(operands[0])
		if err != nil {
			return nil, err
		}
		return NewGoto(a.label(name)), nil

	case opcode.IfEq, opcode.IfNe, opcode.IfLt,
		opcode.IfGe, opcode.IfGt, opcode.IfLe:

		if err := expectOperands(operands, 3); err != nil {
			return nil, err
		}
		first, err := parseRegister(operands[0])
		if err != nil {
			return nil, err
		}
		second, err := parseRegister(operands[1])
		if err != nil {
			return nil, err
		}
		name, err := parseLabelName(operands[2])
		if err != nil {
			return nil, err
		}
		return NewIf(op, a.label(name), first, second), nil

	case opcode.IfEqz, opcode.IfNez, opcode.IfLtz,
		opcode.IfGez, opcode.IfGtz, opcode.IfLez:

		if err := expectOperands(operands, 2); err != nil {
			return nil, err
		}
		src, err := parseRegister(operands[0])
		if err != nil {
			return nil, err
		}
		name, err := parseLabelName(operands[1])
		if err != nil {
			return nil, err
		}
		return NewIf(op, a.label(name), src), nil

	case opcode.Return, opcode.ReturnWide, opcode.ReturnObject, opcode.Throw:
		if err := expectOperands(operands, 1); err != nil {
			return nil, err
		}
		src, err := parseRegister(operands[0])
		if err != nil {
			return nil, err
		}
		return NewReturn(op, src), nil

	default:
		if !op.IsInvoke() {
			return nil, fmt.Errorf("unsupported opcode %s", op)
		}
	}

	// Invocations: {args}, method reference
	if err := expectOperands(operands, 2); err != nil {
		return nil, err
	}
	args, err := parseRegisterList(operands[0])
	if err != nil {
		return nil, err
	}
	method, err := parseMethodReference(operands[1])
	if err != nil {
		return nil, err
	}
	return NewInvoke(op, method, args...), nil
}

func expectOperands(operands []string, count int) error {
	if len(operands) != count {
		return fmt.Errorf(
			"expected %d operands, got %d",
			count,
			len(operands),
		)
	}
	return nil
}

func parseRegister(operand string) (Reg, error) {
	number, ok := strings.CutPrefix(operand, "v")
	if !ok {
		return 0, fmt.Errorf("invalid register %q", operand)
	}
	value, err := strconv.ParseUint(number, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid register %q", operand)
	}
	return Reg(value), nil
}

func parseRegisterList(operand string) ([]Reg, error) {
	inner, ok := strings.CutPrefix(operand, "{")
	if ok {
		inner, ok = strings.CutSuffix(inner, "}")
	}
	if !ok {
		return nil, fmt.Errorf("invalid register list %q", operand)
	}
	inner = strings.TrimSpace(inner)
	if inner == "" {
		return nil, nil
	}

	var registers []Reg
	for _, part := range strings.Split(inner, ",") {
		register, err := parseRegister(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		registers = append(registers, register)
	}
	return registers, nil
}

func parseLiteral(operand string) (int64, error) {
	operand = strings.TrimPrefix(operand, "#")
	value, err := strconv.ParseInt(operand, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid literal %q", operand)
	}
	return value, nil
}

func parseLabelName(operand string) (string, error) {
	name, ok := strings.CutPrefix(operand, ":")
	if !ok || name == "" {
		return "", fmt.Errorf("invalid label %q", operand)
	}
	return name, nil
}

// parseMethodReference parses "Lclass;.name:(params)ret".
func parseMethodReference(operand string) (*Method, error) {
	class, rest, ok := strings.Cut(operand, ";.")
	if !ok {
		return nil, fmt.Errorf("invalid method reference %q", operand)
	}
	class += ";"

	name, proto, ok := strings.Cut(rest, ":")
	if !ok || name == "" {
		return nil, fmt.Errorf("invalid method reference %q", operand)
	}

	params, returnType, err := parseProto(proto)
	if err != nil {
		return nil, fmt.Errorf("invalid method reference %q: %w", operand, err)
	}

	return MakeMethod(class, name, returnType, params...), nil
}

func parseProto(proto string) (params []string, returnType string, err error) {
	inner, ok := strings.CutPrefix(proto, "(")
	if !ok {
		return nil, "", fmt.Errorf("missing parameter list in %q", proto)
	}
	paramList, returnType, ok := strings.Cut(inner, ")")
	if !ok || returnType == "" {
		return nil, "", fmt.Errorf("missing return type in %q", proto)
	}

	for paramList != "" {
		var param string
		param, paramList, err = cutTypeDescriptor(paramList)
		if err != nil {
			return nil, "", err
		}
		params = append(params, param)
	}

	if _, err = parseTypeDescriptor(returnType); err != nil {
		return nil, "", err
	}
	return params, returnType, nil
}

// cutTypeDescriptor splits the first type descriptor off a descriptor
// sequence, e.g. "Ljava/lang/String;I" -> "Ljava/lang/String;", "I".
func cutTypeDescriptor(descriptors string) (first string, rest string, err error) {
	prefix := 0
	for prefix < len(descriptors) && descriptors[prefix] == '[' {
		prefix++
	}
	if prefix == len(descriptors) {
		return "", "", fmt.Errorf("invalid type descriptor %q", descriptors)
	}

	switch descriptors[prefix] {
	case 'V', 'Z', 'B', 'S', 'C', 'I', 'J', 'F', 'D':
		return descriptors[:prefix+1], descriptors[prefix+1:], nil
	case 'L':
		end := strings.IndexByte(descriptors[prefix:], ';')
		if end < 0 {
			return "", "", fmt.Errorf("invalid type descriptor %q", descriptors)
		}
		end += prefix + 1
		return descriptors[:end], descriptors[end:], nil
	default:
		return "", "", fmt.Errorf("invalid type descriptor %q", descriptors)
	}
}

func parseTypeDescriptor(operand string) (string, error) {
	descriptor, rest, err := cutTypeDescriptor(operand)
	if err != nil {
		return "", err
	}
	if rest != "" {
		return "", fmt.Errorf("invalid type descriptor %q", operand)
	}
	return descriptor, nil
}

// splitOperands splits an operand list on commas, respecting braces
// and string quotes.
func splitOperands(rest string) []string {
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return nil
	}

	var operands []string
	depth := 0
	quoted := false
	start := 0
	for index := 0; index < len(rest); index++ {
		switch rest[index] {
		case '"':
			if !quoted || index == 0 || rest[index-1] != '\\' {
				quoted = !quoted
			}
		case '{':
			if !quoted {
				depth++
			}
		case '}':
			if !quoted {
				depth--
			}
		case ',':
			if !quoted && depth == 0 {
				operands = append(operands, strings.TrimSpace(rest[start:index]))
				start = index + 1
			}
		}
	}
	operands = append(operands, strings.TrimSpace(rest[start:]))
	return operands
}

func stripComment(line string) string {
	quoted := false
	for index := 0; index+1 < len(line); index++ {
		switch line[index] {
		case '"':
			if !quoted || index == 0 || line[index-1] != '\\' {
				quoted = !quoted
			}
		case '/':
			if !quoted && line[index+1] == '/' {
				return line[:index]
			}
		}
	}
	return line
}
