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
	"strings"
	"text/tabwriter"

	"github.com/logrusorgru/aurora/v4"
)

// PrintCode writes a disassembly listing of the code to the builder.
func PrintCode(builder *strings.Builder, code *Code, colorize bool) error {
	return PrintItems(builder, code.Items(), colorize)
}

// PrintItems writes a disassembly listing of the items to the builder.
// Instructions are numbered by their position among the real
// instructions; labels appear unnumbered.
func PrintItems(builder *strings.Builder, items []Item, colorize bool) error {

	tabWriter := tabwriter.NewWriter(builder, 0, 0, 1, ' ', tabwriter.AlignRight)
	colors := aurora.New(aurora.WithColors(colorize))

	offset := 0
	for _, item := range items {
		switch item := item.(type) {
		case *Label:
			_, _ = fmt.Fprintf(
				tabWriter,
				" |\t%s |\t\n",
				colors.Cyan(item.String()),
			)

		case *Instruction:
			operands := item.OperandsString()
			if operands != "" {
				operands = " " + operands
			}
			_, _ = fmt.Fprintf(
				tabWriter,
				"%d |\t%s |\t%s\n",
				offset,
				colors.Yellow(item.Opcode().String()),
				operands,
			)
			offset++
		}
	}

	_ = tabWriter.Flush()
	_, _ = fmt.Fprintln(builder)

	return nil
}
