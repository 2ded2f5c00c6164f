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
	"io"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/psmaoalove/redex/dex"
)

// Config controls which peepholes run and where diagnostics go.
type Config struct {
	// DisabledPeepholes lists pattern names that must not run.
	// Names that match no built-in pattern are ignored.
	DisabledPeepholes []string

	Logger *log.Logger
}

// PatternMatches records how often a single pattern fired.
type PatternMatches struct {
	Name    string
	Matches int
}

// Stats accumulates the instruction-level effect of a Run.
type Stats struct {
	Removed  int
	Inserted int
	Matches  []PatternMatches
}

func (s Stats) Net() int {
	return s.Removed - s.Inserted
}

func (s Stats) TotalMatches() int {
	var total int
	for _, m := range s.Matches {
		total += m.Matches
	}
	return total
}

// Optimizer applies the built-in peephole patterns to methods,
// one basic block at a time.
type Optimizer struct {
	matchers         []*Matcher
	checkCastRemover *CheckCastRemover
	logger           *log.Logger
	stats            Stats
}

func NewOptimizer(config Config) *Optimizer {
	logger := config.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	var matchers []*Matcher
	var matches []PatternMatches

	for _, pattern := range AllPatterns() {
		if slices.Contains(config.DisabledPeepholes, pattern.Name) {
			logger.Debug("peephole disabled", "pattern", pattern.Name)
			continue
		}
		matchers = append(matchers, NewMatcher(&pattern))
		matches = append(matches, PatternMatches{Name: pattern.Name})
	}

	for _, name := range config.DisabledPeepholes {
		if !hasPattern(name) && name != CheckCastRemoverName {
			logger.Debug("unknown peephole name ignored", "pattern", name)
		}
	}

	optimizer := &Optimizer{
		matchers: matchers,
		logger:   logger,
		stats: Stats{
			Matches: matches,
		},
	}

	if !slices.Contains(config.DisabledPeepholes, CheckCastRemoverName) {
		optimizer.checkCastRemover = &CheckCastRemover{}
	}

	return optimizer
}

func hasPattern(name string) bool {
	for _, pattern := range AllPatterns() {
		if pattern.Name == name {
			return true
		}
	}
	return false
}

// Run optimizes every method with code in scope and returns
// the accumulated statistics.
func (o *Optimizer) Run(scope []*dex.Class) Stats {
	dex.WalkMethods(scope, func(method *dex.Method) {
		if method.Code == nil {
			return
		}
		o.OptimizeMethod(method)
		if o.checkCastRemover != nil {
			removed := o.checkCastRemover.Optimize(method.Code)
			o.stats.Removed += removed
		}
	})

	o.logger.Info("peephole pass done",
		"removed", o.stats.Removed,
		"inserted", o.stats.Inserted,
		"net", o.stats.Net(),
	)
	for _, m := range o.stats.Matches {
		if m.Matches == 0 {
			continue
		}
		o.logger.Debug("pattern matches", "pattern", m.Name, "count", m.Matches)
	}

	return o.stats
}

// Stats returns the statistics accumulated so far.
func (o *Optimizer) Stats() Stats {
	return o.stats
}

type insertion struct {
	anchor       *dex.Instruction
	replacements []*dex.Instruction
}

// OptimizeMethod runs every enabled pattern over the method's code.
// Matches never cross basic block boundaries. Rewrites are collected
// during the sweep and applied once the whole method has been scanned,
// so the scan itself never observes its own edits.
func (o *Optimizer) OptimizeMethod(method *dex.Method) {
	code := method.Code

	var deletes []*dex.Instruction
	var inserts []insertion

	for _, block := range dex.BasicBlocks(code) {
		for _, matcher := range o.matchers {
			matcher.Reset()
		}

		for _, instruction := range block.Instructions() {
			for i, matcher := range o.matchers {
				if !matcher.TryMatch(instruction) {
					continue
				}

				matched := matcher.MatchedInstructions()
				replacements := matcher.Replacements()

				o.stats.Matches[i].Matches++
				o.stats.Removed += len(matched)
				o.stats.Inserted += len(replacements)

				o.logger.Debug("pattern matched",
					"pattern", matcher.Pattern.Name,
					"method", method.String(),
				)

				deletes = append(deletes, matched...)
				inserts = append(inserts, insertion{
					anchor:       instruction,
					replacements: replacements,
				})

				matcher.Reset()
				break
			}
		}
	}

	for _, ins := range inserts {
		code.InsertAfter(ins.anchor, ins.replacements)
	}
	for _, instruction := range deletes {
		code.Remove(instruction)
	}
}
