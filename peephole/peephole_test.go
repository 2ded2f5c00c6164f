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

package peephole_test

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/psmaoalove/redex/dex"
	"github.com/psmaoalove/redex/dex/opcode"
	"github.com/psmaoalove/redex/peephole"
	"github.com/psmaoalove/redex/test_utils"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// optimize assembles the listing, runs the optimizer over it as the
// body of a single method, and returns the rewritten code and the
// stats.
func optimize(t *testing.T, source string, config peephole.Config) (*dex.Code, peephole.Stats) {
	t.Helper()

	code, err := dex.Assemble(source)
	require.NoError(t, err)

	method := &dex.Method{
		Class:      dex.MakeType("LTest;"),
		Name:       "test",
		ReturnType: dex.MakeType("V"),
		Code:       code,
	}
	scope := []*dex.Class{
		{
			Type:    dex.MakeType("LTest;"),
			Methods: []*dex.Method{method},
		},
	}

	stats := peephole.NewOptimizer(config).Run(scope)
	return code, stats
}

// listing formats the instructions one per line, the way they are
// compared in the tests below.
func listing(code *dex.Code) string {
	var lines []string
	for _, item := range code.Items() {
		switch item := item.(type) {
		case *dex.Label:
			lines = append(lines, item.String())
		case *dex.Instruction:
			lines = append(lines, item.String())
		}
	}
	return strings.Join(lines, "\n")
}

func assertOptimized(t *testing.T, source string, expected string) {
	t.Helper()

	code, _ := optimize(t, source, peephole.Config{})
	test_utils.AssertEqualWithDiff(
		t,
		strings.TrimSpace(expected),
		listing(code),
	)
}

func assertUnchanged(t *testing.T, source string) {
	t.Helper()

	original, err := dex.Assemble(source)
	require.NoError(t, err)

	code, stats := optimize(t, source, peephole.Config{})
	test_utils.AssertEqualWithDiff(
		t,
		listing(original),
		listing(code),
	)
	assert.Zero(t, stats.TotalMatches())
}

func TestRemoveRedundantMove(t *testing.T) {
	t.Parallel()

	assertOptimized(t,
		`
		    move v3, v3
		    move-object v2, v2
		    return-void
		`,
		`return-void`,
	)

	// moves between distinct registers stay
	assertUnchanged(t, `
	    move v1, v2
	    return-void
	`)
}

func TestCoalesceInitVoidAppendString(t *testing.T) {
	t.Parallel()

	assertOptimized(t,
		`
		    invoke-direct {v0}, Ljava/lang/StringBuilder;.<init>:()V
		    const-string v1, "greeting"
		    invoke-virtual {v0, v1}, Ljava/lang/StringBuilder;.append:(Ljava/lang/String;)Ljava/lang/StringBuilder;
		    move-result-object v0
		    return-void
		`,
		`
const-string v1, "greeting"
invoke-direct {v0, v1}, Ljava/lang/StringBuilder;.<init>:(Ljava/lang/String;)V
return-void
		`,
	)
}

func TestCoalesceAppendStringAppendString(t *testing.T) {
	t.Parallel()

	assertOptimized(t,
		`
		    const-string v1, "A"
		    invoke-virtual {v0, v1}, Ljava/lang/StringBuilder;.append:(Ljava/lang/String;)Ljava/lang/StringBuilder;
		    move-result-object v2
		    const-string v3, "B"
		    invoke-virtual {v2, v3}, Ljava/lang/StringBuilder;.append:(Ljava/lang/String;)Ljava/lang/StringBuilder;
		    return-void
		`,
		`
const-string v1, "AB"
invoke-virtual {v0, v1}, Ljava/lang/StringBuilder;.append:(Ljava/lang/String;)Ljava/lang/StringBuilder;
return-void
		`,
	)
}

func TestCompileTimeStringLength(t *testing.T) {
	t.Parallel()

	// é is one UTF-16 code unit, 𝄞 is two
	assertOptimized(t,
		`
		    const-string v0, "héllo𝄞"
		    invoke-virtual {v0}, Ljava/lang/String;.length:()I
		    move-result v1
		    return-void
		`,
		`
const-string v0, "héllo𝄞"
const/16 v1, #7
return-void
		`,
	)
}

func TestCompileTimeStringCompare(t *testing.T) {
	t.Parallel()

	t.Run("equal", func(t *testing.T) {
		t.Parallel()

		assertOptimized(t,
			`
			    const-string v0, "x"
			    const-string v1, "x"
			    invoke-virtual {v0, v1}, Ljava/lang/String;.equals:(Ljava/lang/Object;)Z
			    move-result v2
			    return-void
			`,
			`
const/4 v2, #1
return-void
			`,
		)
	})

	t.Run("different", func(t *testing.T) {
		t.Parallel()

		assertOptimized(t,
			`
			    const-string v0, "x"
			    const-string v1, "y"
			    invoke-virtual {v0, v1}, Ljava/lang/String;.equals:(Ljava/lang/Object;)Z
			    move-result v2
			    return-void
			`,
			`
const/4 v2, #0
return-void
			`,
		)
	})
}

func TestReplaceValueOf(t *testing.T) {
	t.Parallel()

	t.Run("boolean", func(t *testing.T) {
		t.Parallel()

		assertOptimized(t,
			`
			    const/4 v0, #1
			    invoke-static {v0}, Ljava/lang/String;.valueOf:(Z)Ljava/lang/String;
			    move-result-object v1
			    return-void
			`,
			`
const-string v1, "true"
return-void
			`,
		)
	})

	t.Run("char", func(t *testing.T) {
		t.Parallel()

		assertOptimized(t,
			`
			    const/16 v0, #65
			    invoke-static {v0}, Ljava/lang/String;.valueOf:(C)Ljava/lang/String;
			    move-result-object v1
			    return-void
			`,
			`
const-string v1, "A"
return-void
			`,
		)
	})

	t.Run("int", func(t *testing.T) {
		t.Parallel()

		assertOptimized(t,
			`
			    const/16 v0, #-42
			    invoke-static {v0}, Ljava/lang/String;.valueOf:(I)Ljava/lang/String;
			    move-result-object v1
			    return-void
			`,
			`
const-string v1, "-42"
return-void
			`,
		)
	})

	t.Run("long", func(t *testing.T) {
		t.Parallel()

		assertOptimized(t,
			`
			    const-wide/16 v0, #42
			    invoke-static {v0, v1}, Ljava/lang/String;.valueOf:(J)Ljava/lang/String;
			    move-result-object v2
			    return-void
			`,
			`
const-string v2, "42"
return-void
			`,
		)
	})

	t.Run("float", func(t *testing.T) {
		t.Parallel()

		// 0x40200000 is the bit pattern of 2.5f
		assertOptimized(t,
			`
			    const v0, #0x40200000
			    invoke-static {v0}, Ljava/lang/String;.valueOf:(F)Ljava/lang/String;
			    move-result-object v1
			    return-void
			`,
			`
const-string v1, "2.500000"
return-void
			`,
		)
	})

	t.Run("double", func(t *testing.T) {
		t.Parallel()

		// 0x4004000000000000 is the bit pattern of 2.5
		assertOptimized(t,
			`
			    const-wide v0, #0x4004000000000000
			    invoke-static {v0, v1}, Ljava/lang/String;.valueOf:(D)Ljava/lang/String;
			    move-result-object v2
			    return-void
			`,
			`
const-string v2, "2.500000"
return-void
			`,
		)
	})
}

func TestArithIdentities(t *testing.T) {
	t.Parallel()

	t.Run("multiply by one", func(t *testing.T) {
		t.Parallel()

		assertOptimized(t,
			`
			    mul-int/lit8 v0, v1, #1
			    return-void
			`,
			`
move/16 v0, v1
return-void
			`,
		)
	})

	t.Run("divide by minus one", func(t *testing.T) {
		t.Parallel()

		assertOptimized(t,
			`
			    div-int/lit8 v0, v1, #-1
			    return-void
			`,
			`
neg-int v0, v1
return-void
			`,
		)
	})

	t.Run("add zero", func(t *testing.T) {
		t.Parallel()

		assertOptimized(t,
			`
			    add-int/lit16 v0, v1, #0
			    return-void
			`,
			`
move/16 v0, v1
return-void
			`,
		)
	})

	t.Run("other literals stay", func(t *testing.T) {
		t.Parallel()

		assertUnchanged(t, `
		    mul-int/lit8 v0, v1, #2
		    add-int/lit16 v2, v3, #5
		    return-void
		`)
	})
}

func TestRemoveLangClassGetSimpleName(t *testing.T) {
	t.Parallel()

	assertOptimized(t,
		`
		    const-class v0, Lcom/foo/Bar;
		    invoke-virtual {v0}, Ljava/lang/Class;.getSimpleName:()Ljava/lang/String;
		    move-result-object v1
		    return-void
		`,
		`
const-class v0, Lcom/foo/Bar;
const-string v1, "Bar"
return-void
		`,
	)
}

func TestRegisterWidthCeiling(t *testing.T) {
	t.Parallel()

	// neg-int encodes only 4-bit registers, so the rewrite must not
	// fire for v16 and above
	assertUnchanged(t, `
	    mul-int/lit8 v16, v1, #-1
	    return-void
	`)

	assertOptimized(t,
		`
		    mul-int/lit8 v15, v1, #-1
		    return-void
		`,
		`
neg-int v15, v1
return-void
		`,
	)
}

func TestMatchesDoNotCrossBasicBlocks(t *testing.T) {
	t.Parallel()

	// the label between the const-string and the invoke is a branch
	// target, so the sequence is not a straight-line run
	assertUnchanged(t, `
	    const-string v0, "hi"
	    :target
	    invoke-virtual {v0}, Ljava/lang/String;.length:()I
	    move-result v1
	    if-eqz v1, :target
	    return-void
	`)
}

func TestRetry(t *testing.T) {
	t.Parallel()

	t.Run("restart on second template", func(t *testing.T) {
		t.Parallel()

		// the first const-string aborts the match on its second
		// template, and the aborting instruction starts a fresh match
		assertOptimized(t,
			`
			    const-string v0, "a"
			    const-string v0, "bb"
			    invoke-virtual {v0}, Ljava/lang/String;.length:()I
			    move-result v1
			    return-void
			`,
			`
const-string v0, "a"
const-string v0, "bb"
const/16 v1, #2
return-void
			`,
		)
	})

	t.Run("no restart deeper in", func(t *testing.T) {
		t.Parallel()

		// the second const-string aborts the match on the third
		// template; no rescan happens, so nothing matches
		assertUnchanged(t, `
		    const-string v0, "a"
		    invoke-virtual {v0}, Ljava/lang/String;.length:()I
		    const-string v0, "b"
		    invoke-virtual {v0}, Ljava/lang/String;.length:()I
		    move-result v1
		    return-void
		`)
	})
}

func TestStats(t *testing.T) {
	t.Parallel()

	_, stats := optimize(t,
		`
		    move v3, v3
		    const/4 v0, #1
		    invoke-static {v0}, Ljava/lang/String;.valueOf:(Z)Ljava/lang/String;
		    move-result-object v1
		    return-void
		`,
		peephole.Config{},
	)

	assert.Equal(t, 4, stats.Removed)
	assert.Equal(t, 1, stats.Inserted)
	assert.Equal(t, 3, stats.Net())
	assert.Equal(t, 2, stats.TotalMatches())
}

func TestDisabledPeepholes(t *testing.T) {
	t.Parallel()

	source := `
	    move v3, v3
	    return-void
	`

	code, stats := optimize(t, source, peephole.Config{
		DisabledPeepholes: []string{"Remove_Redundant_Move"},
	})

	assert.Equal(t, 2, code.InstructionCount())
	assert.Zero(t, stats.TotalMatches())

	// unknown names are ignored
	code, _ = optimize(t, source, peephole.Config{
		DisabledPeepholes: []string{"No_Such_Peephole"},
	})
	assert.Equal(t, 1, code.InstructionCount())
}

func TestIdempotence(t *testing.T) {
	t.Parallel()

	source := `
	    const-string v1, "A"
	    invoke-virtual {v0, v1}, Ljava/lang/StringBuilder;.append:(Ljava/lang/String;)Ljava/lang/StringBuilder;
	    move-result-object v2
	    const-string v3, "B"
	    invoke-virtual {v2, v3}, Ljava/lang/StringBuilder;.append:(Ljava/lang/String;)Ljava/lang/StringBuilder;
	    return-void
	`

	code, _ := optimize(t, source, peephole.Config{})
	first := listing(code)

	method := &dex.Method{
		Class:      dex.MakeType("LTest;"),
		Name:       "test",
		ReturnType: dex.MakeType("V"),
		Code:       code,
	}
	scope := []*dex.Class{
		{
			Type:    dex.MakeType("LTest;"),
			Methods: []*dex.Method{method},
		},
	}
	stats := peephole.NewOptimizer(peephole.Config{}).Run(scope)

	assert.Equal(t, first, listing(code))
	assert.Zero(t, stats.TotalMatches())
}

func TestUnmatchedStreamsAreUntouched(t *testing.T) {
	t.Parallel()

	properties := gopter.NewProperties(nil)

	properties.Property("streams without a pattern occurrence are unchanged", prop.ForAll(
		func(dests []int, literal int64) bool {
			var builder strings.Builder
			for _, dest := range dests {
				instruction := dex.NewLitArith(
					opcode.AddIntLit8,
					dex.Reg(dest),
					dex.Reg(dest+1),
					literal,
				)
				builder.WriteString(instruction.String())
				builder.WriteByte('\n')
			}
			builder.WriteString("return-void\n")

			source := builder.String()
			code, stats := optimizeSource(source)
			return stats.TotalMatches() == 0 &&
				listing(code) == listingOfSource(source)
		},
		gen.SliceOf(gen.IntRange(0, 14)),
		gen.Int64Range(2, 1<<20),
	))

	properties.TestingRun(t)
}

func optimizeSource(source string) (*dex.Code, peephole.Stats) {
	code, err := dex.Assemble(source)
	if err != nil {
		panic(err)
	}
	method := &dex.Method{
		Class:      dex.MakeType("LTest;"),
		Name:       "test",
		ReturnType: dex.MakeType("V"),
		Code:       code,
	}
	scope := []*dex.Class{
		{
			Type:    dex.MakeType("LTest;"),
			Methods: []*dex.Method{method},
		},
	}
	stats := peephole.NewOptimizer(peephole.Config{}).Run(scope)
	return code, stats
}

func listingOfSource(source string) string {
	code, err := dex.Assemble(source)
	if err != nil {
		panic(err)
	}
	return listing(code)
}
