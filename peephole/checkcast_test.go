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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psmaoalove/redex/dex"
	"github.com/psmaoalove/redex/peephole"
)

func removeCheckCasts(t *testing.T, source string) (*dex.Code, int) {
	t.Helper()

	code, err := dex.Assemble(source)
	require.NoError(t, err)

	remover := &peephole.CheckCastRemover{}
	removed := remover.Optimize(code)
	return code, removed
}

func TestCheckCastAfterNewInstance(t *testing.T) {
	t.Parallel()

	code, removed := removeCheckCasts(t, `
	    new-instance v0, LFoo;
	    invoke-direct {v0}, LFoo;.<init>:()V
	    check-cast v0, LFoo;
	    return-void
	`)

	assert.Equal(t, 1, removed)
	assert.Equal(t, "return-void", code.Instructions()[2].String())
}

func TestCheckCastDifferentType(t *testing.T) {
	t.Parallel()

	_, removed := removeCheckCasts(t, `
	    new-instance v0, LFoo;
	    invoke-direct {v0}, LFoo;.<init>:()V
	    check-cast v0, LBar;
	    return-void
	`)

	assert.Zero(t, removed)
}

func TestCheckCastAfterCheckCast(t *testing.T) {
	t.Parallel()

	// the first cast establishes the type, the second is redundant
	_, removed := removeCheckCasts(t, `
	    check-cast v0, LFoo;
	    check-cast v0, LFoo;
	    return-void
	`)

	assert.Equal(t, 1, removed)
}

func TestCheckCastAfterInvokeResult(t *testing.T) {
	t.Parallel()

	_, removed := removeCheckCasts(t, `
	    invoke-static {}, LFactory;.make:()LFoo;
	    move-result-object v0
	    check-cast v0, LFoo;
	    return-void
	`)

	assert.Equal(t, 1, removed)
}

func TestCheckCastAfterConstString(t *testing.T) {
	t.Parallel()

	_, removed := removeCheckCasts(t, `
	    const-string v0, "hello"
	    check-cast v0, Ljava/lang/String;
	    return-void
	`)

	assert.Equal(t, 1, removed)
}

func TestCheckCastFollowsMoves(t *testing.T) {
	t.Parallel()

	_, removed := removeCheckCasts(t, `
	    new-instance v0, LFoo;
	    invoke-direct {v0}, LFoo;.<init>:()V
	    move-object v1, v0
	    check-cast v1, LFoo;
	    return-void
	`)

	assert.Equal(t, 1, removed)
}

func TestCheckCastKnowledgeStopsAtBlockBoundary(t *testing.T) {
	t.Parallel()

	_, removed := removeCheckCasts(t, `
	    new-instance v0, LFoo;
	    invoke-direct {v0}, LFoo;.<init>:()V
	    :join
	    check-cast v0, LFoo;
	    return-void
	`)

	assert.Zero(t, removed)
}

func TestCheckCastClobberedRegister(t *testing.T) {
	t.Parallel()

	_, removed := removeCheckCasts(t, `
	    new-instance v0, LFoo;
	    invoke-direct {v0}, LFoo;.<init>:()V
	    const/4 v0, #0
	    check-cast v0, LFoo;
	    return-void
	`)

	assert.Zero(t, removed)
}

func TestCheckCastRemoverDisabled(t *testing.T) {
	t.Parallel()

	source := `
	    new-instance v0, LFoo;
	    invoke-direct {v0}, LFoo;.<init>:()V
	    check-cast v0, LFoo;
	    return-void
	`

	code, stats := optimize(t, source, peephole.Config{
		DisabledPeepholes: []string{peephole.CheckCastRemoverName},
	})

	assert.Equal(t, 4, code.InstructionCount())
	assert.Zero(t, stats.Removed)
}
