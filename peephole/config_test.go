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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/psmaoalove/redex/peephole"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "redex.yaml")
	err := os.WriteFile(path, []byte(`
disabled_peepholes:
  - Remove_Redundant_Move
  - Remove_Redundant_CheckCast
`), 0o600)
	require.NoError(t, err)

	config, err := peephole.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t,
		[]string{
			"Remove_Redundant_Move",
			"Remove_Redundant_CheckCast",
		},
		config.DisabledPeepholes,
	)
}

func TestLoadConfigMissingFile(t *testing.T) {
	t.Parallel()

	_, err := peephole.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorContains(t, err, "failed to read config")
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "redex.yaml")
	err := os.WriteFile(path, []byte("disabled_peepholes: {"), 0o600)
	require.NoError(t, err)

	_, err = peephole.LoadConfig(path)
	require.ErrorContains(t, err, "failed to parse config")
}
