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
	"os"

	"github.com/goccy/go-yaml"

	"github.com/psmaoalove/redex/errors"
)

type configFile struct {
	DisabledPeepholes []string `yaml:"disabled_peepholes"`
}

// LoadConfig reads a YAML configuration file of the form
//
//	disabled_peepholes:
//	  - Remove_Redundant_Move
//	  - Remove_Redundant_CheckCast
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.NewDefaultUserError("failed to read config: %s", err.Error())
	}

	var parsed configFile
	err = yaml.Unmarshal(data, &parsed)
	if err != nil {
		return Config{}, errors.NewDefaultUserError("failed to parse config: %s", err.Error())
	}

	return Config{
		DisabledPeepholes: parsed.DisabledPeepholes,
	}, nil
}
