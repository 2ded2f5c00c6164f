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

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/psmaoalove/redex/dex"
	"github.com/psmaoalove/redex/peephole"
)

var (
	configPath string
	disabled   []string
	colorize   bool
	verbose    bool
)

func rootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "redex",
		Short:        "Peephole optimizer for Dalvik bytecode listings",
		SilenceUsage: true,
	}

	rootFlags := rootCmd.PersistentFlags()
	rootFlags.StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootFlags.StringSliceVar(&disabled, "disable", nil, "peephole names to disable")
	rootFlags.BoolVar(&colorize, "color", false, "colorize output")
	rootFlags.BoolVarP(&verbose, "verbose", "v", false, "show debug messages")

	rootCmd.AddCommand(optimizeCommand())
	rootCmd.AddCommand(printCommand())

	return rootCmd
}

func newLogger() *log.Logger {
	logger := log.New(os.Stderr)
	logger.SetPrefix("redex")
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

func loadConfig(logger *log.Logger) (peephole.Config, error) {
	config := peephole.Config{
		Logger: logger,
	}
	if configPath != "" {
		loaded, err := peephole.LoadConfig(configPath)
		if err != nil {
			return peephole.Config{}, err
		}
		config.DisabledPeepholes = loaded.DisabledPeepholes
	}
	config.DisabledPeepholes = append(config.DisabledPeepholes, disabled...)
	return config, nil
}

func assembleFile(path string) (*dex.Code, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return dex.Assemble(string(data))
}

func optimizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "optimize <file>",
		Short: "Optimize a bytecode listing and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			logger := newLogger()

			config, err := loadConfig(logger)
			if err != nil {
				return err
			}

			code, err := assembleFile(args[0])
			if err != nil {
				return err
			}

			method := dex.MakeMethod("LMain;", "main", "V")
			method.Code = code
			scope := []*dex.Class{
				dex.NewClass("LMain;", method),
			}

			optimizer := peephole.NewOptimizer(config)
			stats := optimizer.Run(scope)

			var builder strings.Builder
			err = dex.PrintCode(&builder, code, colorize)
			if err != nil {
				return err
			}
			fmt.Print(builder.String())

			fmt.Printf(
				"removed %d, inserted %d, net %d, matches %d\n",
				stats.Removed,
				stats.Inserted,
				stats.Net(),
				stats.TotalMatches(),
			)
			return nil
		},
	}
}

func printCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "print <file>",
		Short: "Assemble a bytecode listing and print it without optimizing",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			code, err := assembleFile(args[0])
			if err != nil {
				return err
			}

			var builder strings.Builder
			err = dex.PrintCode(&builder, code, colorize)
			if err != nil {
				return err
			}
			fmt.Print(builder.String())
			return nil
		},
	}
}

func main() {
	err := rootCommand().Execute()
	if err != nil {
		os.Exit(1)
	}
}
