package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackcoderx/harrier/pkg/loader"
	"github.com/blackcoderx/harrier/pkg/resolve"
	"github.com/blackcoderx/harrier/pkg/runctx"
)

var varsSave string

func init() {
	rootCmd.AddCommand(varsCmd)
	varsCmd.AddCommand(varsListCmd)
	varsCmd.AddCommand(varsResolveCmd)
	varsCmd.AddCommand(varsSetCmd)
	varsSetCmd.Flags().StringVar(&varsSave, "save", "", "environment name under .harrier/environments to write the new value into")
}

var varsCmd = &cobra.Command{
	Use:   "vars",
	Short: "Inspect and edit environment variables",
}

var varsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available environments under .harrier/environments",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		names, err := loader.ListEnvironments(cfg.EnvironmentsDir)
		if err != nil {
			return fmt.Errorf("vars list: %w", err)
		}
		if len(names) == 0 {
			fmt.Println("no environments found")
			return nil
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	},
}

var varsResolveCmd = &cobra.Command{
	Use:   "resolve <template> [env]",
	Short: "Resolve a {{var}} template string against an environment",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		env := cfg.DefaultEnv
		if len(args) == 2 {
			env = args[1]
		}

		rc := runctx.New()
		if env != "" {
			envPath := filepath.Join(cfg.EnvironmentsDir, env+".yaml")
			if vals, err := loader.LoadEnvironment(envPath); err == nil {
				for k, v := range vals {
					rc.Set(runctx.ScopeEnvironment, k, v)
				}
			}
		}

		resolver := resolve.New(resolve.Lenient)
		out, undefined, err := resolver.Resolve(args[0], rc)
		if err != nil {
			return fmt.Errorf("vars resolve: %w", err)
		}
		fmt.Println(out)
		if len(undefined) > 0 {
			sort.Strings(undefined)
			fmt.Fprintf(cmd.ErrOrStderr(), "undefined: %s\n", strings.Join(undefined, ", "))
		}
		return nil
	},
}

var varsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a variable in an environment file, creating it if needed",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		envName := varsSave
		if envName == "" {
			envName = cfg.DefaultEnv
		}
		if envName == "" {
			return fmt.Errorf("vars set: no environment name given and no default_env configured")
		}

		envPath := filepath.Join(cfg.EnvironmentsDir, envName+".yaml")
		vals, err := loader.LoadEnvironment(envPath)
		if err != nil {
			vals = map[string]string{}
		}
		vals[args[0]] = args[1]

		if err := loader.SaveEnvironment(vals, envPath); err != nil {
			return fmt.Errorf("vars set: %w", err)
		}
		fmt.Printf("%s = %s written to %s\n", args[0], args[1], envPath)
		return nil
	},
}
