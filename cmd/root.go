// root.go viper root command code
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/denoise-pipeline/cmd/enhance"
	"github.com/tphakala/denoise-pipeline/internal/conf"
)

// RootCommand creates and returns the root command. v must already carry
// defaults, env overrides, and no config file yet (see internal/conf.Load
// called with an empty path); the --config flag registered here is
// merged in PersistentPreRunE, once CLI flags have been parsed, so
// "CLI overrides file, file overrides built-in defaults" holds
// regardless of merge order.
func RootCommand(v *viper.Viper) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "denoise-pipeline",
		Short: "Batch speech-enhancement pipeline CLI",
	}

	if err := setupFlags(rootCmd, v); err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "error setting up flags: %v\n", err)
	}

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := conf.MergeConfigFile(v, v.GetString("config")); err != nil {
			return err
		}
		return nil
	}

	rootCmd.AddCommand(enhance.Command(v))

	return rootCmd
}

func setupFlags(rootCmd *cobra.Command, v *viper.Viper) error {
	rootCmd.PersistentFlags().BoolVarP(new(bool), "debug", "d", v.GetBool("debug"), "Enable debug output")
	rootCmd.PersistentFlags().String("config", "", "Path to a config file (TOML or YAML, detected by extension)")

	if err := v.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
