package main

import (
	"context"
	"fmt"
	"os"

	"github.com/tphakala/denoise-pipeline/cmd"
	"github.com/tphakala/denoise-pipeline/internal/conf"
)

func main() {
	// No config file is read here: the --config flag registered by
	// cmd.RootCommand is only known once argv is parsed, so the file is
	// merged in from the root command's PersistentPreRunE instead.
	v, err := conf.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}

	rootCmd := cmd.RootCommand(v)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
