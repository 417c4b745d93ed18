package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

const version = "0.1.0"

func main() {
	app := &app{}

	rootCmd := &cobra.Command{
		Use:           "ilparse",
		Short:         "Incremental parsing for CIL assembly listings",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := app.loadConfig(); err != nil {
				return err
			}
			verbosity := app.cfg.Log.Verbosity + app.verbosity
			var path *string
			if app.cfg.Log.File != "" {
				path = &app.cfg.Log.File
			}
			commonlog.Configure(verbosity, path)
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&app.configPath, "config", "", "config file (.toml, .yaml or .yml)")
	flags.CountVarP(&app.verbosity, "verbose", "v", "raise log verbosity (repeatable)")
	flags.StringVarP(&app.langName, "language", "l", "cil", "built-in language (cil, callexpr)")
	flags.StringVar(&app.tablePath, "table", "", "load the parse table from a file instead")

	rootCmd.AddCommand(newParseCmd(app))
	rootCmd.AddCommand(newQueryCmd(app))
	rootCmd.AddCommand(newEditCmd(app))
	rootCmd.AddCommand(newTableCmd(app))
	rootCmd.AddCommand(newLSPCmd(app))
	rootCmd.AddCommand(newWatchCmd(app))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
