package main

import (
	"github.com/dhamidi/ilparse/codebase"
	"github.com/spf13/cobra"
)

func newLSPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Start the language server on stdio",
		Long: `Start a Language Server Protocol server on stdin/stdout.

Open documents are reparsed incrementally on every change. The server
publishes syntax diagnostics and answers hover and document symbol requests.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lang, err := a.language()
			if err != nil {
				return err
			}
			opts, err := a.codebaseOptions(lang)
			if err != nil {
				return err
			}
			return codebase.NewLSPServer(lang, version, opts...).RunStdio()
		},
	}
}
