package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dhamidi/ilparse/parser"
	"github.com/dhamidi/ilparse/query"
	"github.com/spf13/cobra"
)

func newQueryCmd(a *app) *cobra.Command {
	var expr string
	var queryFile string

	cmd := &cobra.Command{
		Use:   "query [file]",
		Short: "Run a tree query against a file and print the captures",
		Example: `  ilparse query -e '(def_method name: (id_method) @name)' Program.il
  ilparse query --file symbols.scm Program.il`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case expr == "" && queryFile == "":
				return fmt.Errorf("one of -e or --file is required")
			case queryFile != "":
				data, err := os.ReadFile(queryFile)
				if err != nil {
					return fmt.Errorf("read query: %w", err)
				}
				expr = string(data)
			}
			var name string
			if len(args) > 0 {
				name = args[0]
			}
			source, err := readSource(name)
			if err != nil {
				return err
			}
			lang, err := a.language()
			if err != nil {
				return err
			}
			q, err := query.Compile(lang, expr)
			if err != nil {
				return err
			}

			ctx, cancel := a.context()
			defer cancel()
			tree, err := parser.New(lang, a.parserOptions()...).Parse(ctx, source, nil)
			if err != nil {
				return fmt.Errorf("parse: %w", err)
			}

			for m := range q.Matches(tree.Root()) {
				parts := make([]string, 0, len(m.Captures))
				for _, c := range m.Captures {
					parts = append(parts, fmt.Sprintf("@%s [%d, %d) %q", c.Name, c.Node.StartByte(), c.Node.EndByte(), c.Node.Text()))
				}
				fmt.Printf("pattern %d: %s\n", m.Pattern, strings.Join(parts, " "))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&expr, "expr", "e", "", "query source")
	cmd.Flags().StringVar(&queryFile, "file", "", "read the query from a file")

	return cmd
}
