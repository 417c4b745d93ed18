package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dhamidi/ilparse/format"
	"github.com/dhamidi/ilparse/parser"
	"github.com/spf13/cobra"
)

func newParseCmd(a *app) *cobra.Command {
	var outputFormat string
	var ranges bool
	var stats bool
	var strict bool

	cmd := &cobra.Command{
		Use:   "parse [file]",
		Short: "Parse a file and print its syntax tree",
		Long: `Parse a file and print its syntax tree.

Reads from stdin when no file is given. Syntax errors never stop the parse;
they show up as ERROR and MISSING nodes. Use --strict to exit with an error
when the tree contains any.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			ctx, cancel := a.context()
			defer cancel()
			started := time.Now()
			tree, err := parser.New(lang, a.parserOptions()...).Parse(ctx, source, nil)
			if err != nil {
				return fmt.Errorf("parse: %w", err)
			}
			elapsed := time.Since(started)

			encoder, err := newEncoder(outputFormat, ranges)
			if err != nil {
				return err
			}
			if err := encoder.Encode(tree); err != nil {
				return fmt.Errorf("encode: %w", err)
			}
			if stats {
				fmt.Fprintf(os.Stderr, "%d bytes, %d leaves, %s, errors: %t\n",
					len(source), len(tree.Leaves()), elapsed, tree.Root().HasError())
			}
			if strict && tree.Root().HasError() {
				return fmt.Errorf("%s: syntax errors", displayName(name))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "sexpr", "output format (sexpr, json, yaml, lines)")
	cmd.Flags().BoolVar(&ranges, "ranges", false, "annotate S-expressions with row:column ranges")
	cmd.Flags().BoolVar(&stats, "stats", false, "print parse statistics to stderr")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when the tree has syntax errors")

	return cmd
}

func newEncoder(name string, ranges bool) (format.Encoder, error) {
	switch name {
	case "sexpr":
		return format.NewSExprEncoder(os.Stdout).WithRanges(ranges), nil
	case "json":
		return format.NewJSONEncoder(os.Stdout), nil
	case "yaml":
		return format.NewYAMLEncoder(os.Stdout), nil
	case "lines":
		return format.NewLineEncoder(os.Stdout), nil
	}
	return nil, fmt.Errorf("unknown format: %s", name)
}

func displayName(name string) string {
	if name == "" || name == "-" {
		return "<stdin>"
	}
	return name
}
