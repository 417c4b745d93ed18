package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dhamidi/ilparse/grammar"
	"github.com/dhamidi/ilparse/languages/callexpr"
	"github.com/dhamidi/ilparse/languages/cil"
	"github.com/dhamidi/ilparse/table"
	"github.com/spf13/cobra"
)

func newTableCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Build and inspect parse tables",
	}
	cmd.AddCommand(newTableBuildCmd(a))
	cmd.AddCommand(newTableInspectCmd(a))
	return cmd
}

func newTableBuildCmd(a *app) *cobra.Command {
	var output, ebnfPath, start string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Compile a grammar and write its encoded table",
		Long: `Compile a grammar and write its encoded table.

Without --ebnf the built-in grammar selected by --language is compiled.
With --ebnf a grammar in Go's EBNF notation is read and compiled from the
--start production.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			switch {
			case ebnfPath != "":
				data, err = buildEBNF(ebnfPath, start)
			case a.langName == "cil":
				data, err = cil.TableBytes()
			case a.langName == "callexpr":
				data, err = callexpr.TableBytes()
			default:
				return fmt.Errorf("unknown language: %s", a.langName)
			}
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err = os.Stdout.Write(data)
				return err
			}
			return os.WriteFile(output, data, 0644)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout when empty)")
	cmd.Flags().StringVar(&ebnfPath, "ebnf", "", "compile this EBNF grammar file instead of a built-in grammar")
	cmd.Flags().StringVar(&start, "start", "", "start production of the EBNF grammar")

	return cmd
}

func buildEBNF(path, start string) ([]byte, error) {
	if start == "" {
		return nil, fmt.Errorf("--ebnf needs --start")
	}
	g, err := grammar.LoadEBNF(path, start)
	if err != nil {
		return nil, err
	}
	t, err := grammar.Compile(g)
	if err != nil {
		return nil, err
	}
	return table.Marshal(t)
}

func newTableInspectCmd(a *app) *cobra.Command {
	var showSymbols bool

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Summarize a parse table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lang, err := a.language()
			if err != nil {
				return err
			}
			t := lang.Table()
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "name\t%s\n", lang.Name())
			fmt.Fprintf(w, "version\t%d\n", lang.Version())
			fmt.Fprintf(w, "symbols\t%d\n", lang.SymbolCount())
			fmt.Fprintf(w, "tokens\t%d\n", lang.TokenCount())
			fmt.Fprintf(w, "externals\t%d\n", len(lang.Externals()))
			fmt.Fprintf(w, "fields\t%d\n", lang.FieldCount())
			fmt.Fprintf(w, "productions\t%d\n", len(t.Productions))
			fmt.Fprintf(w, "states\t%d\n", lang.StateCount())
			fmt.Fprintf(w, "lex modes\t%d\n", lang.LexModeCount())
			fmt.Fprintf(w, "conflicts\t%d\n", conflicts(t))
			if showSymbols {
				fmt.Fprintln(w)
				for i, s := range t.Symbols {
					fmt.Fprintf(w, "%d\t%s\t%s\tnamed=%t\tvisible=%t\n", i, s.Name, s.Kind, s.Named, s.Visible)
				}
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&showSymbols, "symbols", false, "list every symbol")

	return cmd
}

// conflicts counts the table entries that keep more than one action.
func conflicts(t *table.Table) int {
	n := 0
	for _, s := range t.States {
		for _, e := range s.Actions {
			if len(e.Actions) > 1 {
				n++
			}
		}
	}
	return n
}
