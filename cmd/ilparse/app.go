package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dhamidi/ilparse/codebase"
	"github.com/dhamidi/ilparse/config"
	"github.com/dhamidi/ilparse/languages/callexpr"
	"github.com/dhamidi/ilparse/languages/cil"
	"github.com/dhamidi/ilparse/parser"
	"github.com/dhamidi/ilparse/query"
	"github.com/dhamidi/ilparse/table"
)

// app carries the global flags and settings shared by all commands.
type app struct {
	configPath string
	verbosity  int
	langName   string
	tablePath  string
	cfg        *config.Config
}

func (a *app) loadConfig() error {
	if a.configPath == "" {
		a.cfg = config.Default()
		return nil
	}
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// language resolves the --language and --table flags.
func (a *app) language() (*table.Language, error) {
	var opts []table.LanguageOption
	if a.langName == "callexpr" {
		opts = append(opts, table.WithExternalScanner(callexpr.NewScanner))
	}
	if a.tablePath != "" {
		data, err := os.ReadFile(a.tablePath)
		if err != nil {
			return nil, fmt.Errorf("read table: %w", err)
		}
		return table.Load(data, opts...)
	}
	switch a.langName {
	case "cil":
		return cil.Language()
	case "callexpr":
		return callexpr.Language()
	}
	return nil, fmt.Errorf("unknown language: %s (expected cil or callexpr)", a.langName)
}

func (a *app) parserOptions() []parser.Option {
	return []parser.Option{
		parser.WithOperationLimit(a.cfg.Parser.OperationLimit),
		parser.WithMaxVersions(a.cfg.Parser.MaxVersions),
	}
}

func (a *app) context() (context.Context, context.CancelFunc) {
	if d := a.cfg.Parser.Timeout.Duration; d > 0 {
		return context.WithTimeout(context.Background(), d)
	}
	return context.WithCancel(context.Background())
}

// readSource reads the named file, or stdin for "-" or no name.
func readSource(name string) ([]byte, error) {
	if name == "" || name == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return data, nil
}

// codebaseOptions maps the workspace and parser settings onto a Codebase.
func (a *app) codebaseOptions(lang *table.Language) ([]codebase.Option, error) {
	opts := []codebase.Option{
		codebase.WithExtensions(a.cfg.Workspace.Extensions...),
		codebase.WithParserOptions(a.parserOptions()...),
		codebase.WithTimeout(a.cfg.Parser.Timeout.Duration),
	}
	if a.langName == "cil" {
		q, err := query.Compile(lang, cil.SymbolsQuery)
		if err != nil {
			return nil, err
		}
		opts = append(opts, codebase.WithSymbolQuery(q))
	}
	return opts, nil
}
