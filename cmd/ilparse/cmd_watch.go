package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dhamidi/ilparse/codebase"
	"github.com/spf13/cobra"
)

func newWatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Parse a directory and report syntax errors as files change",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := a.cfg.Workspace.Root
			if len(args) > 0 {
				root = args[0]
			}
			lang, err := a.language()
			if err != nil {
				return err
			}
			opts, err := a.codebaseOptions(lang)
			if err != nil {
				return err
			}

			cb := codebase.New(root, lang, opts...)
			if err := cb.ScanAll(); err != nil {
				return fmt.Errorf("scan %s: %w", root, err)
			}
			for _, path := range cb.Paths() {
				report(cb, path)
			}

			watcher, err := codebase.NewFileWatcher(cb)
			if err != nil {
				return fmt.Errorf("watch: %w", err)
			}
			watcher.OnChange = func(path string, removed bool) {
				if removed {
					fmt.Printf("%s: removed\n", relative(root, path))
					return
				}
				report(cb, path)
			}
			if err := watcher.Start(); err != nil {
				return fmt.Errorf("watch: %w", err)
			}
			defer watcher.Stop()

			fmt.Fprintf(os.Stderr, "watching %s\n", root)
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig
			return nil
		},
	}
	return cmd
}

func report(cb *codebase.Codebase, path string) {
	file := cb.GetFile(path)
	if file == nil {
		return
	}
	name := relative(cb.RootDir(), path)
	if file.ParseErr != nil {
		fmt.Printf("%s: %v\n", name, file.ParseErr)
		return
	}
	diags := cb.Diagnostics(path)
	if len(diags) == 0 {
		fmt.Printf("%s: ok\n", name)
		return
	}
	for _, d := range diags {
		fmt.Printf("%s:%d: %s\n", name, d.StartByte, d.Message)
	}
}

func relative(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return rel
	}
	return path
}
