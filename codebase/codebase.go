// Package codebase keeps a set of parsed documents up to date. Documents
// are reparsed incrementally from ranged changes or from whole new
// contents, and expose diagnostics, symbols and node lookups for the
// language server and the watch command.
package codebase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dhamidi/ilparse/parser"
	"github.com/dhamidi/ilparse/query"
	"github.com/dhamidi/ilparse/syntax"
	"github.com/dhamidi/ilparse/table"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("ilparse.codebase")

type Codebase struct {
	mu         sync.RWMutex
	rootDir    string
	lang       *table.Language
	parser     *parser.Parser
	parserOpts []parser.Option
	timeout    time.Duration
	extensions []string
	symbols    *query.Query
	files      map[string]*FileInfo
}

type FileInfo struct {
	Path    string
	Content []byte
	Tree    *syntax.Tree
	// Incremental is set when the tree was produced by reparsing the
	// previous one.
	Incremental bool
	ParseErr    error
}

type Option func(*Codebase)

// WithExtensions restricts ScanAll and the watcher to these extensions.
func WithExtensions(exts ...string) Option {
	return func(c *Codebase) {
		c.extensions = exts
	}
}

func WithParserOptions(opts ...parser.Option) Option {
	return func(c *Codebase) {
		c.parserOpts = append(c.parserOpts, opts...)
	}
}

// WithTimeout bounds every parse. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Codebase) {
		c.timeout = d
	}
}

// WithSymbolQuery sets the query used by Symbols. Each match must capture
// the defining node as @definition.<kind> and its name as @name.
func WithSymbolQuery(q *query.Query) Option {
	return func(c *Codebase) {
		c.symbols = q
	}
}

func New(rootDir string, lang *table.Language, opts ...Option) *Codebase {
	c := &Codebase{
		rootDir: rootDir,
		lang:    lang,
		files:   make(map[string]*FileInfo),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.parser = parser.New(lang, c.parserOpts...)
	return c
}

func (c *Codebase) RootDir() string {
	return c.rootDir
}

func (c *Codebase) Language() *table.Language {
	return c.lang
}

// Matches reports whether path has one of the configured extensions. With
// none configured every file matches.
func (c *Codebase) Matches(path string) bool {
	if len(c.extensions) == 0 {
		return true
	}
	ext := filepath.Ext(path)
	for _, e := range c.extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

func (c *Codebase) ScanAll() error {
	count := 0
	err := filepath.WalkDir(c.rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != c.rootDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if c.Matches(path) {
			if err := c.ScanFile(path); err != nil {
				log.Warningf("scan %s: %v", path, err)
			}
			count++
		}
		return nil
	})
	log.Infof("scanned %d files under %s", count, c.rootDir)
	return err
}

func (c *Codebase) ScanFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return c.UpdateFile(path, content)
}

// UpdateFile replaces the contents of a document. A known document is
// reparsed incrementally with a single edit covering the bytes between the
// common prefix and suffix of the old and new contents.
func (c *Codebase) UpdateFile(path string, content []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.files[path]
	if old == nil || old.Tree == nil {
		return c.parseLocked(path, content)
	}
	return c.reparseLocked(old, content, diffEdit(old.Content, content))
}

// Change replaces the bytes [StartByte, EndByte) of a document with Text.
type Change struct {
	StartByte int
	EndByte   int
	Text      string
}

// ApplyChanges applies ranged changes in order, each in the coordinates of
// the text left by the ones before it, and reparses once.
func (c *Codebase) ApplyChanges(path string, changes ...Change) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.files[path]
	if old == nil {
		return fmt.Errorf("apply changes: unknown document %s", path)
	}
	content := old.Content
	edits := make([]syntax.Edit, 0, len(changes))
	for _, ch := range changes {
		if ch.StartByte < 0 || ch.StartByte > ch.EndByte || ch.EndByte > len(content) {
			return fmt.Errorf("apply changes to %s: range [%d, %d) outside %d bytes", path, ch.StartByte, ch.EndByte, len(content))
		}
		next := make([]byte, 0, len(content)-(ch.EndByte-ch.StartByte)+len(ch.Text))
		next = append(next, content[:ch.StartByte]...)
		next = append(next, ch.Text...)
		next = append(next, content[ch.EndByte:]...)
		content = next
		edits = append(edits, syntax.Edit{
			StartByte:  ch.StartByte,
			OldEndByte: ch.EndByte,
			NewEndByte: ch.StartByte + len(ch.Text),
		})
	}
	if old.Tree == nil {
		return c.parseLocked(path, content)
	}
	return c.reparseLocked(old, content, edits...)
}

func (c *Codebase) context() (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(context.Background(), c.timeout)
	}
	return context.WithCancel(context.Background())
}

func (c *Codebase) parseLocked(path string, content []byte) error {
	ctx, cancel := c.context()
	defer cancel()
	tree, err := c.parser.Parse(ctx, content, nil)
	c.files[path] = &FileInfo{Path: path, Content: content, Tree: tree, ParseErr: err}
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	log.Debugf("parsed %s (%d bytes)", path, len(content))
	return nil
}

func (c *Codebase) reparseLocked(old *FileInfo, content []byte, edits ...syntax.Edit) error {
	ctx, cancel := c.context()
	defer cancel()
	tree, err := c.parser.Reparse(ctx, old.Tree, old.Content, content, edits...)
	c.files[old.Path] = &FileInfo{Path: old.Path, Content: content, Tree: tree, Incremental: err == nil, ParseErr: err}
	if err != nil {
		return fmt.Errorf("reparse %s: %w", old.Path, err)
	}
	log.Debugf("reparsed %s with %d edits", old.Path, len(edits))
	return nil
}

// diffEdit describes the change from before to after as one edit.
func diffEdit(before, after []byte) syntax.Edit {
	prefix := 0
	for prefix < len(before) && prefix < len(after) && before[prefix] == after[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(before)-prefix && suffix < len(after)-prefix &&
		before[len(before)-1-suffix] == after[len(after)-1-suffix] {
		suffix++
	}
	return syntax.Edit{
		StartByte:  prefix,
		OldEndByte: len(before) - suffix,
		NewEndByte: len(after) - suffix,
	}
}

func (c *Codebase) RemoveFile(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.files, path)
}

func (c *Codebase) GetFile(path string) *FileInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.files[path]
}

// Paths lists the known documents in lexical order.
func (c *Codebase) Paths() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	paths := make([]string, 0, len(c.files))
	for p := range c.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Diagnostic is a problem found in a document: an ERROR node or a token
// the parser had to assume.
type Diagnostic struct {
	StartByte int
	EndByte   int
	Message   string
}

func (c *Codebase) Diagnostics(path string) []Diagnostic {
	f := c.GetFile(path)
	if f == nil || f.Tree == nil {
		return nil
	}
	root := f.Tree.Root()
	if !root.HasError() {
		return nil
	}
	var out []Diagnostic
	cur := f.Tree.Cursor()
	for {
		n := cur.Node()
		descend := n.HasError()
		switch {
		case n.IsError():
			out = append(out, Diagnostic{
				StartByte: n.StartByte(),
				EndByte:   n.EndByte(),
				Message:   "unexpected " + excerpt(n.Text()),
			})
			descend = false
		case n.IsMissing():
			out = append(out, Diagnostic{
				StartByte: n.StartByte(),
				EndByte:   n.EndByte(),
				Message:   "missing " + describe(n),
			})
		}
		if descend && cur.GotoFirstChild() {
			continue
		}
		for !cur.GotoNextSibling() {
			if !cur.GotoParent() {
				return out
			}
		}
	}
}

func describe(n syntax.Node) string {
	if n.IsNamed() {
		return n.Type()
	}
	return strconv.Quote(n.Type())
}

func excerpt(text string) string {
	const max = 24
	if text == "" {
		return "input"
	}
	if len(text) > max {
		text = text[:max] + "..."
	}
	return strconv.Quote(text)
}

// NodeAt returns the smallest named node at offset in a document.
func (c *Codebase) NodeAt(path string, offset int) (syntax.Node, bool) {
	f := c.GetFile(path)
	if f == nil || f.Tree == nil {
		return syntax.Node{}, false
	}
	n := f.Tree.NamedDescendantForByte(offset)
	return n, !n.IsNull()
}

// Symbol is a definition found by the symbol query.
type Symbol struct {
	Name      string
	Kind      string
	StartByte int
	EndByte   int
	NameStart int
	NameEnd   int
	Children  []*Symbol
}

// Symbols returns the definitions of a document, nested by containment.
func (c *Codebase) Symbols(path string) []*Symbol {
	f := c.GetFile(path)
	if f == nil || f.Tree == nil || c.symbols == nil {
		return nil
	}
	var roots, stack []*Symbol
	for m := range c.symbols.Matches(f.Tree.Root()) {
		s := &Symbol{}
		for _, cp := range m.Captures {
			switch {
			case cp.Name == "name":
				s.Name = cp.Node.Text()
				s.NameStart, s.NameEnd = cp.Node.StartByte(), cp.Node.EndByte()
			case strings.HasPrefix(cp.Name, "definition."):
				s.Kind = strings.TrimPrefix(cp.Name, "definition.")
				s.StartByte, s.EndByte = cp.Node.StartByte(), cp.Node.EndByte()
			}
		}
		if s.Kind == "" {
			continue
		}
		for len(stack) > 0 && stack[len(stack)-1].EndByte <= s.StartByte {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, s)
		} else {
			parent := stack[len(stack)-1]
			parent.Children = append(parent.Children, s)
		}
		stack = append(stack, s)
	}
	return roots
}
