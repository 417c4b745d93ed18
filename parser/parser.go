package parser

import (
	"context"
	"fmt"

	"github.com/dhamidi/ilparse/fault"
	"github.com/dhamidi/ilparse/lexer"
	"github.com/dhamidi/ilparse/syntax"
	"github.com/dhamidi/ilparse/table"
	"github.com/tliron/commonlog"
)

const (
	defaultMaxVersions = 6
	maxAttempts        = 8
	maxReductions      = 4096
)

type Option func(*Parser)

// WithOperationLimit bounds the number of parse actions one call may take.
// Zero means no limit.
func WithOperationLimit(n int) Option {
	return func(p *Parser) {
		p.opLimit = n
	}
}

// WithMaxVersions caps the number of GLR branches alive at once.
func WithMaxVersions(n int) Option {
	return func(p *Parser) {
		if n > 0 {
			p.maxVersions = n
		}
	}
}

func WithLogger(log commonlog.Logger) Option {
	return func(p *Parser) {
		p.log = log
	}
}

// Parser turns source text into syntax trees for one language. A Parser
// holds no per-parse state and may be reused, but not by two goroutines at
// the same time.
type Parser struct {
	lang        *table.Language
	opLimit     int
	maxVersions int
	log         commonlog.Logger
}

func New(lang *table.Language, opts ...Option) *Parser {
	p := &Parser{
		lang:        lang,
		maxVersions: defaultMaxVersions,
		log:         commonlog.GetLogger("ilparse.parser"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Parser) Language() *table.Language { return p.lang }

// Parse builds a tree for source. When prev is an edited tree of the
// previous text, clean subtrees of prev are reused. Malformed text never
// fails; the returned error is a *fault.Error of kind Timeout when the
// context ends or the operation limit is exceeded.
func (p *Parser) Parse(ctx context.Context, source []byte, prev *syntax.Tree) (*syntax.Tree, error) {
	r := &run{
		Parser: p,
		ctx:    ctx,
		source: source,
		lex:    lexer.New(p.lang, source, p.lang.NewScanner()),
	}
	if prev != nil {
		r.reuse = newReuseCursor(prev.RootSubtree())
	}
	root, err := r.parse()
	if err != nil {
		return nil, err
	}
	if r.reused > 0 || r.recoveries > 0 {
		p.log.Debugf("parsed %d bytes: %d subtrees reused, %d recoveries", len(source), r.reused, r.recoveries)
	}
	return syntax.NewTree(root, p.lang, source), nil
}

// Reparse applies edits to old and parses newText reusing what the edits
// left intact. Edits are applied in order, each in the coordinates of the
// text produced by the ones before it. old is never modified.
func (p *Parser) Reparse(ctx context.Context, old *syntax.Tree, oldText, newText []byte, edits ...syntax.Edit) (*syntax.Tree, error) {
	if old.Length() != len(oldText) {
		return nil, fault.New(fault.InvalidEdit, "reparse", "tree covers %d bytes, old text has %d", old.Length(), len(oldText))
	}
	edited := old
	for _, e := range edits {
		var err error
		edited, err = syntax.ApplyEdit(edited, e)
		if err != nil {
			return nil, err
		}
	}
	if edited.Length() != len(newText) {
		return nil, fault.New(fault.InvalidEdit, "reparse", "edits produce %d bytes, new text has %d", edited.Length(), len(newText))
	}
	return p.Parse(ctx, newText, edited)
}

// lookahead is the next input item of a version: a freshly lexed leaf, a
// reused subtree, or the end of input.
type lookahead struct {
	subtree *syntax.Subtree
	symbol  table.Symbol
	pos     int
	// leafEnd and leafLookahead describe the first leaf and bound the input
	// a reduction decided on this lookahead depends on.
	leafEnd       int
	leafLookahead int
	mode          table.LexModeID
	scanEnd       []byte
	reused        bool
	lexError      bool
}

func (la *lookahead) end() int {
	if la.subtree == nil {
		return la.pos
	}
	return la.pos + la.subtree.TotalSize()
}

type run struct {
	*Parser
	ctx        context.Context
	source     []byte
	lex        *lexer.Lexer
	reuse      *reuseCursor
	versions   []*version
	ops        int
	reused     int
	recoveries int
}

func (r *run) parse() (*syntax.Subtree, error) {
	r.versions = []*version{{top: &stackEntry{}}}
	var accepted []*version
	for {
		if err := r.ctx.Err(); err != nil {
			return nil, fault.Wrap(fault.Timeout, "parse", err)
		}
		v := r.nextVersion()
		if v == nil {
			break
		}
		if err := r.advance(v); err != nil {
			return nil, err
		}
		r.condense()
		kept := r.versions[:0]
		for _, v := range r.versions {
			switch {
			case v.accepted != nil:
				accepted = append(accepted, v)
			case !v.halted:
				kept = append(kept, v)
			}
		}
		r.versions = kept
	}
	if len(accepted) == 0 {
		return nil, fmt.Errorf("parse %s: no version accepted the input", r.lang.Name())
	}
	best := accepted[0]
	for _, v := range accepted[1:] {
		if v.better(best) {
			best = v
		}
	}
	return best.accepted, nil
}

func (r *run) nextVersion() *version {
	var best *version
	for _, v := range r.versions {
		if v.halted || v.accepted != nil {
			continue
		}
		if best == nil || v.pos() < best.pos() {
			best = v
		}
	}
	return best
}

func (r *run) active() int {
	n := 0
	for _, v := range r.versions {
		if !v.halted && v.accepted == nil {
			n++
		}
	}
	return n
}

// condense merges versions that reached the same state at the same place
// and prunes the list to the version cap.
func (r *run) condense() {
	for i := 0; i < len(r.versions); i++ {
		a := r.versions[i]
		if a.halted || a.accepted != nil {
			continue
		}
		for j := i + 1; j < len(r.versions); j++ {
			b := r.versions[j]
			if b.halted || b.accepted != nil || !a.sameFuture(b) {
				continue
			}
			if b.better(a) {
				a.halted = true
				break
			}
			b.halted = true
		}
	}
	for r.active() > r.maxVersions {
		var worst *version
		for _, v := range r.versions {
			if v.halted || v.accepted != nil {
				continue
			}
			if worst == nil || worst.better(v) {
				worst = v
			}
		}
		worst.halted = true
	}
}

func (r *run) tick() error {
	r.ops++
	if r.opLimit > 0 && r.ops > r.opLimit {
		return fault.New(fault.Timeout, "parse", "operation limit %d exceeded", r.opLimit)
	}
	return nil
}

// advance runs one version until it shifts, accepts or halts.
func (r *run) advance(v *version) error {
	for {
		if err := r.tick(); err != nil {
			return err
		}
		la := r.lookahead(v)
		actions := r.lang.Actions(v.state(), la.symbol)

		if len(actions) == 0 && !la.reused && la.subtree != nil && !la.lexError && la.mode != r.lang.LexMode(v.state()) {
			v.la = nil
			la = r.lookahead(v)
			actions = r.lang.Actions(v.state(), la.symbol)
		}
		if len(actions) == 0 && la.subtree != nil && r.lang.IsExtra(la.symbol) && la.subtree.IsLeaf() {
			r.shift(v, v.state(), la, true)
			return nil
		}
		if len(actions) == 0 {
			if la.reused && !la.subtree.IsLeaf() {
				r.breakdownLookahead(v)
				continue
			}
			if r.active() > 1 || r.hasAccepted() {
				v.halted = true
				return nil
			}
			done, err := r.recover(v, la)
			if err != nil || done {
				return err
			}
			continue
		}
		if la.reused && !la.subtree.IsLeaf() && (len(actions) > 1 || r.active() > 1) {
			r.breakdownLookahead(v)
			continue
		}
		if len(actions) > 1 {
			if la.reused {
				la = r.detach(v, la)
			}
			for i := len(actions) - 1; i >= 1; i-- {
				clone := v.fork(i)
				r.versions = append(r.versions, clone)
				r.apply(clone, actions[i], la)
			}
			v.path = append(append([]uint8(nil), v.path...), 0)
		}
		if r.apply(v, actions[0], la) {
			return nil
		}
		v.steps++
		if v.steps > maxReductions {
			r.halt(v)
			return nil
		}
	}
}

func (r *run) hasAccepted() bool {
	for _, v := range r.versions {
		if v.accepted != nil {
			return true
		}
	}
	return false
}

// apply performs one action and reports whether the version moved past its
// lookahead (shift or accept).
func (r *run) apply(v *version, a table.Action, la *lookahead) bool {
	switch a.Type {
	case table.Shift:
		if la.reused && !la.subtree.IsLeaf() {
			if la.subtree.ParseState() != v.state() {
				r.breakdownLookahead(v)
				return false
			}
			next, ok := r.lang.Goto(v.state(), la.subtree.GrammarSymbol())
			if !ok {
				r.breakdownLookahead(v)
				return false
			}
			r.shift(v, next, la, false)
			return true
		}
		r.shift(v, a.State, la, false)
		return true
	case table.Reduce:
		r.reduce(v, a.Production, la)
		return false
	case table.Accept:
		v.accepted = r.finish(v)
		return true
	}
	v.halted = true
	return true
}

func (r *run) shift(v *version, state table.StateID, la *lookahead, extra bool) {
	v.push(state, la.subtree.WithExtra(extra))
	v.scan = la.scanEnd
	v.la = nil
	v.attempts = 0
	v.steps = 0
	if la.reused {
		r.reused++
		r.reuse.next()
	}
}

func (r *run) errorRoot(children []*syntax.Subtree) *syntax.Subtree {
	return syntax.NewNode(syntax.NodeSpec{
		Symbol:   table.SymbolError,
		Grammar:  table.SymbolError,
		Children: children,
		Named:    true,
		Visible:  true,
	})
}

// lookahead returns the version's next input item, lexing or reusing as
// needed. Reuse only happens while a single version is alive.
func (r *run) lookahead(v *version) *lookahead {
	if v.la != nil {
		return v.la
	}
	pos := v.pos()
	state := v.state()
	mode := r.lang.LexMode(state)
	if r.reuse != nil && r.active() == 1 {
		for s := r.reuse.candidate(pos); s != nil; s = r.reuse.candidate(pos) {
			if s.LexMode() == mode && s.SameScanState(v.scan) {
				if s.Symbol() != s.GrammarSymbol() {
					info := r.lang.SymbolInfo(s.GrammarSymbol())
					s = s.WithAlias(s.GrammarSymbol(), info.Named, info.Visible)
				}
				leaf, leafEnd := s.FirstLeaf()
				v.la = &lookahead{
					subtree:       s,
					symbol:        s.FirstLeafSymbol(),
					pos:           pos,
					leafEnd:       pos + leafEnd,
					leafLookahead: leaf.Lookahead(),
					mode:          mode,
					scanEnd:       s.ScanEnd(),
					reused:        true,
				}
				return v.la
			}
			r.reuse.breakdown()
		}
	}
	tok, next := r.lex.Next(pos, mode, v.scan)
	v.la = r.leafFor(tok, state, mode, v.scan, next)
	return v.la
}

func (r *run) leafFor(tok lexer.Token, state table.StateID, mode table.LexModeID, scanStart, scanEnd []byte) *lookahead {
	la := &lookahead{
		symbol:        tok.Symbol,
		pos:           tok.PaddedStart(),
		leafEnd:       tok.End,
		leafLookahead: tok.Lookahead,
		mode:          mode,
		scanEnd:       scanEnd,
		lexError:      tok.IsError,
	}
	if tok.Symbol == table.SymbolEnd {
		return la
	}
	leafMode := mode
	if tok.Fallback || tok.IsError {
		leafMode = syntax.NoLexMode
	}
	info := r.lang.SymbolInfo(tok.Symbol)
	la.subtree = syntax.NewLeaf(syntax.Leaf{
		Symbol:     tok.Symbol,
		Grammar:    tok.Symbol,
		Padding:    tok.Padding,
		Size:       tok.Size(),
		Lookahead:  tok.Lookahead,
		Named:      info.Named,
		Visible:    info.Visible,
		Error:      tok.IsError,
		ParseState: state,
		LexMode:    leafMode,
		ScanStart:  scanStart,
		ScanEnd:    scanEnd,
	})
	return la
}

// detach turns a reused lookahead into a plain one, consuming it from the
// reuse cursor so that several versions can shift it.
func (r *run) detach(v *version, la *lookahead) *lookahead {
	c := *la
	c.reused = false
	r.reuse.next()
	r.reused++
	v.la = &c
	return &c
}

// halt stops a version. The last live version is never dropped: its stack
// becomes the tree, wrapped in an ERROR node.
func (r *run) halt(v *version) {
	if r.active() > 1 || r.hasAccepted() {
		v.halted = true
		return
	}
	v.accepted = r.errorRoot(v.entries())
}

// breakdownLookahead replaces a reused subtree lookahead by its first child.
func (r *run) breakdownLookahead(v *version) {
	r.reuse.breakdown()
	v.la = nil
}

// reduce pops the children of a production and pushes the new node.
func (r *run) reduce(v *version, prodIndex uint16, la *lookahead) {
	prod := r.lang.Production(prodIndex)
	count := len(prod.Steps)

	var trailing []*syntax.Subtree
	top := v.top
	for top.prev != nil && top.subtree.IsExtra() {
		trailing = append(trailing, top.subtree)
		top = top.prev
	}
	var popped []*syntax.Subtree
	for n := 0; n < count && top.prev != nil; {
		popped = append(popped, top.subtree)
		if !top.subtree.IsExtra() {
			n++
		}
		top = top.prev
	}
	reverse(popped)
	reverse(trailing)

	var node *syntax.Subtree
	if prod.Repeat && len(popped) >= 2 {
		node = r.reduceRepeat(prodIndex, prod, popped)
	} else {
		children, fields := r.assemble(prod, popped)
		info := r.lang.SymbolInfo(prod.Symbol)
		nodeEnd := top.pos
		for _, c := range children {
			nodeEnd += c.TotalSize()
		}
		node = syntax.NewNode(syntax.NodeSpec{
			Symbol:     prod.Symbol,
			Grammar:    prod.Symbol,
			Production: prodIndex,
			Children:   children,
			Fields:     fields,
			Named:      info.Named,
			Visible:    info.Visible,
			Fragile:    r.active() > 1,
			ParseState: top.state,
			Lookahead:  la.leafEnd + la.leafLookahead - nodeEnd,
			Dynamic:    int32(prod.DynamicPrecedence),
		})
	}
	next, ok := r.lang.Goto(top.state, prod.Symbol)
	if !ok {
		r.halt(v)
		return
	}
	v.top = top.push(next, node)
	for _, t := range trailing {
		v.push(next, t)
	}
	v.dynamic += int32(prod.DynamicPrecedence)
}

// assemble applies aliases and fields and inlines hidden children. Hidden
// repeat runs are kept whole; nodes read through them.
func (r *run) assemble(prod table.Production, popped []*syntax.Subtree) ([]*syntax.Subtree, []table.FieldID) {
	children := make([]*syntax.Subtree, 0, len(popped))
	fields := make([]table.FieldID, 0, len(popped))
	hasField := false
	step := 0
	for _, c := range popped {
		if c.IsExtra() {
			children = append(children, c)
			fields = append(fields, 0)
			continue
		}
		var st table.Step
		if step < len(prod.Steps) {
			st = prod.Steps[step]
		}
		step++
		if st.Alias != 0 {
			info := r.lang.SymbolInfo(st.Alias)
			c = c.WithAlias(st.Alias, info.Named, info.Visible)
		}
		if !c.IsVisible() && !c.IsLeaf() && !r.lang.IsRepeat(c.GrammarSymbol()) {
			for i, gc := range c.Children() {
				f := c.FieldAt(i)
				if f == 0 {
					f = st.Field
				}
				hasField = hasField || f != 0
				children = append(children, gc)
				fields = append(fields, f)
			}
			continue
		}
		hasField = hasField || st.Field != 0
		children = append(children, c)
		fields = append(fields, st.Field)
	}
	if !hasField {
		fields = nil
	}
	return children, fields
}

// finish builds the root from the accepted stack: the start node with any
// surrounding extras folded into it.
func (r *run) finish(v *version) *syntax.Subtree {
	entries := v.entries()
	var start *syntax.Subtree
	var leading, trailing []*syntax.Subtree
	for _, e := range entries {
		switch {
		case start == nil && e.IsExtra():
			leading = append(leading, e)
		case start == nil:
			start = e
		default:
			trailing = append(trailing, e)
		}
	}
	if start == nil {
		return r.errorRoot(entries)
	}
	if len(leading) == 0 && len(trailing) == 0 {
		return start
	}
	children := append(append(append([]*syntax.Subtree(nil), leading...), start.Children()...), trailing...)
	var fields []table.FieldID
	if start.Fields() != nil {
		fields = make([]table.FieldID, len(leading), len(children))
		fields = append(fields, start.Fields()...)
		fields = append(fields, make([]table.FieldID, len(trailing))...)
	}
	return syntax.NewNode(syntax.NodeSpec{
		Symbol:     start.Symbol(),
		Grammar:    start.GrammarSymbol(),
		Production: start.Production(),
		Children:   children,
		Fields:     fields,
		Named:      start.IsNamed(),
		Visible:    start.IsVisible(),
		Lookahead:  start.Lookahead(),
		Dynamic:    start.DynamicPrecedence() - childDynamic(start),
	})
}

func childDynamic(s *syntax.Subtree) int32 {
	var d int32
	for _, c := range s.Children() {
		d += c.DynamicPrecedence()
	}
	return d
}

func reverse(s []*syntax.Subtree) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
