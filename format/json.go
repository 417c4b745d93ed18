package format

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dhamidi/ilparse/syntax"
)

type JSONEncoder struct {
	w    io.Writer
	tree *syntax.Tree
}

func NewJSONEncoder(w io.Writer) *JSONEncoder {
	return &JSONEncoder{w: w}
}

func (e *JSONEncoder) Encode(tree *syntax.Tree) error {
	e.tree = tree
	text, err := e.MarshalText()
	if err != nil {
		return err
	}
	_, err = e.w.Write(append(text, '\n'))
	return err
}

func (e *JSONEncoder) MarshalText() ([]byte, error) {
	if e.tree == nil {
		return nil, fmt.Errorf("json: no tree")
	}
	return json.MarshalIndent(buildTree(e.tree), "", "  ")
}

type treeData struct {
	Language string    `json:"language" yaml:"language"`
	Version  string    `json:"version" yaml:"version"`
	HasError bool      `json:"hasError,omitempty" yaml:"hasError,omitempty"`
	Root     *nodeData `json:"root" yaml:"root"`
}

type nodeData struct {
	Type     string      `json:"type" yaml:"type"`
	Named    bool        `json:"named,omitempty" yaml:"named,omitempty"`
	Field    string      `json:"field,omitempty" yaml:"field,omitempty"`
	Span     spanData    `json:"span" yaml:"span"`
	Text     string      `json:"text,omitempty" yaml:"text,omitempty"`
	Error    bool        `json:"error,omitempty" yaml:"error,omitempty"`
	Missing  bool        `json:"missing,omitempty" yaml:"missing,omitempty"`
	Extra    bool        `json:"extra,omitempty" yaml:"extra,omitempty"`
	Children []*nodeData `json:"children,omitempty" yaml:"children,omitempty"`
}

type spanData struct {
	StartByte int   `json:"startByte" yaml:"startByte"`
	EndByte   int   `json:"endByte" yaml:"endByte"`
	Start     Point `json:"start" yaml:"start"`
	End       Point `json:"end" yaml:"end"`
}

func buildTree(t *syntax.Tree) *treeData {
	root := t.Root()
	return &treeData{
		Language: t.Language().Name(),
		Version:  t.Version().String(),
		HasError: root.HasError(),
		Root:     buildNode(root, "", newLineIndex(t.Source())),
	}
}

func buildNode(n syntax.Node, field string, lines lineIndex) *nodeData {
	data := &nodeData{
		Type:    n.Type(),
		Named:   n.IsNamed(),
		Field:   field,
		Error:   n.IsError(),
		Missing: n.IsMissing(),
		Extra:   n.IsExtra(),
		Span: spanData{
			StartByte: n.StartByte(),
			EndByte:   n.EndByte(),
			Start:     lines.point(n.StartByte()),
			End:       lines.point(n.EndByte()),
		},
	}
	if n.ChildCount() == 0 {
		data.Text = n.Text()
		return data
	}
	for c, field := range n.ChildrenWithFields() {
		data.Children = append(data.Children, buildNode(c, field, lines))
	}
	return data
}
