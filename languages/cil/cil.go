package cil

import (
	"sync"

	"github.com/dhamidi/ilparse/grammar"
	"github.com/dhamidi/ilparse/table"
)

var (
	once    sync.Once
	data    []byte
	lang    *table.Language
	loadErr error
)

func load() {
	t, err := grammar.Compile(Definition())
	if err != nil {
		loadErr = err
		return
	}
	if data, err = table.Marshal(t); err != nil {
		loadErr = err
		return
	}
	lang, loadErr = table.Load(data)
}

// TableBytes returns the encoded parse table for ILAsm. The grammar is
// compiled once per process.
func TableBytes() ([]byte, error) {
	once.Do(load)
	return data, loadErr
}

// Language returns the loaded ILAsm language.
func Language() (*table.Language, error) {
	once.Do(load)
	return lang, loadErr
}
