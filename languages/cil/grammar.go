// Package cil defines the grammar for CIL assembly listings (ILAsm) and
// exposes its compiled parse table.
package cil

import (
	. "github.com/dhamidi/ilparse/grammar"
)

var hexDigit = PatternFlags(`[a-f\d_]`, "i")

func keyword(name string) Rule { return Alias(Str(name), "part_keyword") }
func modifier(r Rule) Rule     { return Alias(r, "part_modifier") }
func body(r Rule) Rule         { return Alias(r, "part_body") }

// keywords groups a multi-word directive such as ".hash algorithm" into a
// single part_keyword node.
func keywords(words ...string) Rule { return Alias(Seq(literals(words)...), "part_keyword") }

func strs(names ...string) Rule { return Choice(literals(names)...) }

func literals(names []string) []Rule {
	rules := make([]Rule, len(names))
	for i, n := range names {
		rules[i] = Str(n)
	}
	return rules
}

// Definition returns the ILAsm grammar.
func Definition() *Grammar {
	g := New("cil")
	g.Extra(Pattern(`\s+`), Sym("comment"))

	g.Define("file", Optional(Sym("def_module")))
	g.Define("blob", Seq(Str("("), Repeat(Sym("byte")), Str(")")))
	g.Define("attribute", Seq(
		keyword(".custom"),
		Field("ctor", Sym("ref_method")),
		Str("="),
		Field("data", Sym("blob")),
	))
	g.Define("instruction", Seq(
		Repeat(Seq(Field("label", Sym("id_label")), Str(":"))),
		Field("instruction", Choice(
			Seq(Str("call"), Sym("ref_method")),
			Seq(Str("ldc.i4.s"), Sym("integer")),
			Seq(Str("br"), Sym("id_label")),
			Seq(Str("ldstr"), Sym("string")),
			strs("ldarg.0", "stloc.0", "stloc.1", "ldloc.0", "ldloc.1",
				"ldc.i4.1", "add", "conv.u2", "ret", "nop", "pop"),
		)),
	))

	g.Define("args", Seq(Str("("), Optional(Sep1(Str(","), Sym("args_item"))), Str(")")))
	g.Define("args_item", Seq(Field("type", Sym("type")), Optional(Field("name", Sym("id_parameter")))))

	g.Define("id_namespace", Choice(Sym("symbol"), Seq(Sym("id_namespace"), Str("."), Sym("symbol"))))
	g.Define("id_class", Sym("id"))
	g.Define("id_member", Sym("id"))
	g.Define("id_method", Choice(Sym("id"), Alias(strs(".ctor", ".cctor"), "part_keyword")))
	g.Define("id_parameter", Sym("symbol"))
	g.Define("id_label", Sym("symbol"))
	g.Define("id", Seq(Optional(Seq(Sym("id_namespace"), Str("."))), Sym("symbol")))

	g.Define("type", Choice(
		Sym("type_intrinsic"),
		Sym("type_custom"),
		Seq(Sym("type"), Sym("type_indexer")),
	))
	g.Define("type_intrinsic", Pattern(`void|refany|bool|bytearray|char|float|float32|float64|int|int16|int32|int64|object|int8|wchar|string|typedref`))
	g.Define("type_custom", Seq(modifier(strs("class", "valuetype")), Sym("ref_class")))
	g.Define("type_indexer", Seq(
		Str("["),
		Optional(Sep1(Str(","), Optional(Sym("type_indexer_range")))),
		Str("]"),
	))
	g.Define("type_indexer_range", Choice(
		Str("..."),
		Seq(Sym("integer"), Str("..."), Optional(Sym("integer"))),
	))

	g.Define("def_module", body(Repeat1(Choice(
		Sym("attribute"),
		Sym("option_module"),
		Sym("def_assembly"),
		Sym("def_class"),
		Sym("def_method"),
		Str(";"),
	))))
	g.Define("def_assembly", Seq(
		keyword(".assembly"),
		modifier(Optional(Str("extern"))),
		Field("name", Sym("id_namespace")),
		Str("{"),
		body(Repeat(Choice(Sym("attribute"), Sym("option_assembly"), Str(";")))),
		Str("}"),
	))
	g.Define("def_class", Seq(
		keyword(".class"),
		modifier(Repeat(strs("abstract", "ansi", "assembly", "auto", "beforefieldinit",
			"interface", "nested", "private", "public", "sealed", "sequential"))),
		Field("name", Sym("id_class")),
		Optional(Seq(modifier(Str("extends")), Field("base", Sym("ref_class")))),
		Str("{"),
		body(Repeat(Choice(
			Sym("attribute"),
			Sym("option_type"),
			Sym("def_class"),
			Sym("def_method"),
			Str(";"),
		))),
		Str("}"),
	))
	g.Define("def_method", Seq(
		keyword(".method"),
		modifier(Repeat(strs("hidebysig", "instance", "private", "public",
			"rtspecialname", "specialname", "static"))),
		Field("return", Sym("type")),
		Field("name", Sym("id_method")),
		Sym("args"),
		modifier(Repeat(strs("cil", "managed"))),
		Str("{"),
		body(Repeat(Choice(
			Sym("attribute"),
			Sym("option_method"),
			Sym("instruction"),
			Str(";"),
		))),
		Str("}"),
	))

	g.Define("ref_assembly", Seq(Str("["), Field("name", Sym("id_namespace")), Str("]")))
	g.Define("ref_class", Seq(Optional(Field("assembly", Sym("ref_assembly"))), Field("name", Sym("id_class"))))
	g.Define("ref_member", Seq(
		Field("return", Sym("type")),
		Field("parent", Sym("ref_class")),
		Str("::"),
		Field("name", Sym("id_member")),
	))
	g.Define("ref_method", Seq(
		modifier(Optional(Str("instance"))),
		Field("return", Sym("type")),
		Optional(Seq(Field("parent", Sym("ref_class")), Str("::"))),
		Field("name", Sym("id_method")),
		Sym("args"),
	))

	g.Define("option_module", Choice(
		Seq(keywords(".file", "alignment"), Sym("integer")),
		Seq(keyword(".imagebase"), Sym("integer")),
		Seq(keyword(".stackreserve"), Sym("integer")),
		Seq(keyword(".subsystem"), Sym("integer")),
		Seq(keyword(".corflags"), Sym("integer")),
		Seq(keyword(".module"), modifier(Optional(Str("extern"))), Sym("id_namespace")),
	))
	g.Define("option_assembly", Choice(
		Seq(keywords(".hash", "algorithm"), Sym("integer")),
		Seq(keyword(".publickeytoken"), Str("="), Sym("blob")),
		Seq(keyword(".ver"), Sym("version")),
	))
	g.Define("option_type", Choice(
		Seq(keyword(".pack"), Sym("integer")),
		Seq(keyword(".size"), Sym("integer")),
	))
	g.Define("option_method", Choice(
		Seq(keywords(".locals", "init"), Sym("args")),
		Seq(keyword(".maxstack"), Sym("integer")),
		keyword(".entrypoint"),
	))

	g.Define("string_content", ImmediateToken(Pattern(`[^"\\\n]+`)))
	g.Define("string_escape", ImmediateToken(Pattern(`\\.`)))
	g.Define("string", Seq(
		Str(`"`),
		Repeat(Choice(Sym("string_content"), Sym("string_escape"))),
		ImmediateToken(Str(`"`)),
	))

	g.Define("byte", Token(Seq(hexDigit, hexDigit)))
	g.Define("integer", Token(Choice(Pattern(`\d+`), Seq(Str("0x"), Repeat1(hexDigit)))))
	g.Define("version", Token(Seq(
		Pattern(`\d+`), Str(":"), Pattern(`\d+`), Str(":"),
		Pattern(`\d+`), Str(":"), Pattern(`\d+`),
	)))
	g.Define("symbol", Token(Choice(
		Seq(Str("'"), Repeat(Pattern(`[^']|\\.`)), Str("'")),
		PatternFlags(`[a-z_][a-z0-9_]*`, "i"),
	)))
	g.Define("comment", Token(Choice(
		Seq(Str("//"), Pattern(`.*`)),
		Seq(Str("/*"), Repeat(Choice(Pattern(`[^*]*`), Pattern(`\*+[^/]`))), Str("*/")),
	)))
	return g
}
