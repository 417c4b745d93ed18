package cil

// SymbolsQuery captures assembly, class and method definitions with their
// names, for outlines and document symbols.
const SymbolsQuery = `
(def_assembly name: (id_namespace) @name) @definition.assembly
(def_class name: (id_class) @name) @definition.class
(def_method name: (id_method) @name) @definition.method
`
