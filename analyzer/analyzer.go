// Package analyzer implements the semantic analysis pass for the Cappuchin programming language.
//
// The analyzer walks a parsed program once, mutating a symbol table as it goes,
// and rejects programs the later stages could not compile meaningfully:
//
//   - references to identifiers that resolve to nothing
//   - reassignment of the function currently being defined
//   - redefinition of a name at the same scope level
//   - break and continue statements outside a loop body
//
// It produces no output beyond success or failure; every error message is
// prefixed with the source location of the offending node.
//
// The analyzer and the compiler make the same definitions in the same order,
// but they must not share one table within a single run: the analysis mutates
// scope state the compiler wants to build up itself. AnalyzeProgram therefore
// always analyzes in a fresh table; given a retained table it encloses it, so
// resolution sees the bindings already in it while the analyzer's own
// definitions are discarded afterwards.
package analyzer

import (
	"fmt"

	"github.com/hrzlgnm/Cappuchin/ast"
	"github.com/hrzlgnm/Cappuchin/compiler"
	"github.com/hrzlgnm/Cappuchin/object"
)

// Analyzer validates name resolution and loop context over one scope level.
// Nested scopes (function literals, while bodies) analyze with a nested
// Analyzer over an enclosed symbol table.
type Analyzer struct {
	symbols *compiler.SymbolTable
}

// New creates an Analyzer operating on the given symbol table.
func New(symbols *compiler.SymbolTable) *Analyzer {
	return &Analyzer{symbols: symbols}
}

// AnalyzeProgram runs the semantic pass over a whole program.
//
// With existing == nil a fresh global table is created and the builtins are
// registered in it, matching what compiler.New does.
// Otherwise a fresh table enclosing existing is used, so the definitions made
// during analysis do not leak into the retained table.
func AnalyzeProgram(program *ast.Program, existing *compiler.SymbolTable) error {
	var symbols *compiler.SymbolTable
	if existing != nil {
		symbols = compiler.NewEnclosedSymbolTable(existing)
	} else {
		symbols = compiler.NewSymbolTable()
		for i, b := range object.Builtins {
			symbols.DefineBuiltin(i, b.Name)
		}
	}
	return New(symbols).Analyze(program)
}

// Analyze walks the node and returns the first semantic error found, or nil.
func (a *Analyzer) Analyze(node ast.Node) error {
	switch node := node.(type) {
	case *ast.Program:
		for _, s := range node.Statements {
			if err := a.Analyze(s); err != nil {
				return err
			}
		}

	case *ast.ExpressionStatement:
		return a.Analyze(node.Expression)

	case *ast.BlockStatement:
		for _, s := range node.Statements {
			if err := a.Analyze(s); err != nil {
				return err
			}
		}

	case *ast.LetStatement:
		if symbol, ok := a.symbols.Resolve(node.Name.Value); ok {
			if symbol.Scope == compiler.LocalScope ||
				(symbol.Scope == compiler.GlobalScope && a.symbols.IsGlobal()) {
				return fmt.Errorf("%s: %s is already defined", node.Loc(), node.Name.Value)
			}
		}
		a.symbols.Define(node.Name.Value)
		return a.Analyze(node.Value)

	case *ast.ReturnStatement:
		return a.Analyze(node.ReturnValue)

	case *ast.BreakStatement:
		if !a.symbols.InsideLoop() {
			return fmt.Errorf("%s: syntax error: break outside loop", node.Loc())
		}

	case *ast.ContinueStatement:
		if !a.symbols.InsideLoop() {
			return fmt.Errorf("%s: syntax error: continue outside loop", node.Loc())
		}

	case *ast.Identifier:
		if _, ok := a.symbols.Resolve(node.Value); !ok {
			return fmt.Errorf("%s: identifier not found: %s", node.Loc(), node.Value)
		}

	case *ast.AssignExpression:
		symbol, ok := a.symbols.Resolve(node.Name.Value)
		if !ok {
			return fmt.Errorf("%s: identifier not found: %s", node.Loc(), node.Name.Value)
		}
		if symbol.Scope == compiler.FunctionScope ||
			(symbol.Scope == compiler.OuterScope && symbol.Ptr.Scope == compiler.FunctionScope) {
			return fmt.Errorf("%s: cannot reassign the current function being defined: %s",
				node.Loc(), node.Name.Value)
		}
		return a.Analyze(node.Value)

	case *ast.PrefixExpression:
		return a.Analyze(node.Right)

	case *ast.InfixExpression:
		if err := a.Analyze(node.Left); err != nil {
			return err
		}
		return a.Analyze(node.Right)

	case *ast.IfExpression:
		if err := a.Analyze(node.Condition); err != nil {
			return err
		}
		if err := a.Analyze(node.Consequence); err != nil {
			return err
		}
		if node.Alternative != nil {
			return a.Analyze(node.Alternative)
		}

	case *ast.WhileStatement:
		if err := a.Analyze(node.Condition); err != nil {
			return err
		}
		// The body gets a loop scope; bindings from the enclosing function
		// stay reachable through outer symbols.
		inner := New(compiler.NewEnclosedLoopSymbolTable(a.symbols))
		return inner.Analyze(node.Body)

	case *ast.FunctionLiteral:
		// inside_loop does not propagate across function boundaries: a break
		// inside a function literal nested in a while is a syntax error.
		symbols := compiler.NewEnclosedSymbolTable(a.symbols)
		if node.Name != "" {
			symbols.DefineFunctionName(node.Name)
		}
		for _, param := range node.Parameters {
			symbols.Define(param.Value)
		}
		return New(symbols).Analyze(node.Body)

	case *ast.CallExpression:
		if err := a.Analyze(node.Function); err != nil {
			return err
		}
		for _, arg := range node.Arguments {
			if err := a.Analyze(arg); err != nil {
				return err
			}
		}

	case *ast.IndexExpression:
		if err := a.Analyze(node.Left); err != nil {
			return err
		}
		return a.Analyze(node.Index)

	case *ast.ArrayLiteral:
		for _, el := range node.Elements {
			if err := a.Analyze(el); err != nil {
				return err
			}
		}

	case *ast.HashLiteral:
		for _, pair := range node.Pairs {
			if err := a.Analyze(pair.Key); err != nil {
				return err
			}
			if err := a.Analyze(pair.Value); err != nil {
				return err
			}
		}
	}

	return nil
}
