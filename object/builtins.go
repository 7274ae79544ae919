package object

import "fmt"

// Builtins is the collection of predefined built-in functions available for use
// within the language. The slice order fixes the builtin indices used by the
// OpGetBuiltin instruction, so the compiler and the virtual machine must
// register builtins from the same table.
var Builtins = []struct {
	// The name of the built-in function.
	Name string

	// The definition (and implementation) of the built-in function.
	Builtin *Builtin
}{
	{
		"len",
		&Builtin{Fn: func(args ...Object) Object {
			if len(args) != 1 {
				return newError("wrong number of arguments to len(): expected=1, got=%d", len(args))
			}
			switch arg := args[0].(type) {
			case *String:
				return &Integer{Value: int64(len(arg.Value))}

			case *Array:
				return &Integer{Value: int64(len(arg.Elements))}

			default:
				return newError("argument of type %s to len() is not supported", args[0].Type())
			}
		},
		},
	},
	{
		"first",
		&Builtin{Fn: func(args ...Object) Object {
			if len(args) != 1 {
				return newError("wrong number of arguments to first(): expected=1, got=%d", len(args))
			}
			switch arg := args[0].(type) {
			case *String:
				if len(arg.Value) > 0 {
					return &String{Value: arg.Value[:1]}
				}
				return nil
			case *Array:
				if len(arg.Elements) > 0 {
					return arg.Elements[0]
				}
				return nil
			default:
				return newError("argument of type %s to first() is not supported", args[0].Type())
			}
		},
		},
	},
	{
		"last",
		&Builtin{Fn: func(args ...Object) Object {
			if len(args) != 1 {
				return newError("wrong number of arguments to last(): expected=1, got=%d", len(args))
			}
			switch arg := args[0].(type) {
			case *String:
				if length := len(arg.Value); length > 0 {
					return &String{Value: arg.Value[length-1:]}
				}
				return nil
			case *Array:
				if length := len(arg.Elements); length > 0 {
					return arg.Elements[length-1]
				}
				return nil

			default:
				return newError("argument of type %s to last() is not supported", args[0].Type())
			}
		},
		},
	},
	{
		"rest",
		&Builtin{Fn: func(args ...Object) Object {
			if len(args) != 1 {
				return newError("wrong number of arguments to rest(): expected=1, got=%d", len(args))
			}
			switch arg := args[0].(type) {
			case *String:
				if len(arg.Value) > 0 {
					return &String{Value: arg.Value[1:]}
				}
				return nil
			case *Array:
				length := len(arg.Elements)
				if length > 0 {
					newElements := make([]Object, length-1)
					copy(newElements, arg.Elements[1:length])
					return &Array{Elements: newElements}
				}
				return nil
			default:
				return newError("argument of type %s to rest() is not supported", args[0].Type())
			}
		},
		},
	},
	{
		"push",
		&Builtin{Fn: func(args ...Object) Object {
			if len(args) != 2 {
				return newError("wrong number of arguments to push(): expected=2, got=%d", len(args))
			}
			switch arg := args[0].(type) {
			case *Array:
				length := len(arg.Elements)
				newElements := make([]Object, length+1)
				copy(newElements, arg.Elements)
				newElements[length] = args[1]

				return &Array{Elements: newElements}

			default:
				return newError("argument of type %s and %s to push() are not supported",
					args[0].Type(), args[1].Type())
			}
		},
		},
	},
	{
		"puts",
		&Builtin{Fn: func(args ...Object) Object {
			for _, arg := range args {
				fmt.Println(arg.Inspect())
			}
			return nil
		},
		},
	},
}

func newError(format string, a ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, a...)}
}

// GetBuiltinByName retrieves a built-in function definition by its name from the predefined [Builtins] collection.
//
// It returns a pointer to the corresponding [Builtin] or nil if the name is not found.
func GetBuiltinByName(name string) *Builtin {
	for _, def := range Builtins {
		if def.Name == name {
			return def.Builtin
		}
	}
	return nil
}
