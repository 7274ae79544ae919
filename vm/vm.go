// Package vm implements the stack-based virtual machine for the Cappuchin programming language.
//
// The virtual machine executes the bytecode produced by the compiler. It owns
// a value stack, a call-frame stack, and a fixed-size globals table, and runs
// a fetch-decode-execute loop until the instruction pointer of the outermost
// frame passes the end of the main instructions.
//
// Every user function executes as a closure in a frame of its own; the frame's
// base pointer marks where its locals live on the value stack. While-loop
// bodies are compiled inline and share the frame of the enclosing function,
// which is what the outer read/write instructions rely on.
package vm

import (
	"fmt"
	"strings"

	"github.com/hrzlgnm/Cappuchin/code"
	"github.com/hrzlgnm/Cappuchin/compiler"
	"github.com/hrzlgnm/Cappuchin/object"
)

// StackSize is the maximum depth of the value stack.
const StackSize = 2048

// GlobalsSize is the size of the globals table. Operands of the global
// instructions are 16 bits wide, which bounds the number of global bindings.
const GlobalsSize = 65536

// MaxFrames is the maximum depth of the call-frame stack.
const MaxFrames = 1024

// True is the singleton runtime value for the boolean true.
var True = &object.Boolean{Value: true}

// False is the singleton runtime value for the boolean false.
var False = &object.Boolean{Value: false}

// Null is the singleton runtime value for null.
var Null = &object.Null{}

// VM executes compiled bytecode. It holds the constants pool shared with the
// compiler, the value stack, the globals table, and the frame stack.
type VM struct {
	constants []object.Object

	// stack holds operands and local bindings. sp always points to the next
	// free slot; the top of the stack is stack[sp-1].
	stack []object.Object
	sp    int

	// globals stores the values of global bindings, indexed by the symbol
	// indices the compiler assigned.
	globals []object.Object

	// frames is the call-frame stack; framesIndex points at the next free slot.
	frames      []*Frame
	framesIndex int

	// lastPopped records the value most recently removed by an OpPop
	// instruction. The command-line runner prints it unless it is null.
	lastPopped object.Object
}

// New initializes a new VM from the bytecode generated by the compiler.
// The main instructions are wrapped in a compiled function and a closure with
// no free variables, and pushed as the outermost frame at base pointer 0.
func New(bytecode *compiler.Bytecode) *VM {
	mainFn := &object.CompiledFunction{Instructions: bytecode.Instructions}
	mainClosure := &object.Closure{Fn: mainFn}
	mainFrame := NewFrame(mainClosure, 0)

	frames := make([]*Frame, MaxFrames)
	frames[0] = mainFrame

	return &VM{
		constants:   bytecode.Constants,
		stack:       make([]object.Object, StackSize),
		sp:          0,
		globals:     make([]object.Object, GlobalsSize),
		frames:      frames,
		framesIndex: 1,
		lastPopped:  Null,
	}
}

// NewWithGlobalsStore creates a VM that shares an existing globals table, so
// global state can carry over from one compilation to the next.
func NewWithGlobalsStore(bytecode *compiler.Bytecode, globals []object.Object) *VM {
	vm := New(bytecode)
	vm.globals = globals
	return vm
}

// currentFrame returns the frame currently executing.
func (vm *VM) currentFrame() *Frame {
	return vm.frames[vm.framesIndex-1]
}

// pushFrame adds a new frame on top of the frame stack.
func (vm *VM) pushFrame(f *Frame) {
	vm.frames[vm.framesIndex] = f
	vm.framesIndex++
}

// popFrame removes and returns the top frame.
func (vm *VM) popFrame() *Frame {
	vm.framesIndex--
	return vm.frames[vm.framesIndex]
}

// LastPopped returns the value most recently removed by an OpPop instruction,
// or null if nothing was popped. Every expression statement compiles into
// "...value..., pop", so after running a program this holds the value of its
// final top-level expression.
func (vm *VM) LastPopped() object.Object {
	return vm.lastPopped
}

// Run executes the fetch-decode-execute cycle until the outermost frame's
// instruction pointer passes the end of the main instructions. A runtime
// error aborts execution and is returned to the caller.
func (vm *VM) Run() error {
	var ip int
	var ins code.Instructions
	var op code.Opcode

	for vm.currentFrame().ip < len(vm.currentFrame().Instructions())-1 {
		vm.currentFrame().ip++

		ip = vm.currentFrame().ip
		ins = vm.currentFrame().Instructions()
		op = code.Opcode(ins[ip])

		switch op {
		case code.OpConstant:
			constIndex := code.ReadUint16(ins[ip+1:])
			vm.currentFrame().ip += 2

			err := vm.push(vm.constants[constIndex])
			if err != nil {
				return err
			}

		case code.OpAdd, code.OpSub, code.OpMul, code.OpDiv, code.OpFloorDiv, code.OpMod:
			err := vm.executeBinaryOperation(op)
			if err != nil {
				return err
			}

		case code.OpBitAnd, code.OpBitOr, code.OpBitXor, code.OpBitLsh, code.OpBitRsh:
			err := vm.executeBitwiseOperation(op)
			if err != nil {
				return err
			}

		case code.OpLogicalAnd, code.OpLogicalOr:
			right := vm.pop()
			left := vm.pop()

			// The determining operand keeps its value: a && b yields a when a
			// is falsy, a || b yields a when a is truthy.
			result := right
			if op == code.OpLogicalAnd && !isTruthy(left) {
				result = left
			}
			if op == code.OpLogicalOr && isTruthy(left) {
				result = left
			}
			err := vm.push(result)
			if err != nil {
				return err
			}

		case code.OpEqual, code.OpNotEqual, code.OpGreaterThan, code.OpGreaterEqual:
			err := vm.executeComparison(op)
			if err != nil {
				return err
			}

		case code.OpMinus:
			err := vm.executeMinusOperator()
			if err != nil {
				return err
			}

		case code.OpBang:
			err := vm.executeBangOperator()
			if err != nil {
				return err
			}

		case code.OpTrue:
			err := vm.push(True)
			if err != nil {
				return err
			}
		case code.OpFalse:
			err := vm.push(False)
			if err != nil {
				return err
			}
		case code.OpNull:
			err := vm.push(Null)
			if err != nil {
				return err
			}

		case code.OpJump:
			pos := int(code.ReadUint16(ins[ip+1:]))
			// The loop increments ip each cycle, so land one byte early.
			vm.currentFrame().ip = pos - 1

		case code.OpJumpNotTruthy:
			pos := int(code.ReadUint16(ins[ip+1:]))
			vm.currentFrame().ip += 2

			condition := vm.pop()
			if !isTruthy(condition) {
				vm.currentFrame().ip = pos - 1
			}

		case code.OpSetGlobal:
			globalIndex := code.ReadUint16(ins[ip+1:])
			vm.currentFrame().ip += 2

			vm.globals[globalIndex] = vm.pop()

		case code.OpGetGlobal:
			globalIndex := code.ReadUint16(ins[ip+1:])
			vm.currentFrame().ip += 2

			err := vm.push(vm.globals[globalIndex])
			if err != nil {
				return err
			}

		case code.OpSetLocal:
			localIndex := int(code.ReadUint8(ins[ip+1:]))
			vm.currentFrame().ip++

			frame := vm.currentFrame()
			vm.stack[frame.basePointer+localIndex] = vm.pop()

		case code.OpGetLocal:
			localIndex := int(code.ReadUint8(ins[ip+1:]))
			vm.currentFrame().ip++

			frame := vm.currentFrame()
			err := vm.push(vm.stack[frame.basePointer+localIndex])
			if err != nil {
				return err
			}

		case code.OpGetBuiltin:
			builtinIndex := int(code.ReadUint8(ins[ip+1:]))
			vm.currentFrame().ip++

			definition := object.Builtins[builtinIndex]
			err := vm.push(definition.Builtin)
			if err != nil {
				return err
			}

		case code.OpGetFree:
			freeIndex := int(code.ReadUint8(ins[ip+1:]))
			vm.currentFrame().ip++

			currentClosure := vm.currentFrame().cl
			err := vm.push(currentClosure.Free[freeIndex])
			if err != nil {
				return err
			}

		case code.OpSetFree:
			freeIndex := int(code.ReadUint8(ins[ip+1:]))
			vm.currentFrame().ip++

			currentClosure := vm.currentFrame().cl
			currentClosure.Free[freeIndex] = vm.pop()

		case code.OpCurrentClosure:
			err := vm.push(vm.currentFrame().cl)
			if err != nil {
				return err
			}

		case code.OpGetOuter:
			scope, index, err := vm.readOuterOperands(ins, ip)
			if err != nil {
				return err
			}
			err = vm.executeGetOuter(scope, index)
			if err != nil {
				return err
			}

		case code.OpSetOuter:
			scope, index, err := vm.readOuterOperands(ins, ip)
			if err != nil {
				return err
			}
			err = vm.executeSetOuter(scope, index)
			if err != nil {
				return err
			}

		case code.OpArray:
			numElements := int(code.ReadUint16(ins[ip+1:]))
			vm.currentFrame().ip += 2

			array := vm.buildArray(vm.sp-numElements, vm.sp)
			vm.sp -= numElements
			err := vm.push(array)
			if err != nil {
				return err
			}

		case code.OpHash:
			numElements := int(code.ReadUint16(ins[ip+1:]))
			vm.currentFrame().ip += 2

			hash, err := vm.buildHash(vm.sp-numElements, vm.sp)
			if err != nil {
				return err
			}
			vm.sp -= numElements

			err = vm.push(hash)
			if err != nil {
				return err
			}

		case code.OpIndex:
			index := vm.pop()
			left := vm.pop()

			err := vm.executeIndexExpression(left, index)
			if err != nil {
				return err
			}

		case code.OpClosure:
			constIndex := int(code.ReadUint16(ins[ip+1:]))
			numFree := int(code.ReadUint8(ins[ip+3:]))
			vm.currentFrame().ip += 3

			err := vm.pushClosure(constIndex, numFree)
			if err != nil {
				return err
			}

		case code.OpCall:
			numArgs := int(code.ReadUint8(ins[ip+1:]))
			vm.currentFrame().ip++

			err := vm.executeCall(numArgs)
			if err != nil {
				return err
			}

		case code.OpReturnValue:
			returnValue := vm.pop()

			frame := vm.popFrame()
			// basePointer-1 is the slot of the callee; discarding it as well
			// leaves room for the return value.
			vm.sp = frame.basePointer - 1

			err := vm.push(returnValue)
			if err != nil {
				return err
			}

		case code.OpReturn:
			frame := vm.popFrame()
			vm.sp = frame.basePointer - 1

			err := vm.push(Null)
			if err != nil {
				return err
			}

		case code.OpPop:
			vm.lastPopped = vm.pop()

		case code.OpBreak, code.OpContinue:
			// The compiler patches these into jumps; reaching one means the
			// bytecode is malformed.
			return fmt.Errorf("unpatched loop control instruction at %d", ip)

		default:
			return fmt.Errorf("unhandled opcode %d", op)
		}
	}

	return nil
}

// isTruthy reports the truthiness of an object: false and null are falsy,
// every other value is truthy.
func isTruthy(obj object.Object) bool {
	switch obj := obj.(type) {
	case *object.Boolean:
		return obj.Value
	case *object.Null:
		return false
	default:
		return true
	}
}

// push validates the stack size and adds the provided object to the
// next available slot in the stack, incrementing the stack pointer.
func (vm *VM) push(o object.Object) error {
	if vm.sp >= StackSize {
		return fmt.Errorf("stack overflow")
	}

	vm.stack[vm.sp] = o
	vm.sp++

	return nil
}

// pop removes and returns the object on top of the stack.
func (vm *VM) pop() object.Object {
	o := vm.stack[vm.sp-1]
	vm.sp--
	return o
}

// readOuterOperands decodes the operands of OpGetOuter/OpSetOuter and advances
// the instruction pointer. The level operand describes the symbol-table
// distance to the original binding; because outer symbols never cross a
// function boundary (those promote to free variables instead) and loop bodies
// share the enclosing function's frame, the binding always lives in the
// current frame and the level needs no runtime walk.
func (vm *VM) readOuterOperands(ins code.Instructions, ip int) (compiler.SymbolScope, int, error) {
	tag := code.ReadUint8(ins[ip+2:])
	index := int(code.ReadUint8(ins[ip+3:]))
	vm.currentFrame().ip += 3

	scope, ok := compiler.ScopeFromTag(tag)
	if !ok {
		return "", 0, fmt.Errorf("invalid outer scope tag %d", tag)
	}
	return scope, index, nil
}

// executeGetOuter pushes the value of a binding addressed through an outer symbol.
func (vm *VM) executeGetOuter(scope compiler.SymbolScope, index int) error {
	frame := vm.currentFrame()
	switch scope {
	case compiler.LocalScope:
		return vm.push(vm.stack[frame.basePointer+index])
	case compiler.FreeScope:
		return vm.push(frame.cl.Free[index])
	case compiler.FunctionScope:
		return vm.push(frame.cl)
	default:
		return fmt.Errorf("unsupported outer scope %s", scope)
	}
}

// executeSetOuter pops the stack top into a binding addressed through an outer symbol.
func (vm *VM) executeSetOuter(scope compiler.SymbolScope, index int) error {
	frame := vm.currentFrame()
	switch scope {
	case compiler.LocalScope:
		vm.stack[frame.basePointer+index] = vm.pop()
		return nil
	case compiler.FreeScope:
		frame.cl.Free[index] = vm.pop()
		return nil
	default:
		return fmt.Errorf("unsupported outer scope %s", scope)
	}
}

// decimalValue converts an integer or decimal object to a float64.
func decimalValue(obj object.Object) (float64, bool) {
	switch obj := obj.(type) {
	case *object.Integer:
		return float64(obj.Value), true
	case *object.Decimal:
		return obj.Value, true
	default:
		return 0, false
	}
}

// isNumeric reports whether the object is an integer or a decimal.
func isNumeric(obj object.Object) bool {
	_, ok := decimalValue(obj)
	return ok
}

// executeBinaryOperation pops two operands and dispatches an arithmetic
// operation on them. Integer pairs produce integers, any decimal operand
// produces a decimal, and OpAdd on a string concatenates.
func (vm *VM) executeBinaryOperation(op code.Opcode) error {
	right := vm.pop()
	left := vm.pop()

	switch {
	case left.Type() == object.INTEGER_OBJ && right.Type() == object.INTEGER_OBJ:
		return vm.executeBinaryIntegerOperation(op, left, right)
	case isNumeric(left) && isNumeric(right):
		return vm.executeBinaryDecimalOperation(op, left, right)
	case left.Type() == object.STRING_OBJ && op == code.OpAdd:
		return vm.executeStringConcatenation(left, right)
	default:
		return fmt.Errorf("unsupported types for binary operation: %s, %s",
			left.Type(), right.Type())
	}
}

// executeBinaryIntegerOperation performs an arithmetic operation on two
// integers and pushes the result. Division (in any form) by zero is a
// runtime error.
func (vm *VM) executeBinaryIntegerOperation(op code.Opcode, left, right object.Object) error {
	leftValue := left.(*object.Integer).Value
	rightValue := right.(*object.Integer).Value

	var result int64
	switch op {
	case code.OpAdd:
		result = leftValue + rightValue
	case code.OpSub:
		result = leftValue - rightValue
	case code.OpMul:
		result = leftValue * rightValue
	case code.OpDiv:
		if rightValue == 0 {
			return fmt.Errorf("division by zero")
		}
		result = leftValue / rightValue
	case code.OpFloorDiv:
		if rightValue == 0 {
			return fmt.Errorf("division by zero")
		}
		result = leftValue / rightValue
		// Go truncates towards zero; floor division rounds towards negative infinity.
		if leftValue%rightValue != 0 && (leftValue < 0) != (rightValue < 0) {
			result--
		}
	case code.OpMod:
		if rightValue == 0 {
			return fmt.Errorf("division by zero")
		}
		result = leftValue % rightValue
	default:
		return fmt.Errorf("unknown integer operation: %d", op)
	}

	return vm.push(&object.Integer{Value: result})
}

// executeBinaryDecimalOperation performs an arithmetic operation on a numeric
// pair with at least one decimal operand and pushes a decimal result.
// Floor division and modulo are defined on integers only.
func (vm *VM) executeBinaryDecimalOperation(op code.Opcode, left, right object.Object) error {
	leftValue, _ := decimalValue(left)
	rightValue, _ := decimalValue(right)

	var result float64
	switch op {
	case code.OpAdd:
		result = leftValue + rightValue
	case code.OpSub:
		result = leftValue - rightValue
	case code.OpMul:
		result = leftValue * rightValue
	case code.OpDiv:
		result = leftValue / rightValue
	default:
		return fmt.Errorf("unsupported types for binary operation: %s, %s",
			left.Type(), right.Type())
	}

	return vm.push(&object.Decimal{Value: result})
}

// executeStringConcatenation concatenates a string with a string, an integer,
// or a decimal (the numeric value is stringified) and pushes the result.
func (vm *VM) executeStringConcatenation(left, right object.Object) error {
	leftValue := left.(*object.String).Value

	switch right := right.(type) {
	case *object.String:
		return vm.push(&object.String{Value: leftValue + right.Value})
	case *object.Integer, *object.Decimal:
		return vm.push(&object.String{Value: leftValue + right.Inspect()})
	default:
		return fmt.Errorf("unsupported types for binary operation: %s, %s",
			left.Type(), right.Type())
	}
}

// executeBitwiseOperation performs a bitwise operation on two integers and
// pushes the result.
func (vm *VM) executeBitwiseOperation(op code.Opcode) error {
	right := vm.pop()
	left := vm.pop()

	if left.Type() != object.INTEGER_OBJ || right.Type() != object.INTEGER_OBJ {
		return fmt.Errorf("unsupported types for binary operation: %s, %s",
			left.Type(), right.Type())
	}

	leftValue := left.(*object.Integer).Value
	rightValue := right.(*object.Integer).Value

	var result int64
	switch op {
	case code.OpBitAnd:
		result = leftValue & rightValue
	case code.OpBitOr:
		result = leftValue | rightValue
	case code.OpBitXor:
		result = leftValue ^ rightValue
	case code.OpBitLsh:
		if rightValue < 0 {
			return fmt.Errorf("negative shift amount")
		}
		result = leftValue << uint64(rightValue)
	case code.OpBitRsh:
		if rightValue < 0 {
			return fmt.Errorf("negative shift amount")
		}
		result = leftValue >> uint64(rightValue)
	default:
		return fmt.Errorf("unknown integer operation: %d", op)
	}

	return vm.push(&object.Integer{Value: result})
}

// executeComparison compares the two operands on top of the stack and pushes
// the boolean result. Numeric operands (including mixed integer/decimal pairs)
// compare numerically, strings compare by value (lexicographically for the
// ordering operators), and equality across unrelated types is false.
func (vm *VM) executeComparison(op code.Opcode) error {
	right := vm.pop()
	left := vm.pop()

	if isNumeric(left) && isNumeric(right) {
		return vm.executeNumericComparison(op, left, right)
	}

	if left.Type() == object.STRING_OBJ && right.Type() == object.STRING_OBJ {
		return vm.executeStringComparison(op, left, right)
	}

	switch op {
	case code.OpEqual:
		return vm.push(nativeBoolToBooleanObject(right == left))
	case code.OpNotEqual:
		return vm.push(nativeBoolToBooleanObject(right != left))
	default:
		return fmt.Errorf("unsupported types for comparison: %s, %s",
			left.Type(), right.Type())
	}
}

// executeNumericComparison compares two numeric operands. Integer pairs
// compare exactly; any decimal operand forces a floating-point comparison.
func (vm *VM) executeNumericComparison(op code.Opcode, left, right object.Object) error {
	if left.Type() == object.INTEGER_OBJ && right.Type() == object.INTEGER_OBJ {
		leftValue := left.(*object.Integer).Value
		rightValue := right.(*object.Integer).Value

		switch op {
		case code.OpEqual:
			return vm.push(nativeBoolToBooleanObject(leftValue == rightValue))
		case code.OpNotEqual:
			return vm.push(nativeBoolToBooleanObject(leftValue != rightValue))
		case code.OpGreaterThan:
			return vm.push(nativeBoolToBooleanObject(leftValue > rightValue))
		case code.OpGreaterEqual:
			return vm.push(nativeBoolToBooleanObject(leftValue >= rightValue))
		default:
			return fmt.Errorf("unknown operator: %d", op)
		}
	}

	leftValue, _ := decimalValue(left)
	rightValue, _ := decimalValue(right)

	switch op {
	case code.OpEqual:
		return vm.push(nativeBoolToBooleanObject(leftValue == rightValue))
	case code.OpNotEqual:
		return vm.push(nativeBoolToBooleanObject(leftValue != rightValue))
	case code.OpGreaterThan:
		return vm.push(nativeBoolToBooleanObject(leftValue > rightValue))
	case code.OpGreaterEqual:
		return vm.push(nativeBoolToBooleanObject(leftValue >= rightValue))
	default:
		return fmt.Errorf("unknown operator: %d", op)
	}
}

// executeStringComparison compares two strings by value, lexicographically
// for the ordering operators.
func (vm *VM) executeStringComparison(op code.Opcode, left, right object.Object) error {
	leftValue := left.(*object.String).Value
	rightValue := right.(*object.String).Value

	switch op {
	case code.OpEqual:
		return vm.push(nativeBoolToBooleanObject(leftValue == rightValue))
	case code.OpNotEqual:
		return vm.push(nativeBoolToBooleanObject(leftValue != rightValue))
	case code.OpGreaterThan:
		return vm.push(nativeBoolToBooleanObject(strings.Compare(leftValue, rightValue) > 0))
	case code.OpGreaterEqual:
		return vm.push(nativeBoolToBooleanObject(strings.Compare(leftValue, rightValue) >= 0))
	default:
		return fmt.Errorf("unknown operator: %d", op)
	}
}

// nativeBoolToBooleanObject converts a Go bool to the corresponding singleton.
func nativeBoolToBooleanObject(b bool) *object.Boolean {
	if b {
		return True
	}
	return False
}

// executeBangOperator pops the operand and pushes its negated truthiness.
func (vm *VM) executeBangOperator() error {
	operand := vm.pop()

	switch operand {
	case True:
		return vm.push(False)
	case False:
		return vm.push(True)
	case Null:
		return vm.push(True)
	default:
		return vm.push(False)
	}
}

// executeMinusOperator pops a numeric operand and pushes its negation.
func (vm *VM) executeMinusOperator() error {
	right := vm.pop()

	switch right := right.(type) {
	case *object.Integer:
		return vm.push(&object.Integer{Value: -right.Value})
	case *object.Decimal:
		return vm.push(&object.Decimal{Value: -right.Value})
	default:
		return fmt.Errorf("unsupported type for negation: %s", right.Type())
	}
}

// buildArray constructs a new object.Array from the stack slots between
// startIndex (inclusive) and endIndex (exclusive).
func (vm *VM) buildArray(startIndex, endIndex int) object.Object {
	elements := make([]object.Object, endIndex-startIndex)
	for i := startIndex; i < endIndex; i++ {
		elements[i-startIndex] = vm.stack[i]
	}

	return &object.Array{Elements: elements}
}

// buildHash constructs a new object.Hash from the stack slots between
// startIndex and endIndex, read as alternating keys and values.
func (vm *VM) buildHash(startIndex, endIndex int) (object.Object, error) {
	hashedPairs := make(map[object.HashKey]object.HashPair)

	for i := startIndex; i < endIndex; i += 2 {
		key := vm.stack[i]
		value := vm.stack[i+1]
		pair := object.HashPair{Key: key, Value: value}

		hashKey, ok := key.(object.Hashable)
		if !ok {
			return nil, fmt.Errorf("unusable as hash key: %s", key.Type())
		}

		hashedPairs[hashKey.HashKey()] = pair
	}

	return &object.Hash{Pairs: hashedPairs}, nil
}

// executeIndexExpression performs an index operation, dispatching on the type
// of the indexed collection.
func (vm *VM) executeIndexExpression(left, index object.Object) error {
	switch {
	case left.Type() == object.ARRAY_OBJ && index.Type() == object.INTEGER_OBJ:
		return vm.executeArrayIndex(left, index)
	case left.Type() == object.STRING_OBJ && index.Type() == object.INTEGER_OBJ:
		return vm.executeStringIndex(left, index)
	case left.Type() == object.HASH_OBJ:
		return vm.executeHashIndex(left, index)
	default:
		return fmt.Errorf("index operator not supported: %s", left.Type())
	}
}

// executeArrayIndex pushes the element at the given index, or null when the
// index is negative or out of range.
func (vm *VM) executeArrayIndex(left, index object.Object) error {
	arrayObject := left.(*object.Array)
	i := index.(*object.Integer).Value
	maxIndex := int64(len(arrayObject.Elements) - 1)

	if i < 0 || i > maxIndex {
		return vm.push(Null)
	}

	return vm.push(arrayObject.Elements[i])
}

// executeStringIndex pushes the one-character string at the given index, or
// null when the index is negative or out of range.
func (vm *VM) executeStringIndex(left, index object.Object) error {
	stringObject := left.(*object.String)
	i := index.(*object.Integer).Value
	maxIndex := int64(len(stringObject.Value) - 1)

	if i < 0 || i > maxIndex {
		return vm.push(Null)
	}

	return vm.push(&object.String{Value: string(stringObject.Value[i])})
}

// executeHashIndex pushes the value stored under the given key, or null when
// the key is missing. Unhashable keys are a runtime error.
func (vm *VM) executeHashIndex(hash, index object.Object) error {
	hashObject := hash.(*object.Hash)

	key, ok := index.(object.Hashable)
	if !ok {
		return fmt.Errorf("unusable as hash key: %s", index.Type())
	}

	pair, ok := hashObject.Pairs[key.HashKey()]
	if !ok {
		return vm.push(Null)
	}

	return vm.push(pair.Value)
}

// pushClosure wraps the compiled function at the given constants index in a
// closure, capturing numFree values off the stack as its free variables.
func (vm *VM) pushClosure(constIndex, numFree int) error {
	constant := vm.constants[constIndex]
	function, ok := constant.(*object.CompiledFunction)
	if !ok {
		return fmt.Errorf("not a function: %+v", constant)
	}

	free := make([]object.Object, numFree)
	for i := 0; i < numFree; i++ {
		free[i] = vm.stack[vm.sp-numFree+i]
	}
	vm.sp -= numFree

	closure := &object.Closure{Fn: function, Free: free}
	return vm.push(closure)
}

// executeCall grabs the callee below the arguments on the stack and
// dispatches to closure or builtin invocation.
func (vm *VM) executeCall(numArgs int) error {
	callee := vm.stack[vm.sp-1-numArgs]
	switch callee := callee.(type) {
	case *object.Closure:
		return vm.callClosure(callee, numArgs)
	case *object.Builtin:
		return vm.callBuiltin(callee, numArgs)
	default:
		return fmt.Errorf("calling non-function and non-built-in")
	}
}

// callClosure pushes a new frame for the closure. The arguments already on
// the stack become the first locals; the remaining local slots are reserved
// by bumping the stack pointer.
func (vm *VM) callClosure(cl *object.Closure, numArgs int) error {
	if numArgs != cl.Fn.NumParameters {
		return fmt.Errorf("wrong number of arguments: want=%d, got=%d",
			cl.Fn.NumParameters, numArgs)
	}

	frame := NewFrame(cl, vm.sp-numArgs)
	vm.pushFrame(frame)
	vm.sp = frame.basePointer + cl.Fn.NumLocals

	return nil
}

// callBuiltin invokes the builtin with the arguments on the stack and pushes
// its result in place of the callee. Builtins report misuse by returning an
// error object, which stays on the stack as a first-class value.
func (vm *VM) callBuiltin(builtin *object.Builtin, numArgs int) error {
	args := vm.stack[vm.sp-numArgs : vm.sp]

	result := builtin.Fn(args...)
	vm.sp = vm.sp - numArgs - 1

	if result != nil {
		return vm.push(result)
	}
	return vm.push(Null)
}
