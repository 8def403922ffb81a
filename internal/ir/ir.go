// Package ir defines the Ourocode intermediate representation: a module of
// functions, each a control-flow graph of basic blocks holding SSA
// instructions. Modules are immutable after construction and may be shared
// freely between concurrent executors.
package ir

// EntryLabel is the label of the distinguished entry block of every
// function.
const EntryLabel = "entry"

// StateTypeName names the single built-in aggregate type: the ecosystem
// state record threaded through every compiled rule.
const StateTypeName = "EcosystemState"

// StateFields is the fixed field layout of the state record. External
// callers constructing arguments or reading results rely on this order.
var StateFields = [3]string{"population", "energy", "mutationRate"}

// TypeKind classifies a type descriptor.
type TypeKind int

const (
	TypePrimitive TypeKind = iota
	TypeStruct
)

// Field is one named struct member.
type Field struct {
	Name string
	Type string // primitive type name: f64, i32, bool
}

// TypeDescriptor is a tagged union: a primitive type or an ordered struct.
type TypeDescriptor struct {
	Kind      TypeKind
	Primitive string  // set when Kind == TypePrimitive
	Fields    []Field // set when Kind == TypeStruct
}

// StateType returns the descriptor of the standard 3-field state struct.
func StateType() TypeDescriptor {
	return TypeDescriptor{
		Kind: TypeStruct,
		Fields: []Field{
			{Name: StateFields[0], Type: "f64"},
			{Name: StateFields[1], Type: "f64"},
			{Name: StateFields[2], Type: "f64"},
		},
	}
}

// FieldIndex resolves a canonical state field name to its index in the
// standard layout.
func FieldIndex(name string) (int, bool) {
	for i, f := range StateFields {
		if f == name {
			return i, true
		}
	}
	return 0, false
}

// NamedType pairs a type name with its descriptor. Modules keep types in
// declaration order so serialization stays deterministic.
type NamedType struct {
	Name string
	Desc TypeDescriptor
}

// Module is one compiled rule program.
type Module struct {
	Name      string
	Version   string
	Source    string // source language tag
	Types     []NamedType
	Functions []*Function
}

// Function returns the named function, or nil.
func (m *Module) Function(name string) *Function {
	for _, f := range m.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Type returns the named type descriptor.
func (m *Module) Type(name string) (TypeDescriptor, bool) {
	for _, t := range m.Types {
		if t.Name == name {
			return t.Desc, true
		}
	}
	return TypeDescriptor{}, false
}

// Param is one function parameter.
type Param struct {
	Name string
	Type string // type name: a primitive or a declared struct type
}

// Function is a control-flow graph of basic blocks. The entry block comes
// first; the remaining blocks follow in creation order.
type Function struct {
	Name   string
	Params []Param
	Result string // return type name
	Blocks []*Block
}

// Block returns the block with the given label, or nil.
func (f *Function) Block(label string) *Block {
	for _, b := range f.Blocks {
		if b.Label == label {
			return b
		}
	}
	return nil
}

// Block is an ordered instruction sequence ending in a terminator.
type Block struct {
	Label  string
	Instrs []Instr
}

// Instr is implemented by all IR instructions.
type Instr interface {
	isInstr()
	String() string
}

// Const binds a numeric constant.
type Const struct {
	Dst   string
	Value float64
}

// Extract reads a struct field by index.
type Extract struct {
	Dst   string
	Src   string
	Index int
}

// Insert produces a new struct value with one field replaced. The source
// struct is never mutated.
type Insert struct {
	Dst   string
	Src   string
	Index int
	Val   string
}

// BinOp applies a binary operation to two bound operands.
type BinOp struct {
	Dst string
	Op  BinOpKind
	LHS string
	RHS string
}

// Br transfers control. With an empty Cond it is an unconditional jump to
// True; otherwise Cond selects between True and False.
type Br struct {
	Cond  string
	True  string
	False string
}

// PhiIncoming is one (value, predecessor label) pair of a phi node.
type PhiIncoming struct {
	Value string
	Pred  string
}

// Phi selects among incoming values by the block control arrived from.
type Phi struct {
	Dst      string
	Incoming []PhiIncoming
}

// Call invokes another function of the same module. Dst may be empty when
// the result is discarded.
type Call struct {
	Dst    string
	Callee string
	Args   []string
}

// Ret ends the function, yielding the named value.
type Ret struct {
	Val string
}

func (Const) isInstr()   {}
func (Extract) isInstr() {}
func (Insert) isInstr()  {}
func (BinOp) isInstr()   {}
func (Br) isInstr()      {}
func (Phi) isInstr()     {}
func (Call) isInstr()    {}
func (Ret) isInstr()     {}

// IsTerminator reports whether in ends a block.
func IsTerminator(in Instr) bool {
	switch in.(type) {
	case Br, Ret:
		return true
	}
	return false
}

// Terminated reports whether the block's last instruction is a terminator.
func (b *Block) Terminated() bool {
	if len(b.Instrs) == 0 {
		return false
	}
	return IsTerminator(b.Instrs[len(b.Instrs)-1])
}

// BinOpKind enumerates the supported binary operations.
type BinOpKind int

const (
	OpAdd BinOpKind = iota
	OpSub
	OpMul
	OpDiv
	OpGt
	OpLt
	OpEq
	OpGe
	OpLe
	OpNe
)

// IsComparison reports whether the operation yields a boolean.
func (k BinOpKind) IsComparison() bool {
	switch k {
	case OpGt, OpLt, OpEq, OpGe, OpLe, OpNe:
		return true
	}
	return false
}

func (k BinOpKind) String() string {
	switch k {
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpDiv:
		return "div"
	case OpGt:
		return "gt"
	case OpLt:
		return "lt"
	case OpEq:
		return "eq"
	case OpGe:
		return "ge"
	case OpLe:
		return "le"
	case OpNe:
		return "ne"
	default:
		return "binop?"
	}
}
