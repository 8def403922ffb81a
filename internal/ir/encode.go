package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Encode renders a module as canonical line-oriented text. The rendering is
// deterministic for identical module content: header lines first, then type
// declarations and functions in stored order, entry block first, one
// instruction per line. Interoperating implementations hash this text, so
// the templates below are part of the wire contract.
func Encode(m *Module) string {
	var b strings.Builder
	fmt.Fprintf(&b, "module %s\n", m.Name)
	fmt.Fprintf(&b, "version %s\n", m.Version)
	fmt.Fprintf(&b, "source %s\n", m.Source)
	for _, t := range m.Types {
		fmt.Fprintf(&b, "type %s = %s\n", t.Name, t.Desc)
	}
	for _, f := range m.Functions {
		b.WriteString(f.String())
	}
	return b.String()
}

// Hash returns the lowercase hex SHA-256 digest of the canonical text.
// Identical modules always hash identically; any change to instructions,
// constants or block structure changes the digest.
func Hash(m *Module) string {
	sum := sha256.Sum256([]byte(Encode(m)))
	return hex.EncodeToString(sum[:])
}

func (d TypeDescriptor) String() string {
	if d.Kind == TypePrimitive {
		return d.Primitive
	}
	var b strings.Builder
	b.WriteString("struct { ")
	for i, f := range d.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %s", f.Name, f.Type)
	}
	b.WriteString(" }")
	return b.String()
}

func (f *Function) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "func %s(", f.Name)
	for i, p := range f.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%%%s: %s", p.Name, p.Type)
	}
	fmt.Fprintf(&b, ") -> %s {\n", f.Result)
	for _, blk := range f.Blocks {
		b.WriteString(blk.String())
	}
	b.WriteString("}\n")
	return b.String()
}

func (b *Block) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:\n", b.Label)
	for _, in := range b.Instrs {
		sb.WriteString("  ")
		if s, ok := in.(fmt.Stringer); ok {
			sb.WriteString(s.String())
		} else {
			sb.WriteString("<instr>")
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// formatNum renders a constant with the shortest round-trippable decimal
// form, keeping the canonical text stable across platforms.
func formatNum(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func (i Const) String() string {
	return fmt.Sprintf("%s = const %s", i.Dst, formatNum(i.Value))
}

func (i Extract) String() string {
	return fmt.Sprintf("%s = extract %s, %d", i.Dst, i.Src, i.Index)
}

func (i Insert) String() string {
	return fmt.Sprintf("%s = insert %s, %d, %s", i.Dst, i.Src, i.Index, i.Val)
}

func (i BinOp) String() string {
	return fmt.Sprintf("%s = %s %s, %s", i.Dst, i.Op, i.LHS, i.RHS)
}

func (i Br) String() string {
	if i.Cond == "" {
		return fmt.Sprintf("br %s", i.True)
	}
	return fmt.Sprintf("brcond %s, %s, %s", i.Cond, i.True, i.False)
}

func (i Phi) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s = phi ", i.Dst)
	for idx, in := range i.Incoming {
		if idx > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "[%s, %s]", in.Value, in.Pred)
	}
	return b.String()
}

func (i Call) String() string {
	var b strings.Builder
	if i.Dst != "" {
		fmt.Fprintf(&b, "%s = ", i.Dst)
	}
	fmt.Fprintf(&b, "call %s(", i.Callee)
	for idx, a := range i.Args {
		if idx > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a)
	}
	b.WriteString(")")
	return b.String()
}

func (i Ret) String() string {
	return fmt.Sprintf("ret %s", i.Val)
}
