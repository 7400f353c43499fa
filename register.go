package givmodbus

import (
	"fmt"
	"strconv"
	"strings"
)

// Bank identifies which Modbus register table a Register lives in.
type Bank int

const (
	Holding Bank = iota
	Input
)

func (b Bank) String() string {
	if b == Input {
		return "IR"
	}
	return "HR"
}

// Register names a single holding or input register slot. The zero value
// is HR(0); callers should use HR/IR rather than constructing directly.
type Register struct {
	Bank  Bank
	Index uint16
}

// HR builds a holding-register reference.
func HR(index int) Register { return Register{Bank: Holding, Index: uint16(index)} }

// IR builds an input-register reference.
func IR(index int) Register { return Register{Bank: Input, Index: uint16(index)} }

func (r Register) String() string {
	return fmt.Sprintf("%s(%d)", r.Bank, r.Index)
}

// Lexical renders the short form used in log lines, e.g. "HR_17".
func (r Register) Lexical() string {
	return fmt.Sprintf("%s_%d", r.Bank, r.Index)
}

// ParseRegister accepts both the "HR(17)"/"IR(17)" key form used by
// RegisterCache's JSON encoding and the "HR_17"/"IR_2045" lexical form.
// It returns false, rather than an error, for anything it cannot parse so
// callers can silently skip unknown keys the way the original does.
func ParseRegister(s string) (Register, bool) {
	var bank string
	var rest string
	if idx := strings.IndexAny(s, "(_"); idx > 0 {
		bank, rest = s[:idx], s[idx+1:]
		rest = strings.TrimSuffix(rest, ")")
	} else {
		return Register{}, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil || n < 0 {
		return Register{}, false
	}
	switch strings.ToUpper(bank) {
	case "HR":
		return HR(n), true
	case "IR":
		return IR(n), true
	default:
		return Register{}, false
	}
}
