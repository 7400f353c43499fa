package givmodbus

import (
	"fmt"
	"strings"
)

// PreConv turns one or more raw register words into a typed value. Each
// variant below mirrors one of the original implementation's converters.
type PreConv func(words []uint16) (interface{}, error)

// PostConv refines the pre-converted value further (enum lookup, unit
// scaling, format string).
type PostConv func(v interface{}) (interface{}, error)

// Uint16Conv passes the single raw word through unchanged.
func Uint16Conv(words []uint16) (interface{}, error) {
	if len(words) != 1 {
		return nil, ErrInvalidParameter
	}
	return words[0], nil
}

// Int16Conv reinterprets the single raw word as two's-complement signed.
func Int16Conv(words []uint16) (interface{}, error) {
	if len(words) != 1 {
		return nil, ErrInvalidParameter
	}
	return int16(words[0]), nil
}

// Uint32Conv combines two words, high word first, into a 32-bit value.
func Uint32Conv(words []uint16) (interface{}, error) {
	if len(words) != 2 {
		return nil, ErrInvalidParameter
	}
	return uint32(words[0])<<16 | uint32(words[1]), nil
}

// StringConv decodes words as latin-1 bytes (high byte then low byte per
// word), strips trailing NULs, and upper-cases the result - this is how
// serial numbers and firmware tags are packed two-chars-per-register.
func StringConv(words []uint16) (interface{}, error) {
	b := make([]byte, 0, len(words)*2)
	for _, w := range words {
		b = append(b, byte(w>>8), byte(w))
	}
	s := trimLatin1(b)
	return strings.ToUpper(s), nil
}

// DUint8Conv splits a single word into its high and low bytes, selecting
// idx (0=high, 1=low).
func DUint8Conv(idx int) PreConv {
	return func(words []uint16) (interface{}, error) {
		if len(words) != 1 {
			return nil, ErrInvalidParameter
		}
		if idx == 0 {
			return uint8(words[0] >> 8), nil
		}
		return uint8(words[0]), nil
	}
}

// BitfieldConv extracts bits [lo, hi] (inclusive) of the single raw word.
func BitfieldConv(lo, hi int) PreConv {
	return func(words []uint16) (interface{}, error) {
		if len(words) != 1 {
			return nil, ErrInvalidParameter
		}
		mask := uint16((1 << (hi - lo + 1)) - 1)
		return (words[0] >> lo) & mask, nil
	}
}

// TimeSlotConv decodes two words, HHMM each, into a TimeSlot.
func TimeSlotConv(words []uint16) (interface{}, error) {
	if len(words) != 2 {
		return nil, ErrInvalidParameter
	}
	start, err := timeOfDayFromHHMM(words[0])
	if err != nil {
		return nil, err
	}
	end, err := timeOfDayFromHHMM(words[1])
	if err != nil {
		return nil, err
	}
	return TimeSlot{Start: start, End: end}, nil
}

// DateTimeConv decodes six words (year-2000, month, day, hour, minute,
// second) into a canonical timestamp tuple.
func DateTimeConv(words []uint16) (interface{}, error) {
	if len(words) != 6 {
		return nil, ErrInvalidParameter
	}
	return DateTime{
		Year:   2000 + int(words[0]),
		Month:  int(words[1]),
		Day:    int(words[2]),
		Hour:   int(words[3]),
		Minute: int(words[4]),
		Second: int(words[5]),
	}, nil
}

// FirmwareVersionConv renders a single word as a "D0.<high byte>-A0.<low
// byte>" firmware tag, e.g. 0x0A14 -> "D0.10-A0.20".
func FirmwareVersionConv(words []uint16) (interface{}, error) {
	if len(words) != 1 {
		return nil, ErrInvalidParameter
	}
	return fmt.Sprintf("D0.%d-A0.%d", words[0]>>8, words[0]&0xff), nil
}

// GatewayVersionConv mirrors FirmwareVersionConv for gateway-family units.
func GatewayVersionConv(words []uint16) (interface{}, error) {
	return FirmwareVersionConv(words)
}

// CentiConv divides the raw unsigned word by 100, with no sign extension:
// the device never reports these particular measurements as negative.
func CentiConv(words []uint16) (interface{}, error) {
	v, err := Uint16Conv(words)
	if err != nil {
		return nil, err
	}
	return float64(v.(uint16)) / 100.0, nil
}

// DeciConv divides the raw unsigned word by 10.
func DeciConv(words []uint16) (interface{}, error) {
	v, err := Uint16Conv(words)
	if err != nil {
		return nil, err
	}
	return float64(v.(uint16)) / 10.0, nil
}

// MilliConv divides the raw unsigned word by 1000.
func MilliConv(words []uint16) (interface{}, error) {
	v, err := Uint16Conv(words)
	if err != nil {
		return nil, err
	}
	return float64(v.(uint16)) / 1000.0, nil
}

// HexConv renders the raw word as a zero-padded hex string.
func HexConv(words []uint16) (interface{}, error) {
	if len(words) != 1 {
		return nil, ErrInvalidParameter
	}
	return fmt.Sprintf("%04x", words[0]), nil
}

// IdentityConv passes the raw words through untouched.
func IdentityConv(words []uint16) (interface{}, error) {
	return words, nil
}

// EnumPostConv builds a PostConv that maps raw integer keys to labels,
// falling back to def for anything not in table - the "unknown maps to
// default" behavior the original's DefaultUnknownIntEnum gives for free.
func EnumPostConv(table map[int64]string, def string) PostConv {
	return func(v interface{}) (interface{}, error) {
		key, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		if label, ok := table[key]; ok {
			return label, nil
		}
		return def, nil
	}
}

// FormatPostConv renders v with a fmt verb, e.g. "%.1f".
func FormatPostConv(format string) PostConv {
	return func(v interface{}) (interface{}, error) {
		return fmt.Sprintf(format, v), nil
	}
}

func toInt64(v interface{}) (int64, error) {
	switch x := v.(type) {
	case uint16:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	default:
		return 0, fmt.Errorf("givmodbus: cannot convert %T to int64", v)
	}
}
