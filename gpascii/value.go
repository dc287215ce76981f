package gpascii

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind определяет тип значения переменной контроллера.
type Kind int

const (
	KindFloat Kind = iota
	KindInt
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value - типизированное значение переменной (float, int или bool).
type Value struct {
	Kind Kind
	f    float64
	i    int64
	b    bool
}

func Float(f float64) Value { return Value{Kind: KindFloat, f: f} }
func Int(i int64) Value     { return Value{Kind: KindInt, i: i} }
func Bool(b bool) Value     { return Value{Kind: KindBool, b: b} }

// Float64 возвращает значение как число с плавающей точкой.
func (v Value) Float64() float64 {
	switch v.Kind {
	case KindInt:
		return float64(v.i)
	case KindBool:
		if v.b {
			return 1
		}
		return 0
	default:
		return v.f
	}
}

// Int64 возвращает значение как целое. Дробная часть отбрасывается.
func (v Value) Int64() int64 {
	switch v.Kind {
	case KindFloat:
		return int64(v.f)
	case KindBool:
		if v.b {
			return 1
		}
		return 0
	default:
		return v.i
	}
}

// Bool возвращает true для любого ненулевого значения.
func (v Value) Bool() bool {
	switch v.Kind {
	case KindFloat:
		return v.f != 0
	case KindInt:
		return v.i != 0
	default:
		return v.b
	}
}

// Equal сравнивает значения с учетом типа.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindFloat:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	case KindInt:
		return v.i == o.i
	default:
		return v.b == o.b
	}
}

// String форматирует значение в представление протокола.
// Числа с плавающей точкой всегда содержат точку или экспоненту,
// чтобы при разборе не превратиться в целые.
func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindBool:
		if v.b {
			return "1"
		}
		return "0"
	default:
		s := strconv.FormatFloat(v.f, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eEnN") {
			s += ".0"
		}
		return s
	}
}

// ParseValue разбирает значение из ответа контроллера без знания объявленного типа.
func ParseValue(s string) (Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Value{}, fmt.Errorf("empty value")
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Int(i), nil
	}
	if strings.HasPrefix(s, "$") {
		i, err := strconv.ParseInt(s[1:], 16, 64)
		if err != nil {
			return Value{}, fmt.Errorf("invalid hex value %q", s)
		}
		return Int(i), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Value{}, fmt.Errorf("invalid numeric value %q", s)
	}
	return Float(f), nil
}

// Coerce приводит значение к объявленному типу переменной.
func (v Value) Coerce(k Kind) Value {
	switch k {
	case KindFloat:
		return Float(v.Float64())
	case KindInt:
		return Int(v.Int64())
	default:
		return Bool(v.Bool())
	}
}
