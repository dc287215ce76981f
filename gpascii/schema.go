package gpascii

import (
	"fmt"
	"math"
	"strings"
)

// Declaration описывает объявленный тип и ограничения переменной.
type Declaration struct {
	Kind     Kind
	Min      float64
	Max      float64
	ReadOnly bool
}

// Schema сопоставляет шаблон имени (индексы в скобках удалены) с объявлением.
type Schema struct {
	entries map[string]Declaration
}

func NewSchema() *Schema {
	return &Schema{entries: make(map[string]Declaration)}
}

// Declare добавляет или заменяет объявление для шаблона вида "motor[].actpos".
func (s *Schema) Declare(pattern string, d Declaration) *Schema {
	if d.Min == 0 && d.Max == 0 {
		d.Min, d.Max = math.Inf(-1), math.Inf(1)
	}
	s.entries[Pattern(pattern)] = d
	return s
}

// Lookup возвращает объявление для конкретного имени переменной.
func (s *Schema) Lookup(name string) (Declaration, bool) {
	if s == nil {
		return Declaration{}, false
	}
	d, ok := s.entries[Pattern(name)]
	return d, ok
}

// Validate проверяет, можно ли записать значение в переменную.
// Необъявленные переменные не проверяются: решение принимает контроллер.
func (s *Schema) Validate(name string, v Value) (Value, error) {
	d, ok := s.Lookup(name)
	if !ok {
		return v, nil
	}
	if d.ReadOnly {
		return v, &ValidationError{Name: name, Reason: "read-only"}
	}

	switch d.Kind {
	case KindFloat:
		if v.Kind == KindBool {
			return v, &ValidationError{Name: name, Value: v.String(), Reason: "expected float"}
		}
		if math.IsNaN(v.Float64()) {
			return v, &ValidationError{Name: name, Value: v.String(), Reason: "NaN is not allowed"}
		}
	case KindInt:
		if v.Kind != KindInt {
			return v, &ValidationError{Name: name, Value: v.String(), Reason: "expected int"}
		}
	case KindBool:
		if v.Kind == KindFloat || (v.Kind == KindInt && v.Int64() != 0 && v.Int64() != 1) {
			return v, &ValidationError{Name: name, Value: v.String(), Reason: "expected bool"}
		}
	}

	if d.Kind != KindBool {
		f := v.Float64()
		if f < d.Min || f > d.Max {
			return v, &ValidationError{
				Name:   name,
				Value:  v.String(),
				Reason: fmt.Sprintf("out of range [%g, %g]", d.Min, d.Max),
			}
		}
	}
	return v.Coerce(d.Kind), nil
}

// Pattern нормализует имя: нижний регистр, содержимое скобок удалено.
func Pattern(name string) string {
	name = Normalize(name)
	var b strings.Builder
	b.Grow(len(name))
	depth := 0
	for _, r := range name {
		switch {
		case r == '[':
			depth++
			b.WriteRune(r)
		case r == ']':
			if depth > 0 {
				depth--
			}
			b.WriteRune(r)
		case depth > 0:
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Normalize приводит имя переменной к каноническому виду.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// DefaultSchema возвращает объявления переменных осей, fly-скана и системных переменных.
func DefaultSchema() *Schema {
	positive := Declaration{Kind: KindFloat, Min: math.SmallestNonzeroFloat64, Max: math.Inf(1)}

	return NewSchema().
		Declare("motor[].homepos", Declaration{Kind: KindFloat}).
		Declare("motor[].actpos", Declaration{Kind: KindFloat}).
		Declare("motor[].despos", Declaration{Kind: KindFloat}).
		Declare("motor[].inpos", Declaration{Kind: KindBool}).
		Declare("motor[].closedloop", Declaration{Kind: KindBool}).
		Declare("motor[].flyarm", Declaration{Kind: KindBool}).
		Declare("motor[].flystart", Declaration{Kind: KindFloat}).
		Declare("motor[].flyend", Declaration{Kind: KindFloat}).
		Declare("motor[].flyvel", positive).
		Declare("motor[].flyaccel", positive).
		Declare("fly.npoints", Declaration{Kind: KindInt, Min: 1, Max: 1e6}).
		Declare("fly.start", Declaration{Kind: KindBool}).
		Declare("fly.abort", Declaration{Kind: KindBool}).
		Declare("fly.tick", Declaration{Kind: KindInt, ReadOnly: true}).
		Declare("fly.status", Declaration{Kind: KindInt, ReadOnly: true}).
		Declare("fly.fault", Declaration{Kind: KindInt, ReadOnly: true}).
		Declare("fly.ticktime[]", Declaration{Kind: KindFloat, ReadOnly: true}).
		Declare("sys.time", Declaration{Kind: KindFloat, ReadOnly: true}).
		Declare("p[]", Declaration{Kind: KindFloat})
}
