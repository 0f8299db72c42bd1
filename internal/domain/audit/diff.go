package audit

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/stockledger-api/internal/domain/entity"
)

// Diff calcula los cambios campo a campo entre old y new. Un campo presente en uno y ausente
// en el otro, o con valor distinto, se registra como {field, from, to}; los iguales se omiten.
// El resultado se ordena por nombre de campo.
func Diff(oldValues, newValues map[string]any) []entity.FieldChange {
	keys := make(map[string]struct{}, len(oldValues)+len(newValues))
	for k := range oldValues {
		keys[k] = struct{}{}
	}
	for k := range newValues {
		keys[k] = struct{}{}
	}

	changes := make([]entity.FieldChange, 0)
	for k := range keys {
		from, inOld := oldValues[k]
		to, inNew := newValues[k]
		if inOld && inNew && equal(from, to) {
			continue
		}
		changes = append(changes, entity.FieldChange{Field: k, From: from, To: to})
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Field < changes[j].Field })
	return changes
}

// equal compara valores normalizados: decimales y números por valor, tiempos por instante.
func equal(a, b any) bool {
	na, nb := normalize(a), normalize(b)
	if na == nil || nb == nil {
		return na == nil && nb == nil
	}
	return reflect.DeepEqual(na, nb)
}

func normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case decimal.Decimal:
		return "dec:" + x.String()
	case *decimal.Decimal:
		if x == nil {
			return nil
		}
		return "dec:" + x.String()
	case time.Time:
		return "time:" + x.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if x == nil {
			return nil
		}
		return "time:" + x.UTC().Format(time.RFC3339Nano)
	case fmt.Stringer:
		return x.String()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "dec:" + decimal.NewFromInt(rv.Int()).String()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "dec:" + strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return "dec:" + decimal.NewFromFloat(rv.Float()).String()
	case reflect.String:
		return rv.String()
	case reflect.Ptr:
		if rv.IsNil() {
			return nil
		}
		return normalize(rv.Elem().Interface())
	}
	return v
}
