package vars

import (
	"reflect"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/mat"
)

// Classify maps a value to its storage kind and file suffix.
//
// Rules are evaluated in order and the first match wins. Tables are checked
// before matrices and matrices before generic containers so that a dataframe
// is never written as plain JSON. Values that match nothing fall back to
// KindStructured and may still fail to serialize.
func Classify(value any) (Kind, string) {
	kind := classify(value)
	return kind, kind.Suffix()
}

func classify(value any) Kind {
	switch value.(type) {
	case dataframe.DataFrame, *dataframe.DataFrame:
		return KindTable
	case mat.Matrix:
		return KindArray
	}

	if value == nil {
		return KindStructured
	}

	switch reflect.TypeOf(value).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return KindStructured
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128:
		return KindText
	}

	return KindStructured
}
