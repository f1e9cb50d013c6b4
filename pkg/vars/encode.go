package vars

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"reflect"

	"github.com/go-gota/gota/dataframe"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// encoder writes one value in the format of its kind.
type encoder func(w io.Writer, value any) error

var encoders = map[Kind]encoder{
	KindText:       encodeText,
	KindStructured: encodeStructured,
	KindArray:      encodeArray,
	KindTable:      encodeTable,
}

func encodeText(w io.Writer, value any) error {
	_, err := io.WriteString(w, fmt.Sprint(value))
	return err
}

func encodeStructured(w io.Writer, value any) error {
	bw := bufio.NewWriter(w)

	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		return err
	}

	return bw.Flush()
}

func encodeArray(w io.Writer, value any) error {
	m, ok := value.(mat.Matrix)
	if !ok || isNilPointer(value) {
		return fmt.Errorf("%w: %T is not a matrix", ErrKindMismatch, value)
	}

	return npyio.Write(w, mat.DenseCopyOf(m))
}

func encodeTable(w io.Writer, value any) error {
	var df dataframe.DataFrame
	switch v := value.(type) {
	case dataframe.DataFrame:
		df = v
	case *dataframe.DataFrame:
		if v == nil {
			return fmt.Errorf("%w: nil dataframe", ErrKindMismatch)
		}
		df = *v
	default:
		return fmt.Errorf("%w: %T is not a dataframe", ErrKindMismatch, value)
	}

	return writeParquet(w, df)
}

func isNilPointer(value any) bool {
	rv := reflect.ValueOf(value)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}
