package vars

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// Load reads a file written by Store.Put back into a Go value.
//
// Text loads as string, structured as the generic JSON value, numeric
// arrays as *mat.Dense and tables as dataframe.DataFrame.
func Load(path string, kind Kind) (any, error) {
	switch kind {
	case KindText:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return string(data), nil

	case KindStructured:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var value any
		if err := json.Unmarshal(data, &value); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		return value, nil

	case KindArray:
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		var m mat.Dense
		if err := npyio.Read(f, &m); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		return &m, nil

	case KindTable:
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return nil, err
		}
		df, err := readParquet(f, info.Size())
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		return df, nil
	}

	return nil, &UnknownKindError{Kind: string(kind)}
}
