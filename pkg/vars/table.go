package vars

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/parquet-go/parquet-go"
)

// columnOrderKey stores the dataframe column order in the Parquet footer,
// since a Parquet group orders its fields by name.
const columnOrderKey = "handoff.columns"

func writeParquet(w io.Writer, df dataframe.DataFrame) error {
	if df.Err != nil {
		return fmt.Errorf("invalid dataframe: %w", df.Err)
	}

	names := df.Names()
	if len(names) == 0 {
		return errors.New("dataframe has no columns")
	}
	types := df.Types()

	group := parquet.Group{}
	for i, name := range names {
		node, err := parquetNode(types[i])
		if err != nil {
			return fmt.Errorf("column %s: %w", name, err)
		}
		group[name] = parquet.Optional(node)
	}
	schema := parquet.NewSchema("table", group)

	columnIndex := make(map[string]int, len(names))
	for i, path := range schema.Columns() {
		columnIndex[path[0]] = i
	}

	order, err := json.Marshal(names)
	if err != nil {
		return err
	}

	rows := make([]parquet.Row, df.Nrow())
	for r := range rows {
		rows[r] = make(parquet.Row, len(names))
	}

	for i, name := range names {
		col := df.Col(name)
		idx := columnIndex[name]
		for r := 0; r < col.Len(); r++ {
			value, err := parquetValue(col.Elem(r), types[i])
			if err != nil {
				return fmt.Errorf("column %s row %d: %w", name, r, err)
			}
			rows[r][idx] = value.Level(0, definitionLevel(value), idx)
		}
	}

	pw := parquet.NewWriter(w, schema, parquet.KeyValueMetadata(columnOrderKey, string(order)))
	if _, err := pw.WriteRows(rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}

	return pw.Close()
}

func parquetNode(t series.Type) (parquet.Node, error) {
	switch t {
	case series.String:
		return parquet.String(), nil
	case series.Int:
		return parquet.Int(64), nil
	case series.Float:
		return parquet.Leaf(parquet.DoubleType), nil
	case series.Bool:
		return parquet.Leaf(parquet.BooleanType), nil
	default:
		return nil, fmt.Errorf("unsupported column type %q", t)
	}
}

func parquetValue(e series.Element, t series.Type) (parquet.Value, error) {
	if e.IsNA() {
		return parquet.NullValue(), nil
	}

	switch t {
	case series.String:
		return parquet.ValueOf(e.String()), nil
	case series.Int:
		n, err := e.Int()
		if err != nil {
			return parquet.Value{}, err
		}
		return parquet.ValueOf(int64(n)), nil
	case series.Float:
		return parquet.ValueOf(e.Float()), nil
	case series.Bool:
		b, err := e.Bool()
		if err != nil {
			return parquet.Value{}, err
		}
		return parquet.ValueOf(b), nil
	default:
		return parquet.Value{}, fmt.Errorf("unsupported column type %q", t)
	}
}

func definitionLevel(v parquet.Value) int {
	if v.IsNull() {
		return 0
	}
	return 1
}

func readParquet(r io.ReaderAt, size int64) (dataframe.DataFrame, error) {
	f, err := parquet.OpenFile(r, size)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("failed to open parquet file: %w", err)
	}

	fields := f.Schema().Fields()
	columns := make([][]interface{}, len(fields))

	buf := make([]parquet.Row, 128)
	for _, rg := range f.RowGroups() {
		rows := rg.Rows()
		for {
			n, err := rows.ReadRows(buf)
			for _, row := range buf[:n] {
				for _, v := range row {
					col := v.Column()
					columns[col] = append(columns[col], goValue(v, fields[col].Type().Kind()))
				}
			}
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				rows.Close()
				return dataframe.DataFrame{}, fmt.Errorf("failed to read rows: %w", err)
			}
		}
		rows.Close()
	}

	byName := make(map[string]series.Series, len(fields))
	names := make([]string, 0, len(fields))
	for i, field := range fields {
		byName[field.Name()] = series.New(columns[i], seriesType(field.Type().Kind()), field.Name())
		names = append(names, field.Name())
	}

	if raw, ok := f.Lookup(columnOrderKey); ok {
		var order []string
		if err := json.Unmarshal([]byte(raw), &order); err == nil && len(order) == len(names) {
			names = order
		}
	}

	cols := make([]series.Series, 0, len(names))
	for _, name := range names {
		col, ok := byName[name]
		if !ok {
			return dataframe.DataFrame{}, fmt.Errorf("column %s listed in metadata but missing", name)
		}
		cols = append(cols, col)
	}

	df := dataframe.New(cols...)
	return df, df.Err
}

// goValue converts a parquet value to the element types gota accepts.
func goValue(v parquet.Value, kind parquet.Kind) interface{} {
	if v.IsNull() {
		return nil
	}

	switch kind {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return int(v.Int32())
	case parquet.Int64:
		return int(v.Int64())
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	default:
		return string(v.ByteArray())
	}
}

func seriesType(kind parquet.Kind) series.Type {
	switch kind {
	case parquet.Boolean:
		return series.Bool
	case parquet.Int32, parquet.Int64:
		return series.Int
	case parquet.Float, parquet.Double:
		return series.Float
	default:
		return series.String
	}
}
