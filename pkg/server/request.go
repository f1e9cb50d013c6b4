package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/harun/handoff/pkg/orchestrator"
	"github.com/xeipuuv/gojsonschema"
	"gonum.org/v1/gonum/mat"
)

// RunRequest is the body of POST /v1/runs.
type RunRequest struct {
	Task      string                 `json:"task"`
	MaxSteps  int                    `json:"max_steps,omitempty"`
	Variables map[string]any         `json:"variables,omitempty"`
	Tables    map[string]TableInput  `json:"tables,omitempty"`
	Arrays    map[string][][]float64 `json:"arrays,omitempty"`
}

// TableInput is a table sent as a header and rows of cells.
type TableInput struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// RunResponse is returned for every run, successful or not.
type RunResponse struct {
	RunID           string   `json:"run_id,omitempty"`
	Output          any      `json:"output,omitempty"`
	Error           string   `json:"error,omitempty"`
	DurationMS      int64    `json:"duration_ms"`
	CleanupWarnings []string `json:"cleanup_warnings,omitempty"`
}

// errBadRequest marks request bodies that fail validation or conversion
var errBadRequest = errors.New("bad request")

var requestSchema = gojsonschema.NewStringLoader(runRequestSchema)

// decodeRunRequest validates data against the request schema and decodes it.
// Plain JSON numbers in variables stay json.Number so integers keep their form.
func decodeRunRequest(data []byte) (*RunRequest, error) {
	result, err := gojsonschema.Validate(requestSchema, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: %s", errBadRequest, strings.Join(msgs, "; "))
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var req RunRequest
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return &req, nil
}

// toVariables converts the request into orchestrator variables sorted by name.
// A name may appear in only one of variables, tables and arrays.
func (req *RunRequest) toVariables() ([]orchestrator.Variable, error) {
	values := make(map[string]any, len(req.Variables)+len(req.Tables)+len(req.Arrays))
	add := func(name string, value any) error {
		if _, dup := values[name]; dup {
			return fmt.Errorf("%w: variable %q given more than once", errBadRequest, name)
		}
		values[name] = value
		return nil
	}

	for name, value := range req.Variables {
		if err := add(name, value); err != nil {
			return nil, err
		}
	}
	for name, table := range req.Tables {
		df, err := table.dataFrame()
		if err != nil {
			return nil, fmt.Errorf("%w: table %q: %v", errBadRequest, name, err)
		}
		if err := add(name, df); err != nil {
			return nil, err
		}
	}
	for name, rows := range req.Arrays {
		m, err := matrix(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: array %q: %v", errBadRequest, name, err)
		}
		if err := add(name, m); err != nil {
			return nil, err
		}
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	variables := make([]orchestrator.Variable, 0, len(names))
	for _, name := range names {
		variables = append(variables, orchestrator.Variable{Name: name, Value: values[name]})
	}
	return variables, nil
}

// dataFrame builds a dataframe whose column types follow the JSON cells:
// strings stay strings, numbers become int or float, booleans stay bool.
// A null cell becomes a missing value.
func (t TableInput) dataFrame() (dataframe.DataFrame, error) {
	columns := make([][]any, len(t.Columns))
	for j := range columns {
		columns[j] = make([]any, 0, len(t.Rows))
	}

	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return dataframe.DataFrame{}, fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(t.Columns))
		}
		for j, cell := range row {
			columns[j] = append(columns[j], cell)
		}
	}

	cols := make([]series.Series, len(t.Columns))
	for j, name := range t.Columns {
		col, err := column(name, columns[j])
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("column %q: %w", name, err)
		}
		cols[j] = col
	}

	df := dataframe.New(cols...)
	if df.Err != nil {
		return dataframe.DataFrame{}, df.Err
	}
	return df, nil
}

// column builds one series from JSON cells that must share a type.
func column(name string, cells []any) (series.Series, error) {
	var typ series.Type
	for i, cell := range cells {
		var cellType series.Type
		switch v := cell.(type) {
		case nil:
			continue
		case string:
			// gota stores "NaN" in a string column as a missing value
			if v == "NaN" {
				return series.Series{}, fmt.Errorf("row %d: the string \"NaN\" cannot be told apart from a missing value, send null instead", i)
			}
			cellType = series.String
		case json.Number:
			cellType = series.Int
			if _, err := v.Int64(); err != nil {
				cellType = series.Float
			}
		case bool:
			cellType = series.Bool
		default:
			return series.Series{}, fmt.Errorf("row %d: nested values are not supported", i)
		}

		switch {
		case typ == "":
			typ = cellType
		case typ == cellType:
		case isNumeric(typ) && isNumeric(cellType):
			typ = series.Float
		default:
			return series.Series{}, fmt.Errorf("row %d: %s cell in a %s column", i, cellType, typ)
		}
	}
	if typ == "" {
		typ = series.String
	}

	values := make([]any, len(cells))
	for i, cell := range cells {
		n, ok := cell.(json.Number)
		if !ok {
			values[i] = cell
			continue
		}
		if typ == series.Int {
			v, _ := n.Int64()
			values[i] = int(v)
			continue
		}
		v, err := n.Float64()
		if err != nil {
			return series.Series{}, fmt.Errorf("row %d: %w", i, err)
		}
		values[i] = v
	}

	return series.New(values, typ, name), nil
}

func isNumeric(t series.Type) bool {
	return t == series.Int || t == series.Float
}

// matrix converts rectangular rows into a dense matrix.
func matrix(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, errors.New("empty array")
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), cols)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(rows), cols, data), nil
}
