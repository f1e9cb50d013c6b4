package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/harun/handoff/pkg/orchestrator"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// splitBinding splits a name=value flag argument
func splitBinding(arg string) (string, string, error) {
	name, value, ok := strings.Cut(arg, "=")
	if !ok || name == "" {
		return "", "", fmt.Errorf("expected name=value, got %q", arg)
	}
	return name, value, nil
}

// bindingFlags are the variable sources of `handoff run`
type bindingFlags struct {
	text   []string
	json   []string
	csv    []string
	arrays []string
}

// variables loads every binding. Order follows the flags: text values,
// then JSON, CSV and .npy files, each in the order given.
func (f *bindingFlags) variables() ([]orchestrator.Variable, error) {
	var variables []orchestrator.Variable

	sources := []struct {
		args []string
		load func(string) (any, error)
	}{
		{f.text, func(v string) (any, error) { return v, nil }},
		{f.json, loadJSON},
		{f.csv, loadCSV},
		{f.arrays, loadNPY},
	}

	for _, src := range sources {
		for _, arg := range src.args {
			name, value, err := splitBinding(arg)
			if err != nil {
				return nil, err
			}
			loaded, err := src.load(value)
			if err != nil {
				return nil, fmt.Errorf("variable %s: %w", name, err)
			}
			variables = append(variables, orchestrator.Variable{Name: name, Value: loaded})
		}
	}

	return variables, nil
}

// loadJSON decodes a JSON file. Numbers stay json.Number so integers keep
// every digit.
func loadJSON(path string) (any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse %s: unexpected data after JSON value", path)
	}
	return value, nil
}

func loadCSV(path string) (any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	df := dataframe.ReadCSV(f)
	if df.Err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, df.Err)
	}
	return df, nil
}

func loadNPY(path string) (any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var m mat.Dense
	if err := npyio.Read(f, &m); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return &m, nil
}
