package vars

import (
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/mat"
)

type celsius float64

type point struct {
	X, Y int
}

func TestClassify(t *testing.T) {
	df := dataframe.New(series.New([]int{1, 2}, series.Int, "n"))

	tests := []struct {
		name   string
		value  any
		kind   Kind
		suffix string
	}{
		{"dataframe", df, KindTable, ".parquet"},
		{"dataframe pointer", &df, KindTable, ".parquet"},
		{"dense matrix", mat.NewDense(2, 2, []float64{1, 2, 3, 4}), KindArray, ".npy"},
		{"vector", mat.NewVecDense(3, []float64{1, 2, 3}), KindArray, ".npy"},
		{"int slice", []int{1, 2, 3}, KindStructured, ".json"},
		{"float array", [3]float64{1, 2, 3}, KindStructured, ".json"},
		{"map", map[string]any{"a": 1}, KindStructured, ".json"},
		{"string", "hello", KindText, ".txt"},
		{"bool", true, KindText, ".txt"},
		{"int", 42, KindText, ".txt"},
		{"uint8", uint8(7), KindText, ".txt"},
		{"float", 3.14, KindText, ".txt"},
		{"complex", complex(1, 2), KindText, ".txt"},
		{"named float", celsius(21.5), KindText, ".txt"},
		{"struct falls back", point{1, 2}, KindStructured, ".json"},
		{"pointer falls back", &point{1, 2}, KindStructured, ".json"},
		{"nil falls back", nil, KindStructured, ".json"},
		{"channel falls back", make(chan int), KindStructured, ".json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, suffix := Classify(tt.value)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.suffix, suffix)
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	values := []any{"a", 1, []string{"x"}, map[int]int{1: 2}, mat.NewDense(1, 1, nil)}

	for _, v := range values {
		first, _ := Classify(v)
		for i := 0; i < 10; i++ {
			kind, _ := Classify(v)
			assert.Equal(t, first, kind)
		}
	}
}

func TestKind(t *testing.T) {
	assert.Equal(t, []Kind{KindText, KindStructured, KindArray, KindTable}, Kinds())

	for _, k := range Kinds() {
		assert.True(t, k.Valid())
		assert.NotEmpty(t, k.Suffix())

		parsed, err := ParseKind(k.String())
		assert.NoError(t, err)
		assert.Equal(t, k, parsed)
	}

	_, err := ParseKind("pickle")
	var unknown *UnknownKindError
	assert.ErrorAs(t, err, &unknown)
	assert.Equal(t, "", Kind("pickle").Suffix())
}
