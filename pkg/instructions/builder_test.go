package instructions

import (
	"strings"
	"testing"

	"github.com/harun/handoff/pkg/vars"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBuilder(t *testing.T) *Builder {
	t.Helper()
	b, err := New()
	require.NoError(t, err)
	return b
}

func TestNew_CoversEveryKind(t *testing.T) {
	b := newBuilder(t)

	for _, kind := range vars.Kinds() {
		assert.Contains(t, b.snippets, kind)
		assert.Contains(t, kindTitles, kind)
	}
}

func TestParse_RejectsTemplatesThatFailToRender(t *testing.T) {
	broken := make(map[vars.Kind]string, len(kindTemplates))
	for kind, text := range kindTemplates {
		broken[kind] = text
	}
	broken[vars.KindArray] = "{{.Path}}\n"

	_, err := parse(preamble, broken)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "numeric-array")

	_, err = parse("{{.Missing}}", kindTemplates)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "preamble")

	missing := make(map[vars.Kind]string, len(kindTemplates))
	for kind, text := range kindTemplates {
		if kind != vars.KindTable {
			missing[kind] = text
		}
	}
	_, err = parse(preamble, missing)
	assert.Error(t, err)
}

func TestBuild_Empty(t *testing.T) {
	b := newBuilder(t)

	text := b.Build(nil)

	assert.NotEmpty(t, text)
	assert.Contains(t, text, "json.loads(Path("+PlaceholderName+")")
	assert.Contains(t, text, "final_answer(your_answer_variable)")
	assert.Equal(t, text, b.Build([]Binding{}))
}

func TestBuild_OneSnippetPerBinding(t *testing.T) {
	b := newBuilder(t)

	bindings := []Binding{
		{Name: "notes", Kind: vars.KindText},
		{Name: "numbers", Kind: vars.KindStructured},
		{Name: "matrix", Kind: vars.KindArray},
		{Name: "people", Kind: vars.KindTable},
	}

	text := b.Build(bindings)

	assert.Contains(t, text, "notes_value = Path(notes).read_text(encoding='utf-8')")
	assert.Contains(t, text, "numbers_value = json.loads(Path(numbers).read_text(encoding='utf-8'))")
	assert.Contains(t, text, "matrix_value = np.load(matrix)")
	assert.Contains(t, text, "people_value = pd.read_parquet(people)")
	assert.NotContains(t, text, "json.loads(Path("+PlaceholderName)

	for _, binding := range bindings {
		assert.Equal(t, 1, strings.Count(text, "# "+binding.Name+":"), binding.Name)
	}

	// Snippets follow input order.
	last := -1
	for _, binding := range bindings {
		idx := strings.Index(text, "# "+binding.Name+":")
		assert.Greater(t, idx, last)
		last = idx
	}
}

func TestBuild_Deterministic(t *testing.T) {
	b := newBuilder(t)
	bindings := []Binding{
		{Name: "a", Kind: vars.KindTable},
		{Name: "b", Kind: vars.KindText},
	}

	first := b.Build(bindings)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, b.Build(bindings))
	}

	reversed := b.Build([]Binding{bindings[1], bindings[0]})
	assert.NotEqual(t, first, reversed)
}

func TestBuild_PreambleAndClosing(t *testing.T) {
	text := newBuilder(t).Build([]Binding{{Name: "x", Kind: vars.KindArray}})

	assert.True(t, strings.HasPrefix(text, "\n# Variables and data loading"))
	assert.Contains(t, text, "open()")
	assert.Contains(t, text, "is an error")
	assert.Contains(t, text, "do not define or import it")
	assert.True(t, strings.HasSuffix(text, "do not define or import it.\n"))
}

func TestBuild_UnknownKindUsesStructured(t *testing.T) {
	text := newBuilder(t).Build([]Binding{{Name: "odd", Kind: vars.Kind("pickle")}})

	assert.Contains(t, text, "odd_value = json.loads(Path(odd)")
}
