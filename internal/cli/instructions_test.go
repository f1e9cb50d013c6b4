package cli

import (
	"testing"

	"github.com/harun/handoff/pkg/instructions"
	"github.com/harun/handoff/pkg/vars"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstructionsCommand(t *testing.T) {
	t.Run("one snippet per variable", func(t *testing.T) {
		out, _, err := execute(t, "instructions",
			"--var", "numbers=structured",
			"--var", "sales=table",
			"--var", "grid=numeric-array",
			"--var", "note=text",
		)
		require.NoError(t, err)

		assert.Contains(t, out, "numbers_value = json.loads(Path(numbers).read_text(encoding='utf-8'))")
		assert.Contains(t, out, "sales_value = pd.read_parquet(sales)")
		assert.Contains(t, out, "grid_value = np.load(grid)")
		assert.Contains(t, out, "note_value = Path(note).read_text(encoding='utf-8')")
		assert.Contains(t, out, "final_answer(")
	})

	t.Run("placeholder without variables", func(t *testing.T) {
		out, _, err := execute(t, "instructions")
		require.NoError(t, err)
		assert.Contains(t, out, instructions.PlaceholderName)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, _, err := execute(t, "instructions", "--var", "x=dataframe")
		var kindErr *vars.UnknownKindError
		assert.ErrorAs(t, err, &kindErr)
	})

	t.Run("invalid name", func(t *testing.T) {
		_, _, err := execute(t, "instructions", "--var", "1x=text")
		assert.ErrorIs(t, err, vars.ErrInvalidName)
	})

	t.Run("malformed flag", func(t *testing.T) {
		_, _, err := execute(t, "instructions", "--var", "text")
		assert.Error(t, err)
	})
}
