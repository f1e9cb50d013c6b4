package instructions

import "github.com/harun/handoff/pkg/vars"

// PlaceholderName is used for the example snippet when no variables are bound.
const PlaceholderName = "example_variable"

const preamble = `# Variables and data loading
The additional_args you receive map each variable name to a file path, e.g. {"{{.Placeholder}}": "/tmp/{{.Placeholder}}_x1y2z3.json"}.
Each name is already bound as a variable whose value is that path, not the data itself.
Read every file with the loader shown for its format below and nothing else.
Calling open() or reading a .json, .npy or .parquet file as plain text is an error: open() is unavailable and the data will not decode.
`

const closing = `... your processing goes here; assume the value to return is your_answer_variable.
final_answer(your_answer_variable)  # required: results are only returned through final_answer
# final_answer is built in; do not define or import it.
`

var kindTemplates = map[vars.Kind]string{
	vars.KindText: `from pathlib import Path
{{.Name}}_value = Path({{.Name}}).read_text(encoding='utf-8')
`,
	vars.KindStructured: `from pathlib import Path
import json
{{.Name}}_value = json.loads(Path({{.Name}}).read_text(encoding='utf-8'))
`,
	vars.KindArray: `import numpy as np
{{.Name}}_value = np.load({{.Name}})
`,
	vars.KindTable: `import pandas as pd
{{.Name}}_value = pd.read_parquet({{.Name}})
`,
}

var kindTitles = map[vars.Kind]string{
	vars.KindText:       "plain UTF-8 text (.txt)",
	vars.KindStructured: "JSON (.json)",
	vars.KindArray:      "NumPy array (.npy)",
	vars.KindTable:      "Parquet table (.parquet)",
}
