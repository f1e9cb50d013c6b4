package instructions

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/harun/handoff/pkg/vars"
)

// Binding pairs a variable name with the kind it was stored as.
type Binding struct {
	Name string
	Kind vars.Kind
}

// Builder renders instruction blocks. It is immutable after New and safe for
// concurrent use.
type Builder struct {
	preamble *template.Template
	snippets map[vars.Kind]*template.Template
}

// New parses the templates and checks that every storage kind has one.
func New() (*Builder, error) {
	return parse(preamble, kindTemplates)
}

// parse compiles the templates and renders each once so that Build cannot
// hit an execution error later.
func parse(preambleText string, templates map[vars.Kind]string) (*Builder, error) {
	pre, err := template.New("preamble").Option("missingkey=error").Parse(preambleText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse preamble: %w", err)
	}
	if err := pre.Execute(io.Discard, preambleData()); err != nil {
		return nil, fmt.Errorf("failed to render preamble: %w", err)
	}

	snippets := make(map[vars.Kind]*template.Template, len(templates))
	for _, kind := range vars.Kinds() {
		text, ok := templates[kind]
		if !ok {
			return nil, fmt.Errorf("no instruction template for kind %s", kind)
		}
		tmpl, err := template.New(kind.String()).Option("missingkey=error").Parse(text)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", kind, err)
		}
		if err := tmpl.Execute(io.Discard, Binding{Name: PlaceholderName, Kind: kind}); err != nil {
			return nil, fmt.Errorf("failed to render %s template: %w", kind, err)
		}
		snippets[kind] = tmpl
	}

	return &Builder{
		preamble: pre,
		snippets: snippets,
	}, nil
}

func preambleData() map[string]string {
	return map[string]string{"Placeholder": PlaceholderName}
}

// Build renders the instruction block for bindings in the order given.
// An empty slice renders a generic structured example so the block always
// shows a loader.
func (b *Builder) Build(bindings []Binding) string {
	var sb strings.Builder

	sb.WriteString("\n")
	// Every template rendered once in parse and strings.Builder never fails
	_ = b.preamble.Execute(&sb, preambleData())

	if len(bindings) == 0 {
		sb.WriteString("\nExample, for a JSON variable named " + PlaceholderName + ":\n")
		b.writeSnippet(&sb, Binding{Name: PlaceholderName, Kind: vars.KindStructured})
	} else {
		sb.WriteString("\nYour code must load the variables exactly like this:\n")
		for _, binding := range bindings {
			b.writeSnippet(&sb, binding)
		}
	}

	sb.WriteString("\n")
	sb.WriteString(closing)

	return sb.String()
}

func (b *Builder) writeSnippet(sb *strings.Builder, binding Binding) {
	tmpl, ok := b.snippets[binding.Kind]
	if !ok {
		// Unknown kinds are rejected by the store before they get here.
		tmpl = b.snippets[vars.KindStructured]
		binding.Kind = vars.KindStructured
	}

	fmt.Fprintf(sb, "# %s: %s\n", binding.Name, kindTitles[binding.Kind])
	_ = tmpl.Execute(sb, binding)
}
