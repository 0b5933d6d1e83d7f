package analysis

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/tyler-sommer/stick"
)

//go:embed prompts/*.twig
var promptFS embed.FS

// Template names under prompts/.
const (
	TemplateExtraction = "extraction"
	TemplateFields     = "fields"
)

// PromptBuilder renders the Twig instruction templates sent with each request.
type PromptBuilder struct {
	env       *stick.Env
	templates map[string]string
}

// NewPromptBuilder loads the embedded templates. overrides, keyed by template
// name, replace individual templates.
func NewPromptBuilder(overrides map[string]string) (*PromptBuilder, error) {
	b := &PromptBuilder{
		env:       stick.New(nil),
		templates: make(map[string]string),
	}
	err := fs.WalkDir(promptFS, "prompts", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(p, ".twig") {
			return nil
		}
		content, readErr := fs.ReadFile(promptFS, p)
		if readErr != nil {
			return fmt.Errorf("read %s: %w", p, readErr)
		}
		b.templates[strings.TrimSuffix(path.Base(p), ".twig")] = string(content)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("analysis.NewPromptBuilder: %w", err)
	}
	for name, tpl := range overrides {
		b.templates[name] = tpl
	}
	return b, nil
}

// MustPromptBuilder is NewPromptBuilder without overrides, panicking on error.
// The embedded templates are compiled into the binary, so failure is a build defect.
func MustPromptBuilder() *PromptBuilder {
	b, err := NewPromptBuilder(nil)
	if err != nil {
		panic(err)
	}
	return b
}

// Extraction builds the prompt for one document. Custom instructions, when
// present, are appended after the extraction rules.
func (b *PromptBuilder) Extraction(documentName, customInstructions string) (string, error) {
	return b.render(TemplateExtraction, map[string]stick.Value{
		"document":     documentName,
		"instructions": strings.TrimSpace(customInstructions),
		"max_words":    maxNarrativeWords,
	})
}

// FieldExtraction builds the prompt used by secondary field sources.
func (b *PromptBuilder) FieldExtraction(documentName string) (string, error) {
	return b.render(TemplateFields, map[string]stick.Value{"document": documentName})
}

func (b *PromptBuilder) render(name string, vars map[string]stick.Value) (string, error) {
	tpl, ok := b.templates[name]
	if !ok {
		return "", fmt.Errorf("template %q not found", name)
	}
	var out strings.Builder
	if err := b.env.Execute(tpl, &out, vars); err != nil {
		return "", fmt.Errorf("execute %q: %w", name, err)
	}
	return strings.TrimSpace(out.String()), nil
}
