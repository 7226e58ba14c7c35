package oracle

import (
	_ "embed"
	"text/template"
)

//go:embed prompts/classify.md
var classifyPromptRaw string

// ClassifyTemplate is the parsed prompt template for capture classification.
// Parsed once at package init; reused on every Classify call.
var ClassifyTemplate = template.Must(template.New("classify").Parse(classifyPromptRaw))
