package prompts

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"
)

//go:embed clauses.tmpl
var clausePrompt string

//go:embed page_context.tmpl
var pageContextTmpl string

var pageContextTemplate = template.Must(template.New("page_context").Parse(pageContextTmpl))

// ClauseExtractionKey identifies the built-in clause extraction prompt.
const ClauseExtractionKey = "clauses.extract"

// ClauseExtraction returns the built-in clause extraction prompt.
func ClauseExtraction() string {
	return clausePrompt
}

// WithPageContext appends the document-absolute page span of a window to base.
// The attached sub-document always starts at page 1, so the model is asked for
// excerpt-relative page numbers.
func WithPageContext(base string, start, end int) string {
	var buf bytes.Buffer
	data := struct{ Start, End, Pages int }{Start: start, End: end, Pages: end - start + 1}
	if err := pageContextTemplate.Execute(&buf, data); err != nil {
		return base + fmt.Sprintf("\n\nThe attached PDF holds pages %d-%d of the original document.", start, end)
	}
	return base + buf.String()
}
