package deck

import (
	"regexp"
	"strings"
)

// Legacy field substitution syntax: {{ key }} with the key trimmed of
// surrounding whitespace, no nesting. Unknown keys keep the literal
// placeholder text - intentional fallback behavior, not an error.
var placeholderPattern = regexp.MustCompile(`\{\{([^{}]+?)\}\}`)

// FrontSideMarker in a back side template is replaced by the already
// rendered front side HTML.
const FrontSideMarker = "{{FrontSide}}"

// TagsKey is the synthetic context entry carrying the space joined tag list.
const TagsKey = "Tags"

// ApplyTemplate substitutes context values for placeholders. Field values are
// already HTML rendering units and are inserted verbatim.
func ApplyTemplate(template string, context map[string]string) string {
	if len(template) == 0 {
		return ""
	}
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		key := strings.TrimSpace(match[2 : len(match)-2])
		if value, ok := context[key]; ok {
			return value
		}
		return match
	})
}

// RenderSides renders both sides of a card template with the same context,
// then inlines the rendered front into every FrontSide marker of the rendered
// back. Inlining must happen after both independent renders so a templated
// front arrives fully expanded.
func RenderSides(t *ModelTemplate, context map[string]string) (front, back string) {
	front = ApplyTemplate(t.QuestionFormat, context)
	back = ApplyTemplate(t.AnswerFormat, context)
	back = strings.ReplaceAll(back, FrontSideMarker, front)
	return front, back
}

// FieldContext zips note fields against model field definitions by position.
// Note fields beyond the definition list are dropped, model fields beyond the
// note are simply absent from the context.
func FieldContext(n *Note, m *Model) map[string]string {
	context := make(map[string]string, len(n.Fields)+1)
	for i, value := range n.Fields {
		if i >= len(m.Fields) {
			break
		}
		context[m.Fields[i].Name] = value
	}
	context[TagsKey] = strings.Join(n.Tags, " ")
	return context
}
