package render

import (
	"fmt"
	"html"
	"strings"

	"go.uber.org/zap"

	"cdv/config"
	"cdv/deck"
)

// Side is the visible face of a rendered card.
type Side int

const (
	SideFront Side = iota
	SideBack
)

func (s Side) String() string {
	if s == SideBack {
		return "back"
	}
	return "front"
}

// Toggle returns the opposite face.
func (s Side) Toggle() Side {
	if s == SideFront {
		return SideBack
	}
	return SideFront
}

// Hint is the flip affordance shown under a templated card.
func (s Side) Hint() string {
	if s == SideBack {
		return "Click to show question ▴"
	}
	return "Click to show answer ▾"
}

// baseCardCSS is applied to every templated card alongside the model css,
// scoped the same way.
const baseCardCSS = `.card { padding: 0.5em; }`

// Card is a single rendered note ready for the page.
type Card struct {
	Ordinal   int
	HTML      string
	Templated bool
}

// Renderer turns notes into page fragments. Model lookups go through the
// registry, hoisted assets accumulate in the shared resource scope.
type Renderer struct {
	log       *zap.Logger
	models    *deck.Registry
	resources *Resources
	mode      config.RenderMode
}

func NewRenderer(models *deck.Registry, resources *Resources, mode config.RenderMode, log *zap.Logger) *Renderer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{
		log:       log.Named("render"),
		models:    models,
		resources: resources,
		mode:      mode,
	}
}

func (r *Renderer) Mode() config.RenderMode {
	return r.mode
}

// RenderNote produces the card fragment for a note. Template rendering
// happens only when the mode asks for it and the note resolves to a model
// that actually carries templates; everything else falls back to the raw
// field table, which never fails.
func (r *Renderer) RenderNote(ordinal int, n *deck.Note) (Card, error) {
	m, _ := r.models.Resolve(n)
	if r.mode == config.RenderModeModel && m != nil && len(m.Templates) > 0 {
		out, err := r.renderTemplated(ordinal, n, m)
		if err != nil {
			return Card{}, fmt.Errorf("unable to render note %d with model %q: %w", ordinal, m.Name, err)
		}
		return Card{Ordinal: ordinal, HTML: out, Templated: true}, nil
	}
	if r.mode == config.RenderModeModel && m == nil {
		r.log.Debug("No model for note, falling back to raw render",
			zap.Int("ordinal", ordinal),
			zap.String("guid", n.Attributes[deck.AttrGUID]))
	}
	return Card{Ordinal: ordinal, HTML: r.renderRaw(ordinal, n, m)}, nil
}

// renderRaw builds the field table view. Field names come from the model
// when one is known, otherwise positional labels are synthesized.
func (r *Renderer) renderRaw(ordinal int, n *deck.Note, m *deck.Model) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<div class="card-container" data-card="%d">`, ordinal)
	b.WriteString(`<div class="card-render card-raw"><table>`)
	for i, field := range n.Fields {
		b.WriteString(`<tr><th>`)
		b.WriteString(html.EscapeString(m.FieldName(i)))
		b.WriteString(`</th><td>`)
		// field content is trusted deck HTML and must render as markup
		b.WriteString(field)
		b.WriteString(`</td></tr>`)
	}
	b.WriteString(`</table>`)
	writeTagChips(&b, n.Tags)
	b.WriteString(`</div></div>`)
	return b.String()
}

func writeTagChips(b *strings.Builder, tags []string) {
	if len(tags) == 0 {
		return
	}
	b.WriteString(`<div class="card-tags">`)
	for _, tag := range tags {
		b.WriteString(`<span class="card-tag">`)
		b.WriteString(html.EscapeString(tag))
		b.WriteString(`</span>`)
	}
	b.WriteString(`</div>`)
}

// renderTemplated builds the two-faced card from the model's first template,
// scopes the model css to this card and hoists shared resources out of the
// combined markup.
func (r *Renderer) renderTemplated(ordinal int, n *deck.Note, m *deck.Model) (string, error) {
	fields := deck.FieldContext(n, m)
	front, back := deck.RenderSides(&m.Templates[0], fields)

	scope := fmt.Sprintf(`[data-card="%d"]`, ordinal)
	css := ScopeCSS(baseCardCSS, scope, r.log)
	if len(strings.TrimSpace(m.CSS)) != 0 {
		css += "\n" + ScopeCSS(m.CSS, scope, r.log)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<style>%s</style>`, css)
	fmt.Fprintf(&b, `<div class="card-face card-front card"><div class="card-body">%s</div></div>`, front)
	fmt.Fprintf(&b, `<div class="card-face card-back card" style="display:none"><div class="card-body">%s</div></div>`, back)

	inner, err := r.resources.Hoist(b.String(), false)
	if err != nil {
		return "", err
	}

	var out strings.Builder
	fmt.Fprintf(&out, `<div class="card-container" data-card="%d" data-side="%s">`, ordinal, SideFront)
	fmt.Fprintf(&out, `<div class="card-render card-templated">%s</div>`, inner)
	fmt.Fprintf(&out, `<div class="card-flip-hint">%s</div>`, html.EscapeString(SideFront.Hint()))
	writeTagChips(&out, n.Tags)
	out.WriteString(`</div>`)
	return out.String(), nil
}

// PreloadTemplates walks every registered model's template formats and
// hoists external library references without touching inline scripts, so
// scheduling-sensitive libraries load before the first card renders.
func (r *Renderer) PreloadTemplates() error {
	for _, m := range r.models.Models() {
		for _, t := range m.Templates {
			for _, format := range []string{t.QuestionFormat, t.AnswerFormat} {
				if len(strings.TrimSpace(format)) == 0 {
					continue
				}
				if _, err := r.resources.Hoist(format, true); err != nil {
					return fmt.Errorf("unable to preload libraries for model %q template %q: %w", m.Name, t.Name, err)
				}
			}
		}
	}
	return nil
}
