// Package render turns parsed notes into interactive card HTML: templated or
// raw card composition, shared resource hoisting and model stylesheet
// scoping.
package render

import (
	"bytes"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Model stylesheets were written for a page holding one card. When many cards
// share one document their selectors must be confined to the card container
// or models start styling each other's cards.

// ScopeCSS prefixes every top level selector with the scope selector.
// Selectors inside @font-face, @keyframes and @page keep their meaning and
// are left alone, as is everything when the stylesheet cannot be tokenized.
func ScopeCSS(data, scope string, log *zap.Logger) string {
	if len(strings.TrimSpace(data)) == 0 {
		return data
	}

	input := parse.NewInput(bytes.NewReader([]byte(data)))
	parser := css.NewParser(input, false)

	var (
		out       strings.Builder
		atRule    []string // nesting stack of active at-rules
		scopeable = func() bool {
			for _, name := range atRule {
				switch name {
				case "@font-face", "@keyframes", "@-webkit-keyframes", "@page":
					return false
				}
			}
			return true
		}
	)

	for {
		gt, _, tok := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			if err := parser.Err(); err != nil && err.Error() != "EOF" {
				log.Debug("Stylesheet tokenization stopped", zap.Error(err))
			}
			return out.String()

		case css.CommentGrammar:
			// comments are dropped from the scoped output

		case css.AtRuleGrammar:
			out.Write(tok)
			writeTokens(&out, parser.Values())
			out.WriteString(";")

		case css.BeginAtRuleGrammar:
			atRule = append(atRule, string(tok))
			out.Write(tok)
			writeTokens(&out, parser.Values())
			out.WriteString("{")

		case css.EndAtRuleGrammar:
			if len(atRule) > 0 {
				atRule = atRule[:len(atRule)-1]
			}
			out.WriteString("}")

		case css.QualifiedRuleGrammar:
			writeSelector(&out, scope, tok, parser.Values(), scopeable())
			out.WriteString(",")

		case css.BeginRulesetGrammar:
			writeSelector(&out, scope, tok, parser.Values(), scopeable())
			out.WriteString("{")

		case css.EndRulesetGrammar:
			out.WriteString("}")

		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			out.Write(tok)
			out.WriteString(":")
			writeTokens(&out, parser.Values())
			out.WriteString(";")

		case css.TokenGrammar:
			out.Write(tok)
		}
	}
}

func writeTokens(out *strings.Builder, tokens []css.Token) {
	for _, t := range tokens {
		out.Write(t.Data)
	}
}

func writeSelector(out *strings.Builder, scope string, data []byte, tokens []css.Token, scopeable bool) {
	var sel strings.Builder
	sel.Write(data)
	for _, t := range tokens {
		sel.Write(t.Data)
	}
	selector := strings.TrimSpace(sel.String())
	if !scopeable || len(selector) == 0 {
		out.WriteString(selector)
		return
	}
	out.WriteString(scope)
	out.WriteString(" ")
	out.WriteString(selector)
}
