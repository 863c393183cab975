// internal/service/template_service.go
package service

import (
	"regexp"
	"sort"
	"strings"

	"github.com/unclebandit/bulkmail/internal/model"
)

const (
	RecipientNameToken  = "recipient.name"
	RecipientEmailToken = "recipient.email"
)

var placeholderPattern = regexp.MustCompile(`%([A-Za-z0-9_.\-]+)%`)

// RenderTemplate substitutes the recipient's variables into subject and body.
// Custom variables are replaced first (sorted by key so output is stable), then
// %recipient.name% and %recipient.email%. A custom variable named like a reserved
// token is ignored so the reserved value always wins. Unknown placeholders are
// left verbatim.
func RenderTemplate(tpl model.Template, r model.Recipient) model.Template {
	keys := make([]string, 0, len(r.Variables))
	for k := range r.Variables {
		if k == RecipientNameToken || k == RecipientEmailToken {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := tpl
	for _, k := range keys {
		out = replaceToken(out, k, r.Variables[k])
	}
	out = replaceToken(out, RecipientNameToken, r.Name)
	out = replaceToken(out, RecipientEmailToken, r.Email)
	return out
}

func replaceToken(tpl model.Template, key, value string) model.Template {
	token := "%" + key + "%"
	return model.Template{
		Subject: strings.ReplaceAll(tpl.Subject, token, value),
		Body:    strings.ReplaceAll(tpl.Body, token, value),
	}
}

// Placeholders lists the distinct %token% names in text, in order of first appearance.
func Placeholders(text string) []string {
	seen := map[string]bool{}
	var names []string
	for _, m := range placeholderPattern.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}
