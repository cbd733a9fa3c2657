package report

import (
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
	"github.com/microcosm-cc/bluemonday"
)

var (
	notesPolicyOnce sync.Once
	notesPolicy     *bluemonday.Policy
)

// sanitizeNotes strips everything but basic inline formatting from user
// supplied notes embedded in HTML reports.
func sanitizeNotes(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(notesSanitizer().Sanitize(trimmed))
}

func notesSanitizer() *bluemonday.Policy {
	notesPolicyOnce.Do(func() {
		policy := bluemonday.StrictPolicy()
		policy.AllowElements("p", "br", "b", "strong", "i", "em", "code", "pre", "ul", "ol", "li")
		policy.AllowAttrs("href").OnElements("a")
		policy.AllowStandardURLs()
		policy.RequireNoFollowOnLinks(true)
		policy.AllowElements("a")
		notesPolicy = policy
	})
	return notesPolicy
}

func filterSafeHTML(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsSafeValue(sanitizeNotes(in.String())), nil
}
