package extract

import "strings"

const (
	// mailCode starts the control-code section of a letter (items, money, flags).
	mailCode = "%"
	// mailTitle introduces the letter's title.
	mailTitle = "[#]"
)

// Mail parses a letter "body%code...[#]title". The body and the title are
// translatable; the control code is kept verbatim.
func Mail(s string) *Template {
	t := &Template{}

	head, title, hasTitle := strings.Cut(s, mailTitle)
	body, code := head, ""
	if i := strings.Index(head, mailCode); i >= 0 {
		body, code = head[:i], head[i:]
	}

	t.translatable(body)
	t.literal(code)
	if hasTitle {
		t.literal(mailTitle)
		t.translatable(title)
	}
	return t
}
