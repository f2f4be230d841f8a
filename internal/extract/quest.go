package extract

import "strings"

// questFields is the number of slash-separated fields in a quest record; the
// last one holds the remainder verbatim.
const questFields = 5

// Quest parses a quest record "type/title/description/objective/rest".
// Title, description and objective are translatable; type and rest never are.
func Quest(s string) *Template {
	t := &Template{}
	fields := strings.SplitN(s, "/", questFields)
	for i, f := range fields {
		if i > 0 {
			t.literal("/")
		}
		if i >= 1 && i <= 3 {
			t.translatable(f)
		} else {
			t.literal(f)
		}
	}
	return t
}
