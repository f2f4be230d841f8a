package interpolation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// domainPlaceholder matches {{name}}, {{arg0,5}}, {{arg0:N2}}, {{arg0,-5:N2}}.
var domainPlaceholder = regexp.MustCompile(`^\{\{([A-Za-z_][A-Za-z0-9_]*)(,-?[0-9]+)?(:[^{}]*)?\}\}`)

// hostPlaceholder matches {0}, {0,5}, {0:N2}, {0,-5:N2}.
var hostPlaceholder = regexp.MustCompile(`^\{([0-9]+)(,-?[0-9]+)?(:[^{}]*)?\}`)

// ToDomain converts a host composite format string ("Hello {0,5:N2}") to the
// domain syntax ("Hello {{arg0,5:N2}}"). names optionally supplies an explicit
// name per argument index. An escaped host brace becomes a single brace; two
// in a row stay doubled so they never read as a placeholder.
func ToDomain(host string, names ...string) string {
	var sb strings.Builder
	for i := 0; i < len(host); {
		rest := host[i:]
		switch {
		case strings.HasPrefix(rest, "{{{{"), strings.HasPrefix(rest, "}}}}"):
			sb.WriteString(rest[:4])
			i += 4
		case strings.HasPrefix(rest, "{{"):
			sb.WriteByte('{')
			i += 2
		case strings.HasPrefix(rest, "}}"):
			sb.WriteByte('}')
			i += 2
		case rest[0] == '{':
			m := hostPlaceholder.FindStringSubmatch(rest)
			if m == nil {
				sb.WriteByte('{')
				i++
				continue
			}
			idx, _ := strconv.Atoi(m[1])
			name := fmt.Sprintf("arg%d", idx)
			if idx < len(names) && names[idx] != "" {
				name = names[idx]
			}
			sb.WriteString("{{" + name + m[2] + m[3] + "}}")
			i += len(m[0])
		default:
			sb.WriteByte(rest[0])
			i++
		}
	}
	return sb.String()
}

// ToHost converts a domain format string back to host composite format.
// Placeholders named argN map to index N; other names are looked up in names.
func ToHost(domain string, names ...string) (string, error) {
	var sb strings.Builder
	for i := 0; i < len(domain); {
		rest := domain[i:]
		if strings.HasPrefix(rest, "{{{{") || strings.HasPrefix(rest, "}}}}") {
			sb.WriteString(rest[:4])
			i += 4
			continue
		}
		switch rest[0] {
		case '{':
			if m := domainPlaceholder.FindStringSubmatch(rest); m != nil {
				idx, err := argIndex(m[1], names)
				if err != nil {
					return "", err
				}
				sb.WriteString("{" + strconv.Itoa(idx) + m[2] + m[3] + "}")
				i += len(m[0])
				continue
			}
			sb.WriteString("{{")
		case '}':
			sb.WriteString("}}")
		default:
			sb.WriteByte(rest[0])
		}
		i++
	}
	return sb.String(), nil
}

func argIndex(name string, names []string) (int, error) {
	for i, n := range names {
		if n == name {
			return i, nil
		}
	}
	if strings.HasPrefix(name, "arg") {
		if idx, err := strconv.Atoi(name[3:]); err == nil && idx >= 0 {
			return idx, nil
		}
	}
	return 0, fmt.Errorf("unknown placeholder %q", name)
}
