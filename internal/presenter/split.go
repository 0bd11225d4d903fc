package presenter

import (
	"regexp"
	"strings"
)

// item matches a numbered line: indent, optional heading or bold prefix,
// the number and its delimiter.
var item = regexp.MustCompile(`^(\s*)(#+\s*|\*\*)?(\d+)(\)|\.(?:\s|\*|$))`)

// sublist tracks a numbered list opened inside section 2, such as the
// TOP-3 vulnerabilities, so its third entry is not taken for section 3.
type sublist struct {
	open   bool
	indent int
	delim  string
}

// Split separates a critique into its summary (sections 1 and 2) and the
// remaining detail, starting at the line that opens section 3. Without such a
// line the whole text is the summary.
func Split(text string) (summary, detail string) {
	text = strings.TrimSpace(text)
	lines := strings.Split(text, "\n")

	inSection2 := false
	var list sublist
	for i, line := range lines {
		m := item.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		indent, decorated, num, delim := len(m[1]), m[2] != "", m[3], m[4][:1]
		switch num {
		case "2":
			if !inSection2 && !list.open {
				inSection2 = true
				continue
			}
		case "1":
			if inSection2 && !list.open && !decorated {
				list = sublist{open: true, indent: indent, delim: delim}
				continue
			}
		case "3":
			if list.open && !decorated && delim == list.delim && indent >= list.indent {
				list.open = false
				inSection2 = false
				continue
			}
			return strings.TrimSpace(strings.Join(lines[:i], "\n")),
				strings.TrimSpace(strings.Join(lines[i:], "\n"))
		}
	}
	return text, ""
}
