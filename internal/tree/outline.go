package tree

import (
	"fmt"
	"strings"

	"reportstudio/internal/domain"
)

const outlineTextWidth = 60

// Outline renders t as an indented plain-text listing of sections and blocks.
func Outline(t domain.ContentTree) string {
	var b strings.Builder
	Walk(t, func(s *domain.Section, depth int) bool {
		indent := strings.Repeat("  ", depth)
		flags := []string{string(s.Status)}
		if s.IsLocked {
			flags = append(flags, "locked")
		}
		if s.IsCollapsed {
			flags = append(flags, "collapsed")
		}
		fmt.Fprintf(&b, "%s- %s (%s, %s)\n", indent, s.Title, s.ID, strings.Join(flags, ", "))
		for _, blk := range s.Blocks {
			line := fmt.Sprintf("%s    * %s %s", indent, blk.Type(), blk.ID)
			if text := truncate(blk.Text(), outlineTextWidth); text != "" {
				line += ": " + text
			}
			b.WriteString(line + "\n")
		}
		return true
	})
	return b.String()
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
