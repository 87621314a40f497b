package citation

import (
	"fmt"
	"strings"
)

// ProcessResponse replaces each marker in answer with a numbered superscript
// for its citation. Markers without a citation are removed.
func ProcessResponse(answer string, citations []Citation) string {
	byInstance := make(map[string]Citation, len(citations))
	for _, c := range citations {
		byInstance[c.InstanceID] = c
	}

	var b strings.Builder
	last := 0
	for i, m := range FindMarkers(answer) {
		b.WriteString(strings.TrimRight(answer[last:m.Start], " \t"))
		if c, ok := byInstance[instanceID(i)]; ok {
			fmt.Fprintf(&b, `<sup class="citation" data-citation="%d" data-instance="%s">[%d]</sup>`,
				c.CitationIndex, c.InstanceID, c.CitationIndex)
		}
		last = m.End
	}
	b.WriteString(answer[last:])
	return b.String()
}
