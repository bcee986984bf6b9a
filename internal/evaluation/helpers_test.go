package evaluation

import "strings"

var phonetic = strings.Fields("alpha bravo charlie delta echo foxtrot golf hotel india juliett " +
	"kilo lima mike november oscar papa quebec romeo sierra tango uniform victor whiskey xray yankee zulu")

// cleanDescription returns exactly n characters of prose that trips neither
// the denylist nor the repetition check.
func cleanDescription(n int) string {
	var b strings.Builder
	for i := 0; b.Len() < n; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(phonetic[i%len(phonetic)])
	}
	return b.String()[:n]
}
