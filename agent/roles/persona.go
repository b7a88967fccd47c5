package roles

import (
	"regexp"
	"strings"
)

// Greeting opens a brand-new session before the first stage reply.
const Greeting = "Hi 👋 I'm Lucy — your business partner! I help hardworking entrepreneurs grow their business and access smart credit."

// roleMentions guards against a handler leaking its internal identity. The
// customer talks to one persona; the specialists stay invisible.
var roleMentions = regexp.MustCompile(`(?i)\b(photo ?verifier|business ?coach|underwriter|specialist agent)\b`)

var blankLines = regexp.MustCompile(`\n{3,}`)

// Persona stitches the segments of a turn reply into Lucy's single voice:
// it joins non-empty segments, strips internal role mentions and collapses
// runs of blank lines. Applied uniformly regardless of which role produced
// the text.
func Persona(segments ...string) string {
	var kept []string
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		kept = append(kept, seg)
	}
	reply := strings.Join(kept, "\n\n")
	reply = roleMentions.ReplaceAllString(reply, "I")
	reply = blankLines.ReplaceAllString(reply, "\n\n")
	return strings.TrimSpace(reply)
}
