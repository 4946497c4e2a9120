package provider

import "strings"

// SnippetLength caps the plain-text preview stored per message.
const SnippetLength = 200

// MakeSnippet collapses whitespace into a short plain-text preview.
// Adapters whose provider supplies a native preview use that instead
// and fall back to this for messages without one.
func MakeSnippet(text string) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	runes := []rune(collapsed)
	if len(runes) <= SnippetLength {
		return collapsed
	}
	return string(runes[:SnippetLength])
}
