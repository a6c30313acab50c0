package openai

import "strings"

// cleanAnswer strips wrapping the model sometimes adds around an answer.
func cleanAnswer(s string) string {
	s = strings.TrimSpace(s)
	// Remove a markdown fence around the whole answer
	if strings.HasPrefix(s, "```") && strings.HasSuffix(s, "```") && len(s) >= 6 {
		s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], " \t") {
			// Drop a language tag such as ```markdown
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"Answer:", "answer:", "ANSWER:"} {
		s = strings.TrimSpace(strings.TrimPrefix(s, prefix))
	}
	return s
}
