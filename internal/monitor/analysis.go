package monitor

import "strings"

// ClassifyVerdict maps free-text model output onto a verdict. The rule is a
// raw substring search with YES taking priority over NO; anything containing
// neither is inconclusive. Case-sensitive, matching the prompt's instruction
// to answer in upper case.
func ClassifyVerdict(content string) Verdict {
	if strings.Contains(content, "YES") {
		return VerdictYes
	}
	if strings.Contains(content, "NO") {
		return VerdictNo
	}
	return VerdictEmpty
}
