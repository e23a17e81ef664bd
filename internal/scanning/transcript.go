package scanning

import "strings"

// transcriptionPrompt is shared by the LLM recognizers. It asks for a plain
// transcription; field extraction happens locally.
const transcriptionPrompt = `Transcribe every line of text on this receipt or invoice exactly as printed.

Rules:
- Output one printed line per output line, from top to bottom
- Keep the original spelling, capitalization, numbers, currency symbols and punctuation
- Keep item rows on a single line, with the name, quantity and price in the order they appear
- Leave an empty line where the receipt has a visible gap between sections
- Do not summarize, translate, correct or reformat anything
- Do not add commentary before or after the transcription
- Do not use markdown code blocks`

// parseTranscript splits a model transcription into lines. A surrounding
// markdown fence is removed along with any blank lines at either end.
func parseTranscript(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSpace(text)

	// Drop an opening fence including its info string (```text, ```plaintext)
	if strings.HasPrefix(text, "```") {
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			text = text[nl+1:]
		} else {
			text = ""
		}
	}
	text = strings.TrimSuffix(strings.TrimRight(text, " \t\n"), "```")
	text = strings.Trim(text, "\n")

	if strings.TrimSpace(text) == "" {
		return []string{}
	}

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return lines
}
