package extraction

// LooksLikeDate reports whether line contains a numeric or textual date shape
func (e *Engine) LooksLikeDate(line string) bool {
	return e.dateShape.MatchString(line)
}

// LooksLikeAmount reports whether line contains a two-decimal amount shape
func (e *Engine) LooksLikeAmount(line string) bool {
	return e.amount.MatchString(line)
}

// LooksLikeLabel reports whether line contains receipt field jargon such as
// "total" or "qty".
func (e *Engine) LooksLikeLabel(line string) bool {
	return e.fieldLabel.MatchString(line)
}

// LooksLikeDate uses the default engine
func LooksLikeDate(line string) bool { return defaultEngine.LooksLikeDate(line) }

// LooksLikeAmount uses the default engine
func LooksLikeAmount(line string) bool { return defaultEngine.LooksLikeAmount(line) }

// LooksLikeLabel uses the default engine
func LooksLikeLabel(line string) bool { return defaultEngine.LooksLikeLabel(line) }
