package musicxml

// The pre-scan runs before any XML machinery touches the input. It
// rejects documents carrying DOCTYPE or ENTITY declarations outright,
// independent of how the decoder is configured. The check is blunt on
// purpose: a declaration inside a comment or CDATA section still
// rejects the file. Notation files have no business shipping DTDs with
// processing expectations; the schema reference form that engraving
// tools emit is covered by the decoder dropping it unused.

var forbiddenDecls = [][]byte{
	[]byte("doctype"),
	[]byte("entity"),
}

// containsForbiddenDecl reports whether data contains a <!DOCTYPE or
// <!ENTITY declaration, case-insensitively and without allocating.
func containsForbiddenDecl(data []byte) bool {
	for i := 0; i+1 < len(data); i++ {
		if data[i] != '<' || data[i+1] != '!' {
			continue
		}
		rest := data[i+2:]
		for _, decl := range forbiddenDecls {
			if matchesFold(rest, decl) {
				return true
			}
		}
	}
	return false
}

// matchesFold reports whether data begins with word, ASCII
// case-insensitively. The declaration keywords are plain ASCII, so
// byte-level folding is sufficient.
func matchesFold(data, word []byte) bool {
	if len(data) < len(word) {
		return false
	}
	for i := 0; i < len(word); i++ {
		c := data[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != word[i] {
			return false
		}
	}
	return true
}
