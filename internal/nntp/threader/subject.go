package threader

// SimplifySubject strips every leading reply marker ("Re:", "re[2]:",
// "RE(3):" and similar bracketed/parenthesized reply-count variants) along
// with the spaces before and after each one, removes trailing control
// characters (trailing spaces are kept), and collapses the literal
// string "(no subject)" to empty. Threadable implementations use this to
// back SimplifiedSubject, so that messages replying to the same thread
// under slightly different subject decorations still gather together.
func SimplifySubject(subject string) string {
	start := 0
	for {
		start = skipLeadingWhitespace(subject, start)
		next := skipReplyPrefix(subject, start)
		if next == start {
			break
		}
		start = next
	}

	end := trimTrailingWhitespace(subject, start)
	var simplified string
	if start == 0 && end == len(subject) {
		simplified = subject
	} else {
		simplified = subject[start:end]
	}
	if simplified == "(no subject)" {
		return ""
	}
	return simplified
}

func skipLeadingWhitespace(subject string, start int) int {
	for start < len(subject) && subject[start] == ' ' {
		start++
	}
	return start
}

func skipReplyPrefix(subject string, start int) int {
	n := len(subject)
	if start >= n-2 || !isReplyLetters(subject, start) {
		return start
	}
	switch subject[start+2] {
	case ':':
		return start + 3
	case '[', '(':
		i := start + 3
		for i < n && isDigit(subject[i]) {
			i++
		}
		if isValidReplySuffix(subject, i, n) {
			return i + 2
		}
	}
	return start
}

func isReplyLetters(subject string, start int) bool {
	return (subject[start] == 'r' || subject[start] == 'R') &&
		(subject[start+1] == 'e' || subject[start+1] == 'E')
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isValidReplySuffix(subject string, i, n int) bool {
	return i < n-1 && (subject[i] == ']' || subject[i] == ')') && subject[i+1] == ':'
}

func trimTrailingWhitespace(subject string, start int) int {
	end := len(subject)
	for end > start && subject[end-1] < ' ' {
		end--
	}
	return end
}
