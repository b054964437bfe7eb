package irc

// MatchMask reports whether value matches a glob-style mask. A question mark
// matches any single character, an asterisk matches any run of characters and
// a backslash escapes the character that follows it. Any other character
// matches literally. Masks are matched against user prefixes
// (nick!user@host) for ban and ban-exception membership.
func MatchMask(mask, value string) bool {
	return matchMask([]rune(mask), []rune(value))
}

func matchMask(mask, value []rune) bool {
	mi, vi := 0, 0

	// Position of the last '*' seen, for backtracking.
	starMask, starValue := -1, -1

	for vi < len(value) {
		literal := false
		ch := rune(0)

		if mi < len(mask) {
			ch = mask[mi]
			if ch == '\\' && mi+1 < len(mask) {
				literal = true
				ch = mask[mi+1]
			}
		}

		switch {
		case mi < len(mask) && !literal && ch == '*':
			starMask = mi
			starValue = vi
			mi++
		case mi < len(mask) && ((!literal && ch == '?') || ch == value[vi]):
			if literal {
				mi += 2
			} else {
				mi++
			}
			vi++
		case starMask >= 0:
			// Retry the last asterisk against one more character.
			starValue++
			mi = starMask + 1
			vi = starValue
		default:
			return false
		}
	}

	for mi < len(mask) && mask[mi] == '*' {
		mi++
	}

	return mi == len(mask)
}
