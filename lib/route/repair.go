package route

// RepairJSON quotes bare integer object keys, {0:"a",1:"b"} becomes
// {"0":"a","1":"b"}. A key is only rewritten outside of string literals when it
// directly follows '{' or ',' (whitespace allowed) and is followed by ':'.
// Valid JSON is returned unchanged.
func RepairJSON(data []byte) []byte {
	out := make([]byte, 0, len(data)+16)
	inString := false
	escaped := false

	for i := 0; i < len(data); i++ {
		c := data[i]
		out = append(out, c)

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{', ',':
			if end, ok := bareIntKey(data, i+1); ok {
				// keep leading whitespace, then the quoted key
				start := i + 1
				for start < end && isSpace(data[start]) {
					out = append(out, data[start])
					start++
				}
				out = append(out, '"')
				out = append(out, data[start:end]...)
				out = append(out, '"')
				i = end - 1
			}
		}
	}
	return out
}

// bareIntKey checks whether data[pos:] starts with optional whitespace, an
// integer and a ':' (whitespace allowed before it). It returns the index right
// after the integer.
func bareIntKey(data []byte, pos int) (int, bool) {
	i := pos
	for i < len(data) && isSpace(data[i]) {
		i++
	}
	if i < len(data) && data[i] == '-' {
		i++
	}
	digitsStart := i
	for i < len(data) && data[i] >= '0' && data[i] <= '9' {
		i++
	}
	if i == digitsStart {
		return 0, false
	}
	end := i
	for i < len(data) && isSpace(data[i]) {
		i++
	}
	if i >= len(data) || data[i] != ':' {
		return 0, false
	}
	return end, true
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
