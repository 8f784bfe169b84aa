package engine

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// preprocessSource rewrites patch source into something zygomys accepts:
//
//  1. :keyword becomes the string literal "__kw_keyword", so keywords need
//     no global symbols and cannot collide with user definitions.
//  2. kebab-case identifiers become snake_case (set-knob -> set_knob);
//     zygomys would read the hyphen as subtraction.
//  3. ; line comments become // comments.
//
// String literals are copied through untouched.
func preprocessSource(source string) string {
	b := []byte(source)
	out := make([]byte, 0, len(b)+len(b)/4)

	for i := 0; i < len(b); {
		switch c := b[i]; {
		case c == '"':
			j := i + 1
			for j < len(b) && b[j] != '"' {
				if b[j] == '\\' && j+1 < len(b) {
					j++
				}
				j++
			}
			j = min(j+1, len(b))
			out = append(out, b[i:j]...)
			i = j

		case c == '`':
			j := i + 1
			for j < len(b) && b[j] != '`' {
				j++
			}
			j = min(j+1, len(b))
			out = append(out, b[i:j]...)
			i = j

		case c == ';':
			out = append(out, '/', '/')
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				out = append(out, b[i])
				i++
			}

		case c == ':' && i+1 < len(b) && b[i+1] == '=':
			out = append(out, ':', '=')
			i += 2

		case c == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			out = append(out, '"')
			out = append(out, kwPrefix...)
			out = append(out, b[i+1:j]...)
			out = append(out, '"')
			i = j

		case c == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			out = append(out, '_')
			i++

		default:
			out = append(out, c)
			i++
		}
	}
	return string(out)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}
