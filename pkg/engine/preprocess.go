package engine

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// preprocessSource rewrites solid script source into something zygomys
// accepts:
//
//   - :keyword becomes the string literal "__kw_keyword", so keywords never
//     collide with script variables of the same name.
//   - kebab-case identifiers become snake_case (zygomys reads a hyphen as
//     subtraction).
//   - ; and ;; line comments become // comments.
//
// String literals (double-quoted and backtick) are copied untouched.
func preprocessSource(source string) string {
	p := preprocessor{src: []byte(source)}
	p.out = make([]byte, 0, len(source)+len(source)/4)
	for p.i < len(p.src) {
		switch c := p.src[p.i]; {
		case c == '"':
			p.copyQuoted('"', true)
		case c == '`':
			p.copyQuoted('`', false)
		case c == ';':
			p.comment()
		case c == ':' && p.peek(1) == '=':
			p.out = append(p.out, ':', '=')
			p.i += 2
		case c == ':' && isLetter(p.peek(1)):
			p.keyword()
		case c == '-' && p.i > 0 && isIdentChar(p.src[p.i-1]) && isLetter(p.peek(1)):
			p.out = append(p.out, '_')
			p.i++
		default:
			p.out = append(p.out, c)
			p.i++
		}
	}
	return string(p.out)
}

type preprocessor struct {
	src []byte
	out []byte
	i   int
}

// peek returns the byte n positions ahead, or 0 past the end.
func (p *preprocessor) peek(n int) byte {
	if p.i+n < len(p.src) {
		return p.src[p.i+n]
	}
	return 0
}

// copyQuoted copies a quoted literal including its delimiters.
func (p *preprocessor) copyQuoted(delim byte, escapes bool) {
	p.out = append(p.out, delim)
	p.i++
	for p.i < len(p.src) && p.src[p.i] != delim {
		if escapes && p.src[p.i] == '\\' && p.i+1 < len(p.src) {
			p.out = append(p.out, p.src[p.i], p.src[p.i+1])
			p.i += 2
			continue
		}
		p.out = append(p.out, p.src[p.i])
		p.i++
	}
	if p.i < len(p.src) {
		p.out = append(p.out, delim)
		p.i++
	}
}

func (p *preprocessor) comment() {
	p.out = append(p.out, '/', '/')
	for p.i < len(p.src) && p.src[p.i] == ';' {
		p.i++
	}
	for p.i < len(p.src) && p.src[p.i] != '\n' {
		p.out = append(p.out, p.src[p.i])
		p.i++
	}
}

func (p *preprocessor) keyword() {
	j := p.i + 1
	for j < len(p.src) && isKWChar(p.src[j]) {
		j++
	}
	p.out = append(p.out, '"')
	p.out = append(p.out, kwPrefix...)
	p.out = append(p.out, p.src[p.i+1:j]...)
	p.out = append(p.out, '"')
	p.i = j
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
