package joran

import (
	"os"
	"strings"
)

// undefinedSuffix marks a variable that resolved nowhere
const undefinedSuffix = "_IS_UNDEFINED"

// Subst replaces ${NAME} and ${NAME:-default} references in raw. Names resolve
// against pass properties, context properties, then the process environment.
// An unresolved name without default becomes NAME_IS_UNDEFINED; an unterminated
// reference is kept verbatim.
func (ic *InterpretationContext) Subst(raw string) string {
	if !strings.Contains(raw, "${") {
		return raw
	}

	var b strings.Builder
	b.Grow(len(raw))
	for {
		start := strings.Index(raw, "${")
		if start < 0 {
			b.WriteString(raw)
			break
		}
		end := strings.IndexByte(raw[start+2:], '}')
		if end < 0 {
			b.WriteString(raw)
			break
		}
		b.WriteString(raw[:start])
		b.WriteString(ic.lookup(raw[start+2 : start+2+end]))
		raw = raw[start+2+end+1:]
	}
	return b.String()
}

func (ic *InterpretationContext) lookup(ref string) string {
	name, def, hasDefault := strings.Cut(ref, ":-")
	name = strings.TrimSpace(name)

	if v, ok := ic.Property(name); ok {
		return v
	}
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	if hasDefault {
		return def
	}
	return name + undefinedSuffix
}
