package nbt

import (
	"regexp"
	"strconv"
	"strings"
)

var unquotedKey = regexp.MustCompile(`^[A-Za-z0-9_\-.+]+$`)

// ToSNBT renders t in the human-readable stringified NBT form used by the
// game's text commands: numeric type suffixes (b/s/L/f/d, int has none),
// double-quoted strings, typed-array prefixes (B;/I;/L;) on arrays, and
// {key:value,...} compounds with keys quoted only when they contain
// characters outside [A-Za-z0-9_\-.+].
func ToSNBT(t Tag) string {
	var sb strings.Builder
	writeSNBT(&sb, t)
	return sb.String()
}

func writeSNBT(sb *strings.Builder, t Tag) {
	switch v := t.(type) {
	case End:
		// TAG_End has no SNBT literal and renders as the empty string.
	case Byte:
		sb.WriteString(strconv.FormatInt(int64(v), 10))
		sb.WriteByte('b')
	case Short:
		sb.WriteString(strconv.FormatInt(int64(v), 10))
		sb.WriteByte('s')
	case Int:
		sb.WriteString(strconv.FormatInt(int64(v), 10))
	case Long:
		sb.WriteString(strconv.FormatInt(int64(v), 10))
		sb.WriteByte('L')
	case Float:
		sb.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
		sb.WriteByte('f')
	case Double:
		sb.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 64))
		sb.WriteByte('d')
	case String:
		writeSNBTString(sb, string(v))
	case ByteArray:
		sb.WriteString("[B;")
		for i, b := range v {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.FormatInt(int64(b), 10))
			sb.WriteByte('b')
		}
		sb.WriteByte(']')
	case IntArray:
		sb.WriteString("[I;")
		for i, x := range v {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.FormatInt(int64(x), 10))
		}
		sb.WriteByte(']')
	case LongArray:
		sb.WriteString("[L;")
		for i, x := range v {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(strconv.FormatInt(x, 10))
			sb.WriteByte('L')
		}
		sb.WriteByte(']')
	case List:
		sb.WriteByte('[')
		for i, e := range v.Elems {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeSNBT(sb, e)
		}
		sb.WriteByte(']')
	case Compound:
		sb.WriteByte('{')
		first := true
		v.Range(func(name string, value Tag) bool {
			if !first {
				sb.WriteByte(',')
			}
			first = false
			writeSNBTKey(sb, name)
			sb.WriteByte(':')
			writeSNBT(sb, value)
			return true
		})
		sb.WriteByte('}')
	}
}

func writeSNBTKey(sb *strings.Builder, name string) {
	if unquotedKey.MatchString(name) {
		sb.WriteString(name)
		return
	}
	writeSNBTString(sb, name)
}

func writeSNBTString(sb *strings.Builder, s string) {
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
}

// GoString renders t for debug/human inspection rather than as a
// machine-readable SNBT literal: unlike ToSNBT, a bare TAG_End value prints
// as the sentinel "<TAG_End>" instead of the empty string.
func GoString(t Tag) string {
	if _, ok := t.(End); ok {
		return "<TAG_End>"
	}
	return ToSNBT(t)
}
