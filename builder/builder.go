// Package builder implements the fluent emitter that constructs
// syntactically valid ZCONF source from a sequence of programmatic
// calls, sharing the Key Store's invariants with the parser and
// mirroring its escape/quoting rules in reverse.
package builder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/zconf/zconf/keystore"
	"github.com/zconf/zconf/value"
)

// DumpError is raised immediately on any emit-side failure: an
// unsupported value type, a duplicate key, an invalid key shape, a
// mixed-type array, or a string that cannot be safely encoded. The
// Builder never attempts to repair the output.
type DumpError struct {
	Message string
}

func (e *DumpError) Error() string {
	return fmt.Sprintf("zconf: dump error: %s", e.Message)
}

var unquotedKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

const defaultIndent = "    "

// Builder accumulates an output string and owns its own Key Store so
// that construction-time consistency (uniqueness, array-vs-table
// exclusivity) is enforced exactly as the Parser enforces it on the
// decode side.
type Builder struct {
	sb           strings.Builder
	keys         *keystore.Store
	indent       string
	wroteAnyLine bool
}

// New returns a Builder using the default 4-space indentation width.
func New() *Builder {
	return &Builder{keys: keystore.New(), indent: defaultIndent}
}

// NewWithIndent returns a Builder that prefixes emitted values with
// width spaces instead of the default.
func NewWithIndent(width int) *Builder {
	return &Builder{keys: keystore.New(), indent: strings.Repeat(" ", width)}
}

// AddComment appends a '#' comment line, untouched by the Key Store.
func (b *Builder) AddComment(text string) {
	b.sb.WriteString("# " + text + "\n")
	b.wroteAnyLine = true
}

// AddTable emits a '[dottedName]' header after validating and
// registering dottedName against the Builder's Key Store.
func (b *Builder) AddTable(dottedName string) error {
	name, err := validateDottedName(dottedName)
	if err != nil {
		return err
	}
	if err := b.keys.AddTableKey(name); err != nil {
		return &DumpError{Message: err.Error()}
	}
	b.emitHeader(name, false)
	return nil
}

// AddArrayOfTable emits a '[[dottedName]]' header after validating and
// registering dottedName against the Builder's Key Store.
func (b *Builder) AddArrayOfTable(dottedName string) error {
	name, err := validateDottedName(dottedName)
	if err != nil {
		return err
	}
	if err := b.keys.AddArrayTableKey(name); err != nil {
		return &DumpError{Message: err.Error()}
	}
	b.emitHeader(name, true)
	return nil
}

func (b *Builder) emitHeader(name string, isArrayOfTables bool) {
	if b.wroteAnyLine {
		b.sb.WriteString("\n")
	}
	if isArrayOfTables {
		b.sb.WriteString("[[" + name + "]]\n")
	} else {
		b.sb.WriteString("[" + name + "]\n")
	}
	b.wroteAnyLine = true
}

// AddValue emits 'key = value', quoting key if it is not a valid
// unquoted key, and appending comment as a trailing '#' remark if
// non-empty.
func (b *Builder) AddValue(key string, v value.Value, comment string) error {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return &DumpError{Message: "key must not be empty"}
	}
	if err := checkHomogeneousArray(v); err != nil {
		return &DumpError{Message: err.Error()}
	}
	if err := b.keys.AddKey(key); err != nil {
		return &DumpError{Message: err.Error()}
	}
	encoded, err := encodeValue(v)
	if err != nil {
		return &DumpError{Message: err.Error()}
	}
	keyStr := key
	if !unquotedKeyPattern.MatchString(key) {
		keyStr = `"` + key + `"`
	}
	line := b.indent + keyStr + " = " + encoded
	if comment != "" {
		line += " # " + comment
	}
	b.sb.WriteString(line + "\n")
	b.wroteAnyLine = true
	return nil
}

// GetString returns the accumulated output.
func (b *Builder) GetString() string {
	return b.sb.String()
}

func validateDottedName(dottedName string) (string, error) {
	trimmed := strings.TrimSpace(dottedName)
	if trimmed == "" {
		return "", &DumpError{Message: "table name must not be empty"}
	}
	for _, seg := range strings.Split(trimmed, ".") {
		if !unquotedKeyPattern.MatchString(seg) {
			return "", &DumpError{Message: fmt.Sprintf("table name segment %q is not a valid unquoted key", seg)}
		}
	}
	return trimmed, nil
}

func checkHomogeneousArray(v value.Value) error {
	arr, ok := v.(*value.Array)
	if !ok {
		return nil
	}
	for i := 1; i < len(arr.Elems); i++ {
		if !value.SameTag(arr.Elems[0], arr.Elems[i]) {
			return fmt.Errorf("array has mixed element tags")
		}
	}
	for _, elem := range arr.Elems {
		if err := checkHomogeneousArray(elem); err != nil {
			return err
		}
	}
	return nil
}

func encodeValue(v value.Value) (string, error) {
	switch val := v.(type) {
	case value.Null:
		return "null", nil
	case value.Bool:
		if bool(val) {
			return "true", nil
		}
		return "false", nil
	case value.Integer:
		return strconv.FormatInt(int64(val), 10), nil
	case value.Float:
		return encodeFloat(float64(val)), nil
	case value.Datetime:
		return time.Time(val).UTC().Format("2006-01-02T15:04:05Z"), nil
	case value.String:
		return encodeString(string(val))
	case *value.Array:
		parts := make([]string, len(val.Elems))
		for i, elem := range val.Elems {
			s, err := encodeValue(elem)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return "[" + strings.Join(parts, ", ") + "]", nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}

func encodeFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

var unicode4Re = regexp.MustCompile(`^\\u[0-9A-Fa-f]{4}`)
var unicode8Re = regexp.MustCompile(`^\\U[0-9A-Fa-f]{8}`)

// encodeString normalizes s into a quoted basic string, escaping '\b',
// '\t', '\n', '\f', '\r' and '"'; a backslash is not escaped (see
// below). A string beginning with '@' is
// instead emitted verbatim (minus the '@') between apostrophes as a
// literal string.
//
// After normalization, any remaining unescaped backslash fails the
// string, except a \uXXXX or \UXXXXXXXX sequence already present in
// the input, which is tolerated as a pre-escaped unicode scalar. This
// is asymmetric: a caller cannot supply a literal backslash followed
// by 'u' that is not itself meant as a unicode escape. Known and
// documented rather than fixed.
func encodeString(s string) (string, error) {
	if strings.HasPrefix(s, "@") {
		return "'" + s[1:] + "'", nil
	}
	var sb strings.Builder
	sb.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		switch c {
		case '\\':
			rest := s[i:]
			if m := unicode4Re.FindString(rest); m != "" {
				sb.WriteString(m)
				i += len(m)
				continue
			}
			if m := unicode8Re.FindString(rest); m != "" {
				sb.WriteString(m)
				i += len(m)
				continue
			}
			return "", fmt.Errorf("string contains an unescaped backslash that is not a unicode escape")
		case '\b':
			sb.WriteString(`\b`)
		case '\t':
			sb.WriteString(`\t`)
		case '\n':
			sb.WriteString(`\n`)
		case '\f':
			sb.WriteString(`\f`)
		case '\r':
			sb.WriteString(`\r`)
		case '"':
			sb.WriteString(`\"`)
		default:
			sb.WriteByte(c)
		}
		i++
	}
	sb.WriteByte('"')
	return sb.String(), nil
}
