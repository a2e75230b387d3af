package bulkemail

import (
	"html"
	"strings"
)

// MaxSubstitutions is the per-recipient substitution limit enforced by the
// send API.
const MaxSubstitutions = 10000

// EmailAddress is a single sender or recipient identity, optionally carrying
// per-recipient personalization hints (substitutions, subject override).
type EmailAddress struct {
	email         string
	name          string
	substitutions map[string]string
	subject       Subject
}

func NewEmailAddress(address string) (*EmailAddress, error) {
	e := &EmailAddress{}
	if err := e.SetEmailAddress(address); err != nil {
		return nil, err
	}
	return e, nil
}

func NewNamedEmailAddress(address, name string) (*EmailAddress, error) {
	e, err := NewEmailAddress(address)
	if err != nil {
		return nil, err
	}
	e.SetName(name)
	return e, nil
}

func (e *EmailAddress) SetEmailAddress(address string) error {
	if address == "" {
		return NewValidationError("email", RULE_EMPTY_VALUE, "email address must not be empty")
	}
	if !isValidEmailAddress(address) {
		return NewValidationError("email", RULE_MALFORMED_EMAIL, "email address must contain a local part and a domain")
	}
	e.email = address
	return nil
}

// SetName stores the display name, quoting it when it would otherwise
// mis-split in an address header. An empty name (before or after quoting)
// normalizes to absent.
func (e *EmailAddress) SetName(name string) {
	e.name = formatDisplayName(name)
}

func (e *EmailAddress) SetSubstitutions(substitutions map[string]string) error {
	if len(substitutions) > MaxSubstitutions {
		return NewValidationError("substitutions", RULE_EXCEEDS_MAX_COUNT, "substitutions must not exceed 10000 entries")
	}
	if substitutions == nil {
		e.substitutions = nil
		return nil
	}
	subs := make(map[string]string, len(substitutions))
	for k, v := range substitutions {
		subs[k] = v
	}
	e.substitutions = subs
	return nil
}

func (e *EmailAddress) SetSubject(subject Subject) {
	e.subject = subject
}

func (e *EmailAddress) Address() string {
	return e.email
}

func (e *EmailAddress) Name() string {
	return e.name
}

func (e *EmailAddress) Substitutions() map[string]string {
	return e.substitutions
}

func (e *EmailAddress) Subject() Subject {
	return e.subject
}

// IsPersonalized reports whether this recipient carries its own substitution
// data or subject override.
func (e *EmailAddress) IsPersonalized() bool {
	return len(e.substitutions) > 0 || e.subject != ""
}

// String formats the address for an address header, "Name <email>" when a
// display name is set. Names containing , or ; were already quoted by
// SetName, so the result splits correctly on the receiving side.
func (e *EmailAddress) String() string {
	if e.name == "" {
		return e.email
	}
	return e.name + " <" + e.email + ">"
}

func (e *EmailAddress) jsonObject() jsonObject {
	obj := jsonObject{}
	obj.set("name", e.name)
	obj.set("email", e.email)
	return obj
}

func (e *EmailAddress) MarshalJSON() ([]byte, error) {
	return marshalObject(e.jsonObject())
}

// formatDisplayName leaves names without a comma or semicolon untouched.
// Names containing either would mis-split in header-style parsing, so they
// are first normalized (HTML entities decoded, backslash escaping stripped,
// undoing any over-escaping from upstream input), then double quotes are
// backslash-escaped and the whole name is wrapped in double quotes. The
// normalize-then-requote order matters for downstream parsing and must not
// be reordered.
func formatDisplayName(name string) string {
	if !strings.ContainsAny(name, ",;") {
		return name
	}
	decoded := stripSlashes(html.UnescapeString(name))
	escaped := strings.ReplaceAll(decoded, `"`, `\"`)
	return `"` + escaped + `"`
}

// stripSlashes removes one level of backslash escaping: \x becomes x and
// \\ becomes \. A trailing lone backslash is dropped.
func stripSlashes(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	escaped := false
	for _, r := range s {
		if !escaped && r == '\\' {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}

// isValidEmailAddress applies the minimal validity rule the send API
// enforces: a non-empty local part and a dotted domain.
func isValidEmailAddress(address string) bool {
	at := strings.LastIndex(address, "@")
	if at < 1 {
		return false
	}
	domain := address[at+1:]
	if domain == "" || !strings.Contains(domain, ".") {
		return false
	}
	if strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return false
	}
	return true
}
