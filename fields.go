package bulkemail

// Subject is a validated mail subject line. The zero value means "not set".
type Subject string

func NewSubject(subject string) (Subject, error) {
	if subject == "" {
		return "", NewValidationError("subject", RULE_EMPTY_VALUE, "subject must not be empty")
	}
	return Subject(subject), nil
}

func (s Subject) String() string {
	return string(s)
}

// Header is a single mail header. Keys overwrite on duplicate insertion.
type Header struct {
	key   string
	value string
}

func NewHeader(key, value string) (Header, error) {
	if key == "" {
		return Header{}, NewValidationError("header", RULE_EMPTY_VALUE, "header key must not be empty")
	}
	if value == "" {
		return Header{}, NewValidationError("header", RULE_EMPTY_VALUE, "header value must not be empty")
	}
	return Header{key: key, value: value}, nil
}

func (h Header) Key() string {
	return h.key
}

func (h Header) Value() string {
	return h.value
}

// Substitution is a single tag to replacement-text pair. An empty replacement
// is allowed: substituting a tag away entirely is a legitimate use.
type Substitution struct {
	key   string
	value string
}

func NewSubstitution(key, value string) (Substitution, error) {
	if key == "" {
		return Substitution{}, NewValidationError("substitution", RULE_EMPTY_VALUE, "substitution key must not be empty")
	}
	return Substitution{key: key, value: value}, nil
}

func (s Substitution) Key() string {
	return s.key
}

func (s Substitution) Value() string {
	return s.value
}

// CustomArg is an opaque key/value pair echoed back by the provider in
// delivery events.
type CustomArg struct {
	key   string
	value string
}

func NewCustomArg(key, value string) (CustomArg, error) {
	if key == "" {
		return CustomArg{}, NewValidationError("custom_arg", RULE_EMPTY_VALUE, "custom arg key must not be empty")
	}
	if value == "" {
		return CustomArg{}, NewValidationError("custom_arg", RULE_EMPTY_VALUE, "custom arg value must not be empty")
	}
	return CustomArg{key: key, value: value}, nil
}

func (c CustomArg) Key() string {
	return c.key
}

func (c CustomArg) Value() string {
	return c.value
}

// SendAt is a scheduled delivery time as a Unix timestamp in seconds.
type SendAt int64

func NewSendAt(timestamp int64) (SendAt, error) {
	if timestamp < 0 {
		return 0, NewValidationError("send_at", RULE_OUT_OF_RANGE, "send_at must be a non-negative unix timestamp")
	}
	return SendAt(timestamp), nil
}

func (t SendAt) Unix() int64 {
	return int64(t)
}
