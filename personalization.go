package bulkemail

import "strings"

type substitutionMode int

const (
	modeLegacy substitutionMode = iota
	modeDynamicTemplate
)

// substitutionStore backs both the legacy substitution surface and the
// dynamic-template-data surface. The mode picks the output key at serialize
// time; exactly one of the two keys is ever emitted, or neither when the
// store is empty.
type substitutionStore struct {
	mode substitutionMode
	data map[string]string
}

func (s *substitutionStore) put(key, value string) {
	if s.data == nil {
		s.data = map[string]string{}
	}
	s.data[key] = value
}

func (s *substitutionStore) jsonKey() string {
	if s.mode == modeDynamicTemplate {
		return "dynamic_template_data"
	}
	return "substitutions"
}

// Personalization is one envelope within a multi-recipient send: the
// recipients, headers, substitution data, custom args and schedule that
// apply to that envelope.
type Personalization struct {
	tos        []*EmailAddress
	ccs        []*EmailAddress
	bccs       []*EmailAddress
	subject    Subject
	headers    map[string]string
	subs       substitutionStore
	customArgs map[string]string
	sendAt     SendAt
	sendAtSet  bool
}

func NewPersonalization() *Personalization {
	return &Personalization{}
}

func (p *Personalization) AddTo(addresses ...*EmailAddress) error {
	return appendAddresses(&p.tos, "to", addresses)
}

func (p *Personalization) AddCc(addresses ...*EmailAddress) error {
	return appendAddresses(&p.ccs, "cc", addresses)
}

func (p *Personalization) AddBcc(addresses ...*EmailAddress) error {
	return appendAddresses(&p.bccs, "bcc", addresses)
}

func appendAddresses(list *[]*EmailAddress, field string, addresses []*EmailAddress) error {
	for _, a := range addresses {
		if a == nil || a.Address() == "" {
			return NewValidationError(field, RULE_MISSING_VALUE, "recipient must be a constructed EmailAddress")
		}
	}
	*list = append(*list, addresses...)
	return nil
}

func (p *Personalization) SetSubject(subject Subject) {
	p.subject = subject
}

// SetSubjectText wraps a raw string into a Subject before storing it.
func (p *Personalization) SetSubjectText(text string) error {
	subject, err := NewSubject(text)
	if err != nil {
		return err
	}
	p.subject = subject
	return nil
}

func (p *Personalization) AddHeader(header Header) error {
	if header.Key() == "" {
		return NewValidationError("header", RULE_MISSING_VALUE, "header must be constructed with NewHeader")
	}
	if p.headers == nil {
		p.headers = map[string]string{}
	}
	p.headers[header.Key()] = header.Value()
	return nil
}

func (p *Personalization) AddSubstitution(substitution Substitution) error {
	if substitution.Key() == "" {
		return NewValidationError("substitutions", RULE_MISSING_VALUE, "substitution must be constructed with NewSubstitution")
	}
	p.subs.put(substitution.Key(), substitution.Value())
	return nil
}

// AddDynamicTemplateData writes into the same store as AddSubstitution; the
// two surfaces are not independent. Which output key the data lands under is
// decided solely by SetHasDynamicTemplate.
func (p *Personalization) AddDynamicTemplateData(substitution Substitution) error {
	return p.AddSubstitution(substitution)
}

func (p *Personalization) AddCustomArg(arg CustomArg) error {
	if arg.Key() == "" {
		return NewValidationError("custom_args", RULE_MISSING_VALUE, "custom arg must be constructed with NewCustomArg")
	}
	if p.customArgs == nil {
		p.customArgs = map[string]string{}
	}
	p.customArgs[arg.Key()] = arg.Value()
	return nil
}

func (p *Personalization) SetSendAt(sendAt SendAt) {
	p.sendAt = sendAt
	p.sendAtSet = true
}

func (p *Personalization) SetHasDynamicTemplate(enabled bool) {
	if enabled {
		p.subs.mode = modeDynamicTemplate
	} else {
		p.subs.mode = modeLegacy
	}
}

func (p *Personalization) Tos() []*EmailAddress {
	return p.tos
}

func (p *Personalization) Ccs() []*EmailAddress {
	return p.ccs
}

func (p *Personalization) Bccs() []*EmailAddress {
	return p.bccs
}

func (p *Personalization) Subject() Subject {
	return p.subject
}

func (p *Personalization) Headers() map[string]string {
	return p.headers
}

func (p *Personalization) Substitutions() map[string]string {
	return p.subs.data
}

func (p *Personalization) CustomArgs() map[string]string {
	return p.customArgs
}

func (p *Personalization) SendAt() (SendAt, bool) {
	return p.sendAt, p.sendAtSet
}

func (p *Personalization) HasDynamicTemplate() bool {
	return p.subs.mode == modeDynamicTemplate
}

// RenderText applies the accumulated substitutions to s by literal tag
// replacement. Backends without server-side substitution use this to render
// subjects and bodies before handing the message off.
func (p *Personalization) RenderText(s string) string {
	for tag, replacement := range p.subs.data {
		s = strings.ReplaceAll(s, tag, replacement)
	}
	return s
}

func (p *Personalization) jsonObject() jsonObject {
	obj := jsonObject{}
	obj.set("to", p.tos)
	obj.set("cc", p.ccs)
	obj.set("bcc", p.bccs)
	obj.set("subject", string(p.subject))
	obj.set("headers", p.headers)
	obj.set(p.subs.jsonKey(), p.subs.data)
	obj.set("custom_args", p.customArgs)
	if p.sendAtSet {
		obj["send_at"] = int64(p.sendAt)
	}
	return obj
}

func (p *Personalization) MarshalJSON() ([]byte, error) {
	return marshalObject(p.jsonObject())
}
