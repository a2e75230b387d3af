package bulkemail

import (
	"context"
	"encoding/base64"
)

// MaxCategories is the per-message category limit enforced by the send API.
const MaxCategories = 10

const (
	ContentTypePlain = "text/plain"
	ContentTypeHTML  = "text/html"
)

// Content is one body part of a message.
type Content struct {
	contentType string
	value       string
}

func NewContent(contentType, value string) (Content, error) {
	if contentType == "" {
		return Content{}, NewValidationError("content", RULE_EMPTY_VALUE, "content type must not be empty")
	}
	if value == "" {
		return Content{}, NewValidationError("content", RULE_EMPTY_VALUE, "content value must not be empty")
	}
	return Content{contentType: contentType, value: value}, nil
}

func (c Content) Type() string {
	return c.contentType
}

func (c Content) Value() string {
	return c.value
}

func (c Content) jsonObject() jsonObject {
	obj := jsonObject{}
	obj.set("type", c.contentType)
	obj.set("value", c.value)
	return obj
}

func (c Content) MarshalJSON() ([]byte, error) {
	return marshalObject(c.jsonObject())
}

// Attachment is a file attached to the whole message.
type Attachment struct {
	filename    string
	contentType string
	content     []byte
	disposition string
	contentID   string
}

func NewAttachment(filename, contentType string, content []byte) (*Attachment, error) {
	if filename == "" {
		return nil, NewValidationError("attachment", RULE_EMPTY_VALUE, "attachment filename must not be empty")
	}
	if contentType == "" {
		return nil, NewValidationError("attachment", RULE_EMPTY_VALUE, "attachment content type must not be empty")
	}
	if len(content) == 0 {
		return nil, NewValidationError("attachment", RULE_EMPTY_VALUE, "attachment content must not be empty")
	}
	return &Attachment{
		filename:    filename,
		contentType: contentType,
		content:     content,
	}, nil
}

// SetInline marks the attachment for inline display, referenced from HTML
// bodies by the given content ID.
func (a *Attachment) SetInline(contentID string) {
	a.disposition = "inline"
	a.contentID = contentID
}

func (a *Attachment) Filename() string {
	return a.filename
}

func (a *Attachment) ContentType() string {
	return a.contentType
}

func (a *Attachment) Content() []byte {
	return a.content
}

func (a *Attachment) Disposition() string {
	return a.disposition
}

func (a *Attachment) ContentID() string {
	return a.contentID
}

func (a *Attachment) jsonObject() jsonObject {
	obj := jsonObject{}
	obj.set("filename", a.filename)
	obj.set("type", a.contentType)
	if len(a.content) > 0 {
		obj["content"] = base64.StdEncoding.EncodeToString(a.content)
	}
	obj.set("disposition", a.disposition)
	obj.set("content_id", a.contentID)
	return obj
}

func (a *Attachment) MarshalJSON() ([]byte, error) {
	return marshalObject(a.jsonObject())
}

// Mail is the whole send request: global message fields plus one
// personalization per envelope.
type Mail struct {
	from             *EmailAddress
	replyTo          *EmailAddress
	subject          Subject
	personalizations []*Personalization
	contents         []Content
	attachments      []*Attachment
	headers          map[string]string
	customArgs       map[string]string
	categories       []string
	templateID       string
	sendAt           SendAt
	sendAtSet        bool
}

func NewMail() *Mail {
	return &Mail{}
}

func (m *Mail) SetFrom(address *EmailAddress) error {
	if address == nil || address.Address() == "" {
		return NewValidationError("from", RULE_MISSING_VALUE, "from must be a constructed EmailAddress")
	}
	m.from = address
	return nil
}

func (m *Mail) SetReplyTo(address *EmailAddress) error {
	if address == nil || address.Address() == "" {
		return NewValidationError("reply_to", RULE_MISSING_VALUE, "reply_to must be a constructed EmailAddress")
	}
	m.replyTo = address
	return nil
}

func (m *Mail) SetSubject(subject Subject) {
	m.subject = subject
}

func (m *Mail) AddPersonalizations(personalizations ...*Personalization) error {
	for _, p := range personalizations {
		if p == nil {
			return NewValidationError("personalizations", RULE_MISSING_VALUE, "personalization must not be nil")
		}
	}
	m.personalizations = append(m.personalizations, personalizations...)
	return nil
}

func (m *Mail) AddContent(contents ...Content) error {
	for _, c := range contents {
		if c.Type() == "" {
			return NewValidationError("content", RULE_MISSING_VALUE, "content must be constructed with NewContent")
		}
	}
	m.contents = append(m.contents, contents...)
	return nil
}

func (m *Mail) AddAttachment(attachment *Attachment) error {
	if attachment == nil || attachment.Filename() == "" {
		return NewValidationError("attachments", RULE_MISSING_VALUE, "attachment must be constructed with NewAttachment")
	}
	m.attachments = append(m.attachments, attachment)
	return nil
}

func (m *Mail) AddHeader(header Header) error {
	if header.Key() == "" {
		return NewValidationError("headers", RULE_MISSING_VALUE, "header must be constructed with NewHeader")
	}
	if m.headers == nil {
		m.headers = map[string]string{}
	}
	m.headers[header.Key()] = header.Value()
	return nil
}

func (m *Mail) AddCustomArg(arg CustomArg) error {
	if arg.Key() == "" {
		return NewValidationError("custom_args", RULE_MISSING_VALUE, "custom arg must be constructed with NewCustomArg")
	}
	if m.customArgs == nil {
		m.customArgs = map[string]string{}
	}
	m.customArgs[arg.Key()] = arg.Value()
	return nil
}

func (m *Mail) AddCategory(category string) error {
	if category == "" {
		return NewValidationError("categories", RULE_EMPTY_VALUE, "category must not be empty")
	}
	if len(m.categories) >= MaxCategories {
		return NewValidationError("categories", RULE_EXCEEDS_MAX_COUNT, "categories must not exceed 10 entries")
	}
	m.categories = append(m.categories, category)
	return nil
}

func (m *Mail) SetTemplateID(id string) {
	m.templateID = id
}

func (m *Mail) SetSendAt(sendAt SendAt) {
	m.sendAt = sendAt
	m.sendAtSet = true
}

func (m *Mail) From() *EmailAddress {
	return m.from
}

func (m *Mail) ReplyTo() *EmailAddress {
	return m.replyTo
}

func (m *Mail) Subject() Subject {
	return m.subject
}

func (m *Mail) Personalizations() []*Personalization {
	return m.personalizations
}

func (m *Mail) Contents() []Content {
	return m.contents
}

func (m *Mail) Attachments() []*Attachment {
	return m.attachments
}

func (m *Mail) Headers() map[string]string {
	return m.headers
}

func (m *Mail) CustomArgs() map[string]string {
	return m.customArgs
}

func (m *Mail) Categories() []string {
	return m.categories
}

func (m *Mail) TemplateID() string {
	return m.templateID
}

func (m *Mail) SendAt() (SendAt, bool) {
	return m.sendAt, m.sendAtSet
}

// SubjectFor resolves the subject for one envelope: the personalization's
// own subject when set, the global subject otherwise.
func (m *Mail) SubjectFor(p *Personalization) string {
	if p.Subject() != "" {
		return string(p.Subject())
	}
	return string(m.subject)
}

// Body returns the value of the first content part with the given type, or
// an empty string when there is none.
func (m *Mail) Body(contentType string) string {
	for _, c := range m.contents {
		if c.Type() == contentType {
			return c.Value()
		}
	}
	return ""
}

// Validate checks that the mail is complete enough to hand to a Sender. It
// runs the same checks every backend would otherwise duplicate.
func (m *Mail) Validate() error {
	if m.from == nil {
		return NewValidationError("from", RULE_MISSING_VALUE, "from address is required")
	}
	if len(m.personalizations) == 0 {
		return NewValidationError("personalizations", RULE_MISSING_VALUE, "at least one personalization is required")
	}
	for _, p := range m.personalizations {
		if len(p.Tos())+len(p.Ccs())+len(p.Bccs()) == 0 {
			return NewValidationError("personalizations", RULE_MISSING_VALUE, "every personalization needs at least one recipient")
		}
	}
	if m.templateID != "" {
		return nil
	}
	if len(m.contents) == 0 {
		return NewValidationError("content", RULE_MISSING_VALUE, "mail body is required when no template is set")
	}
	for _, p := range m.personalizations {
		if m.SubjectFor(p) == "" {
			return NewValidationError("subject", RULE_MISSING_VALUE, "subject is required when no template is set")
		}
	}
	return nil
}

func (m *Mail) jsonObject() jsonObject {
	obj := jsonObject{}
	if m.from != nil {
		obj.set("from", m.from.jsonObject())
	}
	if m.replyTo != nil {
		obj.set("reply_to", m.replyTo.jsonObject())
	}
	obj.set("subject", string(m.subject))

	var envelopes []jsonObject
	for _, p := range m.personalizations {
		if env := p.jsonObject(); len(env) > 0 {
			envelopes = append(envelopes, env)
		}
	}
	obj.set("personalizations", envelopes)

	obj.set("content", m.contents)
	obj.set("attachments", m.attachments)
	obj.set("headers", m.headers)
	obj.set("custom_args", m.customArgs)
	obj.set("categories", m.categories)
	obj.set("template_id", m.templateID)
	if m.sendAtSet {
		obj["send_at"] = int64(m.sendAt)
	}
	return obj
}

func (m *Mail) MarshalJSON() ([]byte, error) {
	return marshalObject(m.jsonObject())
}

// Sender delivers a fully built mail through one provider backend.
type Sender interface {
	Send(ctx context.Context, m *Mail) error
}
