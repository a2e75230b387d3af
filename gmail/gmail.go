package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/International-Combat-Archery-Alliance/bulkemail"
)

var _ bulkemail.Sender = &GmailSender{}

type GmailSender struct {
	service *gmail.Service
	userID  string
}

func NewGmailSender(ctx context.Context, credentialsJSON []byte, userEmail string) (*GmailSender, error) {
	config, err := google.JWTConfigFromJSON(credentialsJSON, gmail.GmailSendScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse service account file: %v", err)
	}

	config.Subject = userEmail

	service, err := gmail.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Gmail client: %v", err)
	}

	return &GmailSender{
		service: service,
		userID:  "me",
	}, nil
}

// Send renders one RFC 822 message per personalization, with that
// envelope's substitutions applied to the subject and bodies, and sends
// each through the Gmail API.
func (g *GmailSender) Send(ctx context.Context, m *bulkemail.Mail) error {
	if err := m.Validate(); err != nil {
		return err
	}
	if m.TemplateID() != "" {
		return bulkemail.NewValidationError("template_id", bulkemail.RULE_MISSING_VALUE, "the Gmail backend has no server-side templates")
	}

	for _, p := range m.Personalizations() {
		message := buildMessage(m, p)

		_, err := g.service.Users.Messages.Send(g.userID, message).Context(ctx).Do()
		if err != nil {
			return mapGmailError(err)
		}
	}

	return nil
}

func buildMessage(m *bulkemail.Mail, p *bulkemail.Personalization) *gmail.Message {
	headers := []string{
		fmt.Sprintf("From: %s", m.From().String()),
		fmt.Sprintf("To: %s", joinAddresses(p.Tos())),
		fmt.Sprintf("Subject: %s", mime.QEncoding.Encode("utf-8", p.RenderText(m.SubjectFor(p)))),
		"MIME-Version: 1.0",
	}

	if len(p.Ccs()) > 0 {
		headers = append(headers, fmt.Sprintf("Cc: %s", joinAddresses(p.Ccs())))
	}

	if len(p.Bccs()) > 0 {
		headers = append(headers, fmt.Sprintf("Bcc: %s", joinAddresses(p.Bccs())))
	}

	if m.ReplyTo() != nil {
		headers = append(headers, fmt.Sprintf("Reply-To: %s", m.ReplyTo().String()))
	}

	for name, value := range mergedHeaders(m, p) {
		headers = append(headers, fmt.Sprintf("%s: %s", name, value))
	}

	htmlBody := p.RenderText(m.Body(bulkemail.ContentTypeHTML))
	textBody := p.RenderText(m.Body(bulkemail.ContentTypePlain))

	var body string
	if htmlBody != "" && textBody != "" {
		boundary := "boundary123456789"
		headers = append(headers, fmt.Sprintf("Content-Type: multipart/alternative; boundary=%s", boundary))

		body = fmt.Sprintf(`
--%s
Content-Type: text/plain; charset=utf-8
Content-Transfer-Encoding: 8bit

%s

--%s
Content-Type: text/html; charset=utf-8
Content-Transfer-Encoding: 8bit

%s

--%s--`, boundary, textBody, boundary, htmlBody, boundary)
	} else if htmlBody != "" {
		headers = append(headers, "Content-Type: text/html; charset=utf-8")
		headers = append(headers, "Content-Transfer-Encoding: 8bit")
		body = htmlBody
	} else {
		headers = append(headers, "Content-Type: text/plain; charset=utf-8")
		headers = append(headers, "Content-Transfer-Encoding: 8bit")
		body = textBody
	}

	if len(m.Attachments()) > 0 {
		return buildMessageWithAttachments(headers, body, m.Attachments())
	}

	raw := strings.Join(headers, "\r\n") + "\r\n\r\n" + body

	return &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(raw)),
	}
}

func buildMessageWithAttachments(headers []string, body string, attachments []*bulkemail.Attachment) *gmail.Message {
	boundary := "mixed_boundary_123456789"

	for i, header := range headers {
		if strings.HasPrefix(header, "Content-Type:") {
			headers[i] = fmt.Sprintf("Content-Type: multipart/mixed; boundary=%s", boundary)
			break
		}
	}
	if !containsContentType(headers) {
		headers = append(headers, fmt.Sprintf("Content-Type: multipart/mixed; boundary=%s", boundary))
	}

	var parts []string

	textPart := fmt.Sprintf(`--%s
Content-Type: text/plain; charset=utf-8
Content-Transfer-Encoding: 8bit

%s`, boundary, body)
	parts = append(parts, textPart)

	for _, attachment := range attachments {
		encodedContent := base64.StdEncoding.EncodeToString(attachment.Content())

		disposition := "attachment"
		if attachment.Disposition() == "inline" {
			disposition = "inline"
		}

		attachmentPart := fmt.Sprintf(`--%s
Content-Type: %s; name="%s"
Content-Disposition: %s; filename="%s"
Content-Transfer-Encoding: base64

%s`, boundary, attachment.ContentType(), attachment.Filename(), disposition, attachment.Filename(), encodedContent)
		parts = append(parts, attachmentPart)
	}

	parts = append(parts, fmt.Sprintf("--%s--", boundary))

	raw := strings.Join(headers, "\r\n") + "\r\n\r\n" + strings.Join(parts, "\r\n")

	return &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(raw)),
	}
}

func joinAddresses(addresses []*bulkemail.EmailAddress) string {
	formatted := make([]string, len(addresses))
	for i, a := range addresses {
		formatted[i] = a.String()
	}
	return strings.Join(formatted, ", ")
}

// mergedHeaders overlays the personalization's headers on the mail's global
// headers, the personalization winning on duplicate keys.
func mergedHeaders(m *bulkemail.Mail, p *bulkemail.Personalization) map[string]string {
	merged := make(map[string]string, len(m.Headers())+len(p.Headers()))
	for name, value := range m.Headers() {
		merged[name] = value
	}
	for name, value := range p.Headers() {
		merged[name] = value
	}
	return merged
}

func containsContentType(headers []string) bool {
	for _, header := range headers {
		if strings.HasPrefix(header, "Content-Type:") {
			return true
		}
	}
	return false
}

func mapGmailError(err error) error {
	if apiErr, ok := err.(*googleapi.Error); ok {
		message := strings.ToLower(apiErr.Message)

		switch apiErr.Code {
		case 400:
			if strings.Contains(message, "invalid") &&
				(strings.Contains(message, "recipient") ||
					strings.Contains(message, "email") ||
					strings.Contains(message, "address")) {
				return bulkemail.NewInvalidEmailError("invalid email address", err)
			}
			if strings.Contains(message, "malformed") || strings.Contains(message, "encoding") {
				return bulkemail.NewMessageRejectedError("invalid message format", err)
			}
			if strings.Contains(message, "too large") || strings.Contains(message, "size") {
				return bulkemail.NewMessageRejectedError("message too large", err)
			}
			return bulkemail.NewMessageRejectedError("invalid request parameters", err)

		case 401:
			return bulkemail.NewServiceError("authentication failed - check service account credentials", err)

		case 403:
			if strings.Contains(message, "scope") || strings.Contains(message, "permission") {
				return bulkemail.NewUnverifiedDomainError("insufficient permissions to send email", err)
			}
			if strings.Contains(message, "domain") {
				return bulkemail.NewUnverifiedDomainError("domain policy prevents sending", err)
			}
			if strings.Contains(message, "blocked") {
				return bulkemail.NewMessageRejectedError("sender blocked by recipient", err)
			}
			return bulkemail.NewUnverifiedDomainError("permission denied", err)

		case 429:
			return bulkemail.NewRateLimitedError("Gmail API rate limit exceeded", err)

		case 500:
			return bulkemail.NewServiceError("internal Gmail server error", err)

		case 503:
			return bulkemail.NewServiceError("Gmail service temporarily unavailable", err)

		case 504:
			return bulkemail.NewServiceError("Gmail API request timeout", err)

		default:
			return bulkemail.NewServiceError(fmt.Sprintf("Gmail API error (HTTP %d)", apiErr.Code), err)
		}
	}

	lowered := strings.ToLower(err.Error())
	if strings.Contains(lowered, "context") && strings.Contains(lowered, "deadline") {
		return bulkemail.NewServiceError("request timeout", err)
	}
	if strings.Contains(lowered, "connection") || strings.Contains(lowered, "network") {
		return bulkemail.NewServiceError("network error", err)
	}

	return bulkemail.NewUnknownError("Gmail API error", err)
}
