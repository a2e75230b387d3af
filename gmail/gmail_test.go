package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/International-Combat-Archery-Alliance/bulkemail"
	"google.golang.org/api/googleapi"
)

func namedAddress(t *testing.T, address, name string) *bulkemail.EmailAddress {
	t.Helper()

	a, err := bulkemail.NewNamedEmailAddress(address, name)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return a
}

func buildTestMail(t *testing.T) *bulkemail.Mail {
	t.Helper()

	m := bulkemail.NewMail()
	if err := m.SetFrom(namedAddress(t, "club@example.com", "ICAA")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	subject, err := bulkemail.NewSubject("Hi -name-")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.SetSubject(subject)

	text, err := bulkemail.NewContent(bulkemail.ContentTypePlain, "Hello -name-, registration is open.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.AddContent(text); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	globalHeader, err := bulkemail.NewHeader("X-Club", "icaa")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.AddHeader(globalHeader); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p := bulkemail.NewPersonalization()
	if err := p.AddTo(namedAddress(t, "jane@example.com", "Doe, Jane")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.AddCc(namedAddress(t, "coach@example.com", "")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sub, err := bulkemail.NewSubstitution("-name-", "Jane")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.AddSubstitution(sub); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	envHeader, err := bulkemail.NewHeader("X-Club", "icaa-juniors")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.AddHeader(envHeader); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := m.AddPersonalizations(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	return m
}

func decodeRaw(t *testing.T, raw string) string {
	t.Helper()

	decoded, err := base64.URLEncoding.DecodeString(raw)
	if err != nil {
		t.Fatalf("raw message is not valid base64: %v", err)
	}
	return string(decoded)
}

func TestBuildMessage(t *testing.T) {
	m := buildTestMail(t)
	p := m.Personalizations()[0]

	decoded := decodeRaw(t, buildMessage(m, p).Raw)

	expectedLines := []string{
		"From: ICAA <club@example.com>",
		`To: "Doe, Jane" <jane@example.com>`,
		"Cc: coach@example.com",
		"Subject: Hi Jane",
		"MIME-Version: 1.0",
		"X-Club: icaa-juniors",
		"Content-Type: text/plain; charset=utf-8",
	}
	for _, line := range expectedLines {
		if !strings.Contains(decoded, line) {
			t.Errorf("expected message to contain %q, got:\n%s", line, decoded)
		}
	}

	if !strings.Contains(decoded, "Hello Jane, registration is open.") {
		t.Errorf("expected rendered body, got:\n%s", decoded)
	}
	if strings.Contains(decoded, "-name-") {
		t.Errorf("expected all substitution tags to be rendered, got:\n%s", decoded)
	}
	if strings.Contains(decoded, "X-Club: icaa\r\n") {
		t.Errorf("expected the envelope header to win over the global one, got:\n%s", decoded)
	}
}

func TestBuildMessageMultipartAlternative(t *testing.T) {
	m := buildTestMail(t)

	html, err := bulkemail.NewContent(bulkemail.ContentTypeHTML, "<p>Hello -name-</p>")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.AddContent(html); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	decoded := decodeRaw(t, buildMessage(m, m.Personalizations()[0]).Raw)

	if !strings.Contains(decoded, "Content-Type: multipart/alternative") {
		t.Errorf("expected a multipart/alternative message, got:\n%s", decoded)
	}
	if !strings.Contains(decoded, "<p>Hello Jane</p>") {
		t.Errorf("expected rendered html part, got:\n%s", decoded)
	}
	if !strings.Contains(decoded, "Hello Jane, registration is open.") {
		t.Errorf("expected rendered text part, got:\n%s", decoded)
	}
}

func TestBuildMessageWithAttachments(t *testing.T) {
	m := buildTestMail(t)

	attachment, err := bulkemail.NewAttachment("bracket.pdf", "application/pdf", []byte("fake pdf content"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.AddAttachment(attachment); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	decoded := decodeRaw(t, buildMessage(m, m.Personalizations()[0]).Raw)

	if !strings.Contains(decoded, "Content-Type: multipart/mixed") {
		t.Errorf("expected a multipart/mixed message, got:\n%s", decoded)
	}
	if !strings.Contains(decoded, `Content-Disposition: attachment; filename="bracket.pdf"`) {
		t.Errorf("expected attachment disposition, got:\n%s", decoded)
	}
	if !strings.Contains(decoded, base64.StdEncoding.EncodeToString([]byte("fake pdf content"))) {
		t.Errorf("expected base64 attachment content, got:\n%s", decoded)
	}
}

func TestSend_ValidationBeforeAPI(t *testing.T) {
	sender := &GmailSender{userID: "me"}

	err := sender.Send(context.Background(), bulkemail.NewMail())

	var emailErr *bulkemail.Error
	if !errors.As(err, &emailErr) {
		t.Fatalf("expected *bulkemail.Error, got %T", err)
	}
	if emailErr.Reason != bulkemail.REASON_VALIDATION_ERROR {
		t.Errorf("expected reason %s, got %s", bulkemail.REASON_VALIDATION_ERROR, emailErr.Reason)
	}
}

func TestSend_RejectsTemplateMail(t *testing.T) {
	sender := &GmailSender{userID: "me"}

	m := buildTestMail(t)
	m.SetTemplateID("welcome-v2")

	err := sender.Send(context.Background(), m)

	var emailErr *bulkemail.Error
	if !errors.As(err, &emailErr) {
		t.Fatalf("expected *bulkemail.Error, got %T", err)
	}
	if emailErr.Field != "template_id" {
		t.Errorf("expected field template_id, got %s", emailErr.Field)
	}
}

func TestMapGmailError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedReason bulkemail.ErrorReason
	}{
		{
			name:           "invalid recipient",
			err:            &googleapi.Error{Code: 400, Message: "Invalid recipient address"},
			expectedReason: bulkemail.REASON_INVALID_EMAIL,
		},
		{
			name:           "malformed message",
			err:            &googleapi.Error{Code: 400, Message: "Malformed message body"},
			expectedReason: bulkemail.REASON_MESSAGE_REJECTED,
		},
		{
			name:           "auth failure",
			err:            &googleapi.Error{Code: 401, Message: "Invalid credentials"},
			expectedReason: bulkemail.REASON_SERVICE_ERROR,
		},
		{
			name:           "missing scope",
			err:            &googleapi.Error{Code: 403, Message: "Request had insufficient authentication scopes"},
			expectedReason: bulkemail.REASON_UNVERIFIED_DOMAIN,
		},
		{
			name:           "blocked sender",
			err:            &googleapi.Error{Code: 403, Message: "Sender blocked"},
			expectedReason: bulkemail.REASON_MESSAGE_REJECTED,
		},
		{
			name:           "rate limited",
			err:            &googleapi.Error{Code: 429, Message: "Rate limit exceeded"},
			expectedReason: bulkemail.REASON_RATE_LIMITED,
		},
		{
			name:           "server error",
			err:            &googleapi.Error{Code: 500, Message: "Backend error"},
			expectedReason: bulkemail.REASON_SERVICE_ERROR,
		},
		{
			name:           "unmapped status",
			err:            &googleapi.Error{Code: 418, Message: "teapot"},
			expectedReason: bulkemail.REASON_SERVICE_ERROR,
		},
		{
			name:           "network error",
			err:            errors.New("connection reset by peer"),
			expectedReason: bulkemail.REASON_SERVICE_ERROR,
		},
		{
			name:           "plain error",
			err:            errors.New("something odd"),
			expectedReason: bulkemail.REASON_UNKNOWN,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapGmailError(tt.err)

			var emailErr *bulkemail.Error
			if !errors.As(err, &emailErr) {
				t.Fatalf("expected *bulkemail.Error, got %T", err)
			}
			if emailErr.Reason != tt.expectedReason {
				t.Errorf("expected reason %s, got %s", tt.expectedReason, emailErr.Reason)
			}
		})
	}
}
