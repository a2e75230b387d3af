package awsses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/International-Combat-Archery-Alliance/bulkemail"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/aws/smithy-go"
)

var _ bulkemail.Sender = &AWSSESSender{}

type SESClient interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
	SendBulkEmail(ctx context.Context, params *sesv2.SendBulkEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendBulkEmailOutput, error)
}

type AWSSESSender struct {
	sesClient SESClient
}

func NewAWSSESSender(client SESClient) *AWSSESSender {
	return &AWSSESSender{
		sesClient: client,
	}
}

// Send delivers a mail through SES v2. Template mails go out as a single
// bulk call with one entry per personalization, carrying that envelope's
// substitution data as replacement template data. Plain mails are rendered
// locally per personalization and sent one call each.
func (a *AWSSESSender) Send(ctx context.Context, m *bulkemail.Mail) error {
	if err := m.Validate(); err != nil {
		return err
	}

	if m.TemplateID() != "" {
		return a.sendBulkTemplated(ctx, m)
	}
	return a.sendRendered(ctx, m)
}

func (a *AWSSESSender) sendBulkTemplated(ctx context.Context, m *bulkemail.Mail) error {
	entries := make([]types.BulkEmailEntry, 0, len(m.Personalizations()))
	for _, p := range m.Personalizations() {
		entry, err := bulkEntry(p)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
	}

	_, err := a.sesClient.SendBulkEmail(ctx, &sesv2.SendBulkEmailInput{
		FromEmailAddress: aws.String(m.From().String()),
		ReplyToAddresses: replyToAddresses(m),
		DefaultContent: &types.BulkEmailContent{
			Template: &types.Template{
				TemplateName: aws.String(m.TemplateID()),
			},
		},
		BulkEmailEntries: entries,
	})
	if err != nil {
		return categorizeAWSError(err)
	}

	return nil
}

func bulkEntry(p *bulkemail.Personalization) (types.BulkEmailEntry, error) {
	entry := types.BulkEmailEntry{
		Destination:        destinationFromPersonalization(p),
		ReplacementHeaders: headersToAWS(p.Headers()),
	}

	if len(p.Substitutions()) > 0 {
		data, err := json.Marshal(p.Substitutions())
		if err != nil {
			return types.BulkEmailEntry{}, bulkemail.NewUnknownError("failed to serialize template data", err)
		}
		entry.ReplacementEmailContent = &types.ReplacementEmailContent{
			ReplacementTemplate: &types.ReplacementTemplate{
				ReplacementTemplateData: aws.String(string(data)),
			},
		}
	}

	return entry, nil
}

func (a *AWSSESSender) sendRendered(ctx context.Context, m *bulkemail.Mail) error {
	for _, p := range m.Personalizations() {
		_, err := a.sesClient.SendEmail(ctx, &sesv2.SendEmailInput{
			Content: &types.EmailContent{
				Simple: &types.Message{
					Body: &types.Body{
						Html: renderedContent(m, p, bulkemail.ContentTypeHTML),
						Text: renderedContent(m, p, bulkemail.ContentTypePlain),
					},
					Subject:     utf8Content(p.RenderText(m.SubjectFor(p))),
					Headers:     headersToAWS(p.Headers()),
					Attachments: attachmentsToAWS(m.Attachments()),
				},
			},
			Destination:      destinationFromPersonalization(p),
			FromEmailAddress: aws.String(m.From().String()),
			ReplyToAddresses: replyToAddresses(m),
		})
		if err != nil {
			return categorizeAWSError(err)
		}
	}

	return nil
}

func renderedContent(m *bulkemail.Mail, p *bulkemail.Personalization, contentType string) *types.Content {
	body := m.Body(contentType)
	if body == "" {
		return nil
	}

	return utf8Content(p.RenderText(body))
}

func destinationFromPersonalization(p *bulkemail.Personalization) *types.Destination {
	return &types.Destination{
		ToAddresses:  formatAddresses(p.Tos()),
		CcAddresses:  formatAddresses(p.Ccs()),
		BccAddresses: formatAddresses(p.Bccs()),
	}
}

func formatAddresses(addresses []*bulkemail.EmailAddress) []string {
	if len(addresses) == 0 {
		return nil
	}

	formatted := make([]string, len(addresses))
	for i, a := range addresses {
		formatted[i] = a.String()
	}

	return formatted
}

func replyToAddresses(m *bulkemail.Mail) []string {
	if m.ReplyTo() == nil {
		return nil
	}
	return []string{m.ReplyTo().String()}
}

func headersToAWS(headers map[string]string) []types.MessageHeader {
	if len(headers) == 0 {
		return nil
	}

	awsHeaders := make([]types.MessageHeader, 0, len(headers))
	for name, value := range headers {
		awsHeaders = append(awsHeaders, types.MessageHeader{
			Name:  aws.String(name),
			Value: aws.String(value),
		})
	}

	return awsHeaders
}

func attachmentsToAWS(attachments []*bulkemail.Attachment) []types.Attachment {
	if len(attachments) == 0 {
		return nil
	}

	awsAttachments := make([]types.Attachment, len(attachments))
	for i, a := range attachments {
		awsAttachments[i] = attachmentToAWS(a)
	}

	return awsAttachments
}

func attachmentToAWS(attachment *bulkemail.Attachment) types.Attachment {
	disposition := types.AttachmentContentDispositionAttachment
	if attachment.Disposition() == "inline" {
		disposition = types.AttachmentContentDispositionInline
	}

	awsAttachment := types.Attachment{
		FileName:           aws.String(attachment.Filename()),
		RawContent:         attachment.Content(),
		ContentType:        aws.String(attachment.ContentType()),
		ContentDisposition: disposition,
	}
	if attachment.ContentID() != "" {
		awsAttachment.ContentId = aws.String(attachment.ContentID())
	}

	return awsAttachment
}

func utf8Content(s string) *types.Content {
	return &types.Content{
		Data:    aws.String(s),
		Charset: aws.String("UTF-8"),
	}
}

func categorizeAWSError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "TooManyRequestsException":
			return bulkemail.NewRateLimitedError("sending rate limit exceeded", err)
		case "MessageRejected":
			return bulkemail.NewMessageRejectedError("message rejected by SES", err)
		case "MailFromDomainNotVerifiedException":
			return bulkemail.NewUnverifiedDomainError("sender domain not verified", err)
		case "InvalidParameterValueException":
			return bulkemail.NewInvalidEmailError("invalid email parameter", err)
		case "NotFoundException":
			return bulkemail.NewMessageRejectedError(fmt.Sprintf("SES resource not found: %s", apiErr.ErrorMessage()), err)
		case "ServiceUnavailableException", "InternalServiceErrorException":
			return bulkemail.NewServiceError("AWS SES service error", err)
		}
	}

	return bulkemail.NewUnknownError("failed to send email", err)
}
