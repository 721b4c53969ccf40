package mail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
)

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender sends mail through the Amazon SES v2 API.
type SESSender struct {
	client    sesAPI
	fromEmail string
	fromName  string
	log       *slog.Logger
}

// NewSESSender loads the default AWS credential chain for region.
func NewSESSender(ctx context.Context, region, fromEmail, fromName string, log *slog.Logger) (*SESSender, error) {
	if fromEmail == "" {
		return nil, errors.New("SES_FROM_EMAIL must be set")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	log.Info("email service enabled", "provider", "ses", "from", fromEmail, "region", region)
	return newSESSender(sesv2.NewFromConfig(cfg), fromEmail, fromName, log), nil
}

func newSESSender(client sesAPI, fromEmail, fromName string, log *slog.Logger) *SESSender {
	return &SESSender{client: client, fromEmail: fromEmail, fromName: fromName, log: log}
}

// Send delivers a plain-text message through the SES v2 SendEmail API.
func (s *SESSender) Send(ctx context.Context, to, subject, body string) error {
	from := s.fromEmail
	if s.fromName != "" {
		from = fmt.Sprintf("%s <%s>", headerSafe(s.fromName), s.fromEmail)
	}
	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(headerSafe(subject)), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	s.log.DebugContext(ctx, "email sent", "provider", "ses", "message_id", aws.ToString(out.MessageId))
	return nil
}
