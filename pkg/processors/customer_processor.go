package processors

import (
	"context"

	"github.com/comfforts/logger"

	"github.com/hankgalt/batch-export/pkg/domain"
)

const (
	EmailValidatorProcessor = "email-validator"

	ERR_EMPTY_EMAIL = "empty email"
)

// EmailValidator rejects customers without an email address.
// Every other field passes through unchanged.
type EmailValidator struct{}

// Name of the processor.
func (EmailValidator) Name() string { return EmailValidatorProcessor }

// Process returns c unchanged, or a RejectedError when the email is empty.
// A NULL email column is mapped to "" by the sources, so both cases reject.
func (EmailValidator) Process(ctx context.Context, c domain.Customer) (domain.Customer, error) {
	if c.Email == "" {
		l, err := logger.LoggerFromContext(ctx)
		if err != nil {
			l = logger.GetSlogLogger()
		}
		l.Debug("email validator: rejecting customer", "customer-id", c.ID)
		return c, domain.NewRejectedError(ERR_EMPTY_EMAIL)
	}
	return c, nil
}

var _ domain.Processor[domain.Customer] = EmailValidator{}
