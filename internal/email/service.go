package email

import (
	"fmt"

	"github.com/example/marketflow/internal/domain/model"
	"github.com/shopspring/decimal"
	"gopkg.in/gomail.v2"
)

// Mailer delivers one HTML message.
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// SMTPMailer sends through an SMTP relay
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer creates a mailer; empty user skips authentication.
func NewSMTPMailer(host string, port int, user, password, from string) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, port, user, password),
		from:   from,
	}
}

func (m *SMTPMailer) Send(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)
	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// Service renders and sends customer notifications
type Service struct {
	mailer Mailer
}

// NewService creates a new email service
func NewService(mailer Mailer) *Service {
	return &Service{mailer: mailer}
}

// SendOrderConfirmation sends an order confirmation email
func (s *Service) SendOrderConfirmation(to, orderNumber string, total decimal.Decimal, items []model.OrderItem) error {
	subject := fmt.Sprintf("Order confirmation %s", orderNumber)
	return s.mailer.Send(to, subject, BuildOrderConfirmationBody(orderNumber, total, items))
}

// SendInvoice sends the invoice issued on delivery
func (s *Service) SendInvoice(to string, inv model.Invoice) error {
	subject := fmt.Sprintf("Invoice %s for order %s", inv.InvoiceNumber, inv.Payload.OrderNumber)
	return s.mailer.Send(to, subject, BuildInvoiceBody(inv))
}
