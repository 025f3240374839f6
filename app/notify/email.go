package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/wneessen/go-mail"
)

type EmailConfig struct {
	SMTPHost string
	SMTPPort int
	Username string
	Password string
	From     string
	To       string
}

// EmailSender delivers the booking confirmation mail to the box office
// address. A missing SMTP config disables sending without being an error;
// the kiosk keeps working offline.
type EmailSender struct {
	cfg EmailConfig
}

func NewEmailSender(cfg EmailConfig) *EmailSender {
	return &EmailSender{cfg: cfg}
}

func (s *EmailSender) Enabled() bool {
	return s.cfg.SMTPHost != "" && s.cfg.Username != "" && s.cfg.From != "" && s.cfg.To != ""
}

type BookingConfirmation struct {
	Name          string
	Phone         string
	PropName      string
	AttendeeCount int
	TotalAmount   int64
	BusService    bool
}

func (s *EmailSender) SendBookingConfirmation(ctx context.Context, c BookingConfirmation) error {
	if !s.Enabled() {
		return errors.New("email sender is not configured")
	}

	msg := mail.NewMsg()
	if err := msg.From(s.cfg.From); err != nil {
		return err
	}
	if err := msg.To(s.cfg.To); err != nil {
		return err
	}
	msg.Subject(fmt.Sprintf("[예매완료] %s - %s", c.PropName, c.Name))
	msg.SetBodyString(mail.TypeTextPlain, s.confirmationBody(c))

	client, err := mail.NewClient(s.cfg.SMTPHost,
		mail.WithPort(s.cfg.SMTPPort),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.Username),
		mail.WithPassword(s.cfg.Password),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	)
	if err != nil {
		return err
	}

	return client.DialAndSendWithContext(ctx, msg)
}

func (s *EmailSender) confirmationBody(c BookingConfirmation) string {
	bus := "No"
	if c.BusService {
		bus = "Yes"
	}
	return "Booking confirmed\n" +
		"\nName: " + c.Name +
		"\nPhone: " + c.Phone +
		"\nItem: " + c.PropName +
		"\nAttendees: " + strconv.Itoa(c.AttendeeCount) +
		"\nTotal: " + strconv.FormatInt(c.TotalAmount, 10) + " KRW" +
		"\nBus service: " + bus + "\n"
}
