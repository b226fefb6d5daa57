package services

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"
	"os"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/velmart/storefront-api/models"
)

// Mailer sends transactional mail over SMTP. It implements OrderNotifier:
// after an order finalizes it looks up the customer, renders the invoice and
// mails it, all best-effort.
type Mailer struct {
	db     *gorm.DB
	log    *zap.Logger
	host   string
	port   string
	user   string
	pass   string
	sender string
}

func NewMailer(db *gorm.DB, log *zap.Logger) *Mailer {
	return &Mailer{
		db:     db,
		log:    log,
		host:   os.Getenv("SMTP_HOST"),
		port:   os.Getenv("SMTP_PORT"),
		user:   os.Getenv("SMTP_USER"),
		pass:   os.Getenv("SMTP_PASSWORD"),
		sender: os.Getenv("SMTP_SENDER"),
	}
}

func (m *Mailer) configured() bool {
	return m.host != "" && m.port != "" && m.sender != ""
}

// OrderConfirmed mails the invoice for a finalized order. Failures are logged
// with the order reference, never propagated: the order is already committed.
func (m *Mailer) OrderConfirmed(order models.Order) {
	var user models.User
	if err := m.db.First(&user, "id = ?", order.UserID).Error; err != nil {
		m.log.Warn("invoice mail skipped, user lookup failed",
			zap.String("reference", order.Reference), zap.Error(err))
		return
	}

	invoice, err := RenderInvoice(order)
	if err != nil {
		m.log.Warn("invoice rendering failed",
			zap.String("reference", order.Reference), zap.Error(err))
		return
	}

	subject := fmt.Sprintf("Your order %s is confirmed", order.Reference)
	if err := m.Send(user.Email, subject, string(invoice)); err != nil {
		m.log.Warn("invoice mail delivery failed",
			zap.String("reference", order.Reference),
			zap.String("user_id", order.UserID),
			zap.Error(err))
		return
	}
	m.log.Info("invoice mailed",
		zap.String("reference", order.Reference), zap.String("to", user.Email))
}

// SendOTP mails a one-time verification code during registration.
func (m *Mailer) SendOTP(ctx context.Context, to, code string) error {
	body := fmt.Sprintf("<p>Your verification code is <strong>%s</strong>. It expires in 10 minutes.</p>", code)
	return m.Send(to, "Verify your account", body)
}

// Send delivers a single HTML mail.
func (m *Mailer) Send(to, subject, htmlBody string) error {
	if !m.configured() {
		return errors.New("smtp not configured")
	}

	msg := strings.Join([]string{
		"From: " + m.sender,
		"To: " + to,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=\"UTF-8\"",
		"",
		htmlBody,
	}, "\r\n")

	addr := m.host + ":" + m.port
	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.pass, m.host)
	}
	return smtp.SendMail(addr, auth, m.sender, []string{to}, []byte(msg))
}
