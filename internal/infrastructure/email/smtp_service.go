package email

// internal/infrastructure/email/smtp_service.go
import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"photobooth-backend/pkg/logger"
)

// OwnerLinkData là nội dung email gửi owner link sau khi tạo event.
// OwnerURL chứa secret token, chỉ được gửi tới OwnerEmail.
type OwnerLinkData struct {
	Email     string    `json:"email"`
	EventName string    `json:"event_name"`
	OwnerURL  string    `json:"owner_url"`
	GuestURL  string    `json:"guest_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type EmailService interface {
	SendOwnerLink(ctx context.Context, data OwnerLinkData) error
}

type smtpEmailService struct {
	smtpAddr string
	smtpFrom string
}

func NewSMTPEmailService(smtpHost, smtpPort, from string) EmailService {
	return &smtpEmailService{
		smtpAddr: smtpHost + ":" + smtpPort,
		smtpFrom: from,
	}
}

func (s *smtpEmailService) SendOwnerLink(ctx context.Context, data OwnerLinkData) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := buildOwnerLinkMessage(s.smtpFrom, data)

	// Gửi email qua SMTP
	if err := smtp.SendMail(s.smtpAddr, nil, s.smtpFrom, []string{data.Email}, msg); err != nil {
		logger.Warn("Failed to send email", map[string]interface{}{
			"error":     err.Error(),
			"smtp_addr": s.smtpAddr,
		})
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

func buildOwnerLinkMessage(from string, data OwnerLinkData) []byte {
	// Tên event do người dùng nhập, không cho phép xuống dòng trong header
	name := strings.NewReplacer("\r", " ", "\n", " ").Replace(data.EventName)

	subject := fmt.Sprintf("Your photo event %q is ready", name)
	body := fmt.Sprintf(`Hi,

Your event %q has been created.

Share this link (or its QR code) with your guests:
%s

Manage your event, download or delete photos here. Keep this link private:
%s

All photos will be deleted automatically on %s.`,
		name, data.GuestURL, data.OwnerURL, data.ExpiresAt.UTC().Format("Jan 2, 2006 15:04 MST"))

	return []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		from, data.Email, subject, strings.ReplaceAll(body, "\n", "\r\n")))
}
