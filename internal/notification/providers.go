package notification

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/smtp"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/nextstep-care/platform/internal/shared/config"
)

// SMTPEmailProvider delivers email over a plain SMTP relay
type SMTPEmailProvider struct {
	host     string
	port     int
	username string
	password string
	from     string
	fromName string
}

// NewSMTPEmailProvider creates an email provider from config
func NewSMTPEmailProvider(cfg config.NotificationConfig) *SMTPEmailProvider {
	return &SMTPEmailProvider{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     cfg.FromEmail,
		fromName: cfg.FromName,
	}
}

// Send delivers the notification as a plain-text email
func (p *SMTPEmailProvider) Send(ctx context.Context, notification *Notification) error {
	if notification.Email == "" {
		return fmt.Errorf("no email address provided")
	}

	headers := []string{
		fmt.Sprintf("From: %s <%s>", p.fromName, p.from),
		"To: " + notification.Email,
		"Subject: " + notification.Subject,
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="utf-8"`,
	}
	message := strings.Join(headers, "\r\n") + "\r\n\r\n" + notification.Body

	var auth smtp.Auth
	if p.username != "" {
		auth = smtp.PlainAuth("", p.username, p.password, p.host)
	}

	addr := fmt.Sprintf("%s:%d", p.host, p.port)
	if err := smtp.SendMail(addr, auth, p.from, []string{notification.Email}, []byte(message)); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return nil
}

// TwilioSMSProvider delivers SMS through the Twilio REST API
type TwilioSMSProvider struct {
	accountSID string
	authToken  string
	fromNumber string
	httpClient *http.Client
}

// NewTwilioSMSProvider creates an SMS provider from config
func NewTwilioSMSProvider(cfg config.NotificationConfig) *TwilioSMSProvider {
	return &TwilioSMSProvider{
		accountSID: cfg.TwilioAccountSID,
		authToken:  cfg.TwilioAuthToken,
		fromNumber: cfg.TwilioPhoneNumber,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts the message to the Twilio Messages endpoint
func (p *TwilioSMSProvider) Send(ctx context.Context, notification *Notification) error {
	if notification.Phone == "" {
		return fmt.Errorf("no phone number provided")
	}

	endpoint := fmt.Sprintf("https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json", p.accountSID)
	form := url.Values{
		"To":   {notification.Phone},
		"From": {p.fromNumber},
		"Body": {notification.Body},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("twilio request: %w", err)
	}
	req.SetBasicAuth(p.accountSID, p.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("twilio send failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("twilio send failed: status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// MockEmailProvider is an email provider for testing
type MockEmailProvider struct {
	mu         sync.RWMutex
	sent       []*Notification
	failOnSend bool
}

// NewMockEmailProvider creates a new mock email provider
func NewMockEmailProvider() *MockEmailProvider {
	return &MockEmailProvider{}
}

// Send records the notification instead of delivering it
func (p *MockEmailProvider) Send(ctx context.Context, notification *Notification) error {
	if p.failOnSend {
		return fmt.Errorf("mock send failure")
	}
	if notification.Email == "" {
		return fmt.Errorf("no email address provided")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, notification)
	return nil
}

// SetFailOnSend sets whether Send should fail
func (p *MockEmailProvider) SetFailOnSend(fail bool) {
	p.failOnSend = fail
}

// GetSentNotifications returns all recorded notifications
func (p *MockEmailProvider) GetSentNotifications() []*Notification {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]*Notification{}, p.sent...)
}

// MockSMSProvider is an SMS provider for testing
type MockSMSProvider struct {
	mu         sync.RWMutex
	sent       []*Notification
	failOnSend bool
}

// NewMockSMSProvider creates a new mock SMS provider
func NewMockSMSProvider() *MockSMSProvider {
	return &MockSMSProvider{}
}

// Send records the notification instead of delivering it
func (p *MockSMSProvider) Send(ctx context.Context, notification *Notification) error {
	if p.failOnSend {
		return fmt.Errorf("mock send failure")
	}
	if notification.Phone == "" {
		return fmt.Errorf("no phone number provided")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, notification)
	return nil
}

// SetFailOnSend sets whether Send should fail
func (p *MockSMSProvider) SetFailOnSend(fail bool) {
	p.failOnSend = fail
}

// GetSentNotifications returns all recorded notifications
func (p *MockSMSProvider) GetSentNotifications() []*Notification {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]*Notification{}, p.sent...)
}
