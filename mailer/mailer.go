// Package mailer delivers account notification emails over SMTP. Delivery is
// disabled when no mail host is configured, which keeps local development
// and tests free of a mail server.
package mailer

import (
	"crypto/tls"
	"fmt"
	"net/mail"
	"net/url"

	"github.com/dajohi/goemail"

	"github.com/castellan/auth"
)

const (
	verificationSubject = "Verify your email address"
	resetSubject        = "Reset your password"
)

// Client sends notification emails from a preset address.
//
// Client implements the auth.Sender interface.
type Client struct {
	smtp        *goemail.SMTP
	mailName    string
	mailAddress string
	baseURL     string
	disabled    bool
	logger      auth.Logger
}

var _ auth.Sender = (*Client)(nil)

// Config holds the SMTP connection settings.
type Config struct {
	Host       string
	User       string
	Password   string
	From       string
	Name       string
	BaseURL    string
	SkipVerify bool
	Logger     auth.Logger
}

// New returns a mail client. Delivery is disabled when any of the host,
// user, or password settings are missing.
func New(cfg Config) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = auth.DefaultLogger()
	}

	if cfg.Host == "" || cfg.User == "" || cfg.Password == "" {
		logger.Info("mail: DISABLED")
		return &Client{
			disabled: true,
			baseURL:  cfg.BaseURL,
			logger:   logger,
		}, nil
	}

	h := fmt.Sprintf("smtps://%v:%v@%v", cfg.User, cfg.Password, cfg.Host)
	u, err := url.Parse(h)
	if err != nil {
		return nil, err
	}

	a, err := mail.ParseAddress(cfg.From)
	if err != nil {
		return nil, err
	}

	name := cfg.Name
	if name == "" {
		name = a.Name
	}

	smtp, err := goemail.NewSMTP(u.String(), &tls.Config{
		InsecureSkipVerify: cfg.SkipVerify,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("mail host configured", "user", cfg.User, "host", cfg.Host)

	return &Client{
		smtp:        smtp,
		mailName:    name,
		mailAddress: a.Address,
		baseURL:     cfg.BaseURL,
		disabled:    false,
		logger:      logger,
	}, nil
}

// SendVerificationEmail mails the verification link for a fresh account.
func (c *Client) SendVerificationEmail(to, token string) error {
	link := c.link("/api/auth/verify-email", token)
	body := fmt.Sprintf(
		"Welcome!\n\nPlease verify your email address by following this link:\n\n%s\n",
		link,
	)
	return c.send(verificationSubject, body, to)
}

// SendResetPasswordEmail mails the password reset link. The link stops
// working once the token expires or is spent.
func (c *Client) SendResetPasswordEmail(to, token string) error {
	link := c.link("/api/auth/reset-password", token)
	body := fmt.Sprintf(
		"A password reset was requested for your account.\n\nFollow this link to choose a new password:\n\n%s\n\nIf you did not request this, you can ignore this email.\n",
		link,
	)
	return c.send(resetSubject, body, to)
}

func (c *Client) send(subject, body, to string) error {
	if c.disabled {
		c.logger.Debug("mail disabled, skipping send", "subject", subject, "to", to)
		return nil
	}

	msg := goemail.NewMessage(c.mailAddress, subject, body)
	msg.SetName(c.mailName)
	msg.AddBCC(to)

	return c.smtp.Send(msg)
}

func (c *Client) link(path, token string) string {
	return c.baseURL + path + "?token=" + url.QueryEscape(token)
}
