// Package mailer delivers the station's plain-text warning mails through a
// configured SMTP relay.
package mailer

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// Config holds the SMTP relay settings from the station config file.
type Config struct {
	Server   string `json:"server"`
	Port     int    `json:"port" validate:"min=0,max=65535"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
}

const sendTimeout = 20 * time.Second

// Send delivers a plain-text message to a single recipient. STARTTLS is
// negotiated when the relay offers it; PLAIN auth is attempted only when a
// username is configured. The whole exchange shares one 20s deadline.
func Send(cfg Config, to, subject, body string) error {
	addr := net.JoinHostPort(cfg.Server, strconv.Itoa(cfg.Port))
	conn, err := net.DialTimeout("tcp", addr, sendTimeout)
	if err != nil {
		return fmt.Errorf("dial smtp %s: %w", addr, err)
	}
	conn.SetDeadline(time.Now().Add(sendTimeout))

	c, err := smtp.NewClient(conn, cfg.Server)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: cfg.Server}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if cfg.Username != "" {
		if ok, _ := c.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Server)
			if err := c.Auth(auth); err != nil {
				return fmt.Errorf("smtp auth: %w", err)
			}
		}
	}
	if err := c.Mail(cfg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := c.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write([]byte(buildMessage(cfg.From, to, subject, body))); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp finish data: %w", err)
	}
	return c.Quit()
}

// buildMessage renders the RFC 5322 message with CRLF line endings.
func buildMessage(from, to, subject, body string) string {
	normalized := strings.ReplaceAll(body, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\n", "\r\n")

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(normalized)
	b.WriteString("\r\n")
	return b.String()
}
