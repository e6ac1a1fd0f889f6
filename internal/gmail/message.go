package gmail

import (
	"encoding/base64"
	"fmt"
	"mime"
	"net/mail"
	"strings"
)

// EmailMessage represents an email to send or store as a draft
type EmailMessage struct {
	To      []string
	Cc      []string
	Bcc     []string
	Subject string
	Body    string
	IsHTML  bool
}

// Validate checks required fields and recipient addresses
func (m *EmailMessage) Validate() error {
	if len(m.To) == 0 {
		return fmt.Errorf("at least one recipient is required")
	}
	if m.Subject == "" {
		return fmt.Errorf("subject is required")
	}
	if m.Body == "" {
		return fmt.Errorf("body is required")
	}
	for _, group := range [][]string{m.To, m.Cc, m.Bcc} {
		for _, addr := range group {
			if _, err := mail.ParseAddress(addr); err != nil {
				return fmt.Errorf("invalid recipient %q: %w", addr, err)
			}
		}
	}
	return nil
}

// Build renders the message in RFC 2822 format
func (m *EmailMessage) Build() (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}

	var b strings.Builder
	writeHeader(&b, "To", strings.Join(m.To, ", "))
	if len(m.Cc) > 0 {
		writeHeader(&b, "Cc", strings.Join(m.Cc, ", "))
	}
	if len(m.Bcc) > 0 {
		writeHeader(&b, "Bcc", strings.Join(m.Bcc, ", "))
	}
	writeHeader(&b, "Subject", encodeRFC2047(m.Subject))
	if m.IsHTML {
		writeHeader(&b, "Content-Type", `text/html; charset="UTF-8"`)
	} else {
		writeHeader(&b, "Content-Type", `text/plain; charset="UTF-8"`)
	}
	writeHeader(&b, "MIME-Version", "1.0")
	b.WriteString("\r\n")
	b.WriteString(m.Body)

	return b.String(), nil
}

// Raw returns the message base64url encoded for the Gmail API
func (m *EmailMessage) Raw() (string, error) {
	msg, err := m.Build()
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString([]byte(msg)), nil
}

func writeHeader(b *strings.Builder, name, value string) {
	b.WriteString(name)
	b.WriteString(": ")
	// Header injection guard
	b.WriteString(strings.NewReplacer("\r", "", "\n", "").Replace(value))
	b.WriteString("\r\n")
}

// encodeRFC2047 encodes a string for use in email headers according to RFC 2047
func encodeRFC2047(s string) string {
	for _, r := range s {
		if r > 127 {
			return mime.BEncoding.Encode("UTF-8", s)
		}
	}
	return s
}
