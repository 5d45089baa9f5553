// internal/pkg/email/api_providers.go
package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

// Hosted delivery APIs for deployments without an SMTP relay. Only the
// payload shape differs between providers; transport handling is shared.

type apiAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// postJSON submits a provider payload and checks the status code the
// provider documents for accepted mail.
func (s *EmailService) postJSON(endpoint string, payload interface{}, want int) error {
	apiKey := s.config.Email.APIKey
	if apiKey == "" {
		return fmt.Errorf("email API key not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach email provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return fmt.Errorf("email provider returned status %d", resp.StatusCode)
	}
	return nil
}

// sendResendEmail delivers through the Resend API.
func (s *EmailService) sendResendEmail(email *Email) error {
	from := s.config.Email.FromEmail
	if name := s.config.Email.FromName; name != "" {
		from = fmt.Sprintf("%s <%s>", name, from)
	}

	payload := map[string]interface{}{
		"from":    from,
		"to":      email.To,
		"subject": email.Subject,
		"html":    email.HTMLContent,
	}
	if s.config.Email.ReplyTo != "" {
		payload["reply_to"] = s.config.Email.ReplyTo
	}

	return s.postJSON("https://api.resend.com/emails", payload, http.StatusOK)
}

// sendSendGridEmail delivers through the SendGrid v3 API.
func (s *EmailService) sendSendGridEmail(email *Email) error {
	to := make([]apiAddress, 0, len(email.To))
	for _, recipient := range email.To {
		to = append(to, apiAddress{Email: recipient})
	}

	payload := map[string]interface{}{
		"personalizations": []map[string]interface{}{{"to": to}},
		"from": apiAddress{
			Email: s.config.Email.FromEmail,
			Name:  s.config.Email.FromName,
		},
		"subject": email.Subject,
		"content": []map[string]string{{
			"type":  "text/html",
			"value": email.HTMLContent,
		}},
	}
	if s.config.Email.ReplyTo != "" {
		payload["reply_to"] = apiAddress{Email: s.config.Email.ReplyTo}
	}

	return s.postJSON("https://api.sendgrid.com/v3/mail/send", payload, http.StatusAccepted)
}

// sendMailerSendEmail delivers through the MailerSend API.
func (s *EmailService) sendMailerSendEmail(email *Email) error {
	to := make([]apiAddress, 0, len(email.To))
	for _, recipient := range email.To {
		to = append(to, apiAddress{Email: recipient})
	}

	payload := map[string]interface{}{
		"from": apiAddress{
			Email: s.config.Email.FromEmail,
			Name:  s.config.Email.FromName,
		},
		"to":      to,
		"subject": email.Subject,
		"html":    email.HTMLContent,
		"tags":    []string{string(email.Type)},
	}
	if s.config.Email.ReplyTo != "" {
		payload["reply_to"] = apiAddress{Email: s.config.Email.ReplyTo}
	}

	return s.postJSON("https://api.mailersend.com/v1/email", payload, http.StatusAccepted)
}
