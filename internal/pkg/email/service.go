// internal/pkg/email/service.go
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"path/filepath"
	"time"

	"github.com/your-org/hospital-backend/internal/config"
)

// EmailService handles all email operations
type EmailService struct {
	config    *config.Config
	templates map[string]*template.Template
	client    *http.Client
}

// NewEmailService creates a new email service
func NewEmailService(cfg *config.Config) *EmailService {
	service := &EmailService{
		config:    cfg,
		templates: make(map[string]*template.Template),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	// Load email templates
	if err := service.loadTemplates(); err != nil {
		log.Printf("Warning: Failed to load email templates: %v", err)
	}

	return service
}

// SendEmail sends an email using the configured provider
func (s *EmailService) SendEmail(ctx context.Context, email *Email) error {
	switch s.config.Email.Provider {
	case "smtp":
		return s.sendSMTPEmail(email)
	case "resend":
		return s.sendResendEmail(email)
	case "sendgrid":
		return s.sendSendGridEmail(email)
	case "mailersend":
		return s.sendMailerSendEmail(email)
	default:
		return fmt.Errorf("unsupported email provider: %s", s.config.Email.Provider)
	}
}

// SendStaffWelcomeEmail sends onboarding mail with a temporary password
// to a newly created staff account
func (s *EmailService) SendStaffWelcomeEmail(ctx context.Context, userEmail, userName, role, tempPassword string) error {
	data := StaffWelcomeData{
		EmailTemplateData: GetBaseTemplateData(
			s.config.App.CompanyName,
			s.config.Email.BaseURL,
			userName,
			userEmail,
		),
		Role:              role,
		TemporaryPassword: tempPassword,
		LoginURL:          s.config.Email.BaseURL + "/login",
	}

	htmlContent, err := s.renderTemplate("staff_welcome", data)
	if err != nil {
		return fmt.Errorf("failed to render staff welcome template: %w", err)
	}

	email := &Email{
		To:          []string{userEmail},
		Subject:     fmt.Sprintf("Your %s staff account", s.config.App.CompanyName),
		HTMLContent: htmlContent,
		Type:        EmailTypeStaffWelcome,
		Data:        map[string]interface{}{"role": role},
	}

	return s.SendEmail(ctx, email)
}

// SendPasswordResetEmail sends a reset notice with a fresh temporary
// password
func (s *EmailService) SendPasswordResetEmail(ctx context.Context, userEmail, userName, tempPassword string) error {
	data := PasswordResetData{
		EmailTemplateData: GetBaseTemplateData(
			s.config.App.CompanyName,
			s.config.Email.BaseURL,
			userName,
			userEmail,
		),
		TemporaryPassword: tempPassword,
		LoginURL:          s.config.Email.BaseURL + "/login",
	}

	htmlContent, err := s.renderTemplate("password_reset", data)
	if err != nil {
		return fmt.Errorf("failed to render password reset template: %w", err)
	}

	email := &Email{
		To:          []string{userEmail},
		Subject:     "Your password has been reset",
		HTMLContent: htmlContent,
		Type:        EmailTypePasswordReset,
		Data:        map[string]interface{}{"user_name": userName},
	}

	return s.SendEmail(ctx, email)
}

// SendApprovalRequestEmail notifies pharmacy managers about a sale
// parked for discount approval
func (s *EmailService) SendApprovalRequestEmail(ctx context.Context, approverEmails []string, data ApprovalRequestData) error {
	if len(approverEmails) == 0 {
		return nil
	}
	data.EmailTemplateData = GetBaseTemplateData(
		s.config.App.CompanyName,
		s.config.Email.BaseURL,
		"",
		"",
	)
	data.SaleURL = fmt.Sprintf("%s/pharmacy/sales/%s", s.config.Email.BaseURL, data.SaleNumber)

	htmlContent, err := s.renderTemplate("approval_request", data)
	if err != nil {
		return fmt.Errorf("failed to render approval request template: %w", err)
	}

	email := &Email{
		To:          approverEmails,
		Subject:     fmt.Sprintf("Discount approval needed - %s", data.SaleNumber),
		HTMLContent: htmlContent,
		Type:        EmailTypeApprovalRequest,
		Data: map[string]interface{}{
			"sale_number":      data.SaleNumber,
			"discount_percent": data.DiscountPercent,
		},
	}

	return s.SendEmail(ctx, email)
}

// SendPurchaseOrderEmail dispatches a purchase order to the vendor
func (s *EmailService) SendPurchaseOrderEmail(ctx context.Context, vendorEmail string, data PurchaseOrderDispatchData) error {
	if vendorEmail == "" {
		return nil
	}
	data.EmailTemplateData = GetBaseTemplateData(
		s.config.App.CompanyName,
		s.config.Email.BaseURL,
		data.VendorName,
		vendorEmail,
	)

	htmlContent, err := s.renderTemplate("purchase_order", data)
	if err != nil {
		return fmt.Errorf("failed to render purchase order template: %w", err)
	}

	email := &Email{
		To:          []string{vendorEmail},
		Subject:     fmt.Sprintf("Purchase Order %s - %s", data.OrderNumber, s.config.App.CompanyName),
		HTMLContent: htmlContent,
		Type:        EmailTypePurchaseOrder,
		Data: map[string]interface{}{
			"order_number": data.OrderNumber,
			"vendor_name":  data.VendorName,
		},
	}

	return s.SendEmail(ctx, email)
}

// loadTemplates parses the on-disk template set. Missing files fall
// back to a plain built-in body so notifications still go out on a
// fresh install.
func (s *EmailService) loadTemplates() error {
	templateDir := s.config.Email.TemplateDir
	if templateDir == "" {
		templateDir = "./templates/emails"
	}

	for _, name := range []string{"staff_welcome", "password_reset", "approval_request", "purchase_order"} {
		tmpl, err := template.ParseFiles(filepath.Join(templateDir, name+".html"))
		if err != nil {
			log.Printf("Warning: Could not load template %s: %v", name, err)
			tmpl = fallbackTemplate(name)
		}
		s.templates[name] = tmpl
	}
	return nil
}

// renderTemplate executes a loaded template by name
func (s *EmailService) renderTemplate(name string, data interface{}) (string, error) {
	tmpl, ok := s.templates[name]
	if !ok {
		return "", fmt.Errorf("template %s not found", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}

const fallbackBody = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>{{.HospitalName}}</title></head>
<body style="font-family: Arial, sans-serif; background: #f4f4f4; margin: 0; padding: 20px;">
  <div style="max-width: 600px; margin: 0 auto; background: #fff; padding: 20px; border-radius: 8px;">
    <h1 style="color: #333;">{{.HospitalName}}</h1>
    <p>Hello {{.UserName}},</p>
    <p>This is a notification from the {{.HospitalName}} pharmacy system.</p>
    <p>If you have any questions, please contact the pharmacy desk.</p>
    <p>Best regards,<br>{{.HospitalName}}</p>
    <hr>
    <p style="font-size: 12px; color: #666;">{{.Year}} {{.HospitalName}}. All rights reserved.</p>
  </div>
</body>
</html>`

func fallbackTemplate(name string) *template.Template {
	return template.Must(template.New(name).Parse(fallbackBody))
}
