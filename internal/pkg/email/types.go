// internal/pkg/email/types.go
package email

import (
	"time"
)

// EmailType represents the type of email being sent
type EmailType string

const (
	EmailTypeStaffWelcome    EmailType = "staff_welcome"
	EmailTypePasswordReset   EmailType = "password_reset"
	EmailTypeApprovalRequest EmailType = "approval_request"
	EmailTypePurchaseOrder   EmailType = "purchase_order"
)

// Email represents an email message
type Email struct {
	To          []string               `json:"to"`
	CC          []string               `json:"cc,omitempty"`
	BCC         []string               `json:"bcc,omitempty"`
	Subject     string                 `json:"subject"`
	HTMLContent string                 `json:"html_content"`
	TextContent string                 `json:"text_content,omitempty"`
	Type        EmailType              `json:"type"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// EmailTemplateData contains common data for all email templates
type EmailTemplateData struct {
	HospitalName string `json:"hospital_name"`
	SiteURL      string `json:"site_url"`
	UserName     string `json:"user_name"`
	UserEmail    string `json:"user_email"`
	Year         int    `json:"year"`
}

// StaffWelcomeData contains data for the staff onboarding email
type StaffWelcomeData struct {
	EmailTemplateData
	Role              string `json:"role"`
	TemporaryPassword string `json:"temporary_password"`
	LoginURL          string `json:"login_url"`
}

// PasswordResetData contains data for the password reset email
type PasswordResetData struct {
	EmailTemplateData
	TemporaryPassword string `json:"temporary_password"`
	LoginURL          string `json:"login_url"`
}

// ApprovalRequestData contains data for the discount approval email
// sent to pharmacy managers when a sale parks as PENDING_APPROVAL
type ApprovalRequestData struct {
	EmailTemplateData
	SaleNumber      string `json:"sale_number"`
	PatientName     string `json:"patient_name"`
	DiscountPercent string `json:"discount_percent"`
	TotalAmount     string `json:"total_amount"`
	RequestedBy     string `json:"requested_by"`
	SaleURL         string `json:"sale_url"`
}

// PurchaseOrderDispatchData contains data for the purchase order email
// sent to the vendor when a PO moves to SENT
type PurchaseOrderDispatchData struct {
	EmailTemplateData
	OrderNumber string                  `json:"order_number"`
	VendorName  string                  `json:"vendor_name"`
	OrderDate   string                  `json:"order_date"`
	TotalAmount string                  `json:"total_amount"`
	Items       []PurchaseOrderItemLine `json:"items"`
}

// PurchaseOrderItemLine is one PO line rendered in the vendor email
type PurchaseOrderItemLine struct {
	ProductName string `json:"product_name"`
	SKU         string `json:"sku"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
}

// GetBaseTemplateData returns common template data
func GetBaseTemplateData(hospitalName, siteURL, userName, userEmail string) EmailTemplateData {
	return EmailTemplateData{
		HospitalName: hospitalName,
		SiteURL:      siteURL,
		UserName:     userName,
		UserEmail:    userEmail,
		Year:         time.Now().Year(),
	}
}
