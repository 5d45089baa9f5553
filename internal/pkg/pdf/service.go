// internal/pkg/pdf/service.go
package pdf

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/your-org/hospital-backend/internal/config"
	"github.com/your-org/hospital-backend/internal/domain/billing"
	"github.com/your-org/hospital-backend/internal/domain/patient"
	"github.com/your-org/hospital-backend/internal/domain/sale"
)

// Service handles PDF generation
type Service struct {
	config *config.Config
}

// NewService creates a new PDF service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
	}
}

// InvoiceData represents the data passed to the invoice template
type InvoiceData struct {
	Invoice     *billing.Invoice `json:"invoice"`
	Sale        *sale.Sale       `json:"sale"`
	Patient     *patient.Patient `json:"patient"`
	PatientName string           `json:"patient_name"`
	InvoiceDate string           `json:"invoice_date"`
	SaleDate    string           `json:"sale_date"`
	Company     CompanyInfo      `json:"company"`
}

// CompanyInfo represents hospital billing information
type CompanyInfo struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Website string `json:"website"`
}

// GenerateInvoice generates a PDF invoice for a dispensed sale
func (s *Service) GenerateInvoice(inv *billing.Invoice, sl *sale.Sale, pat *patient.Patient) (*bytes.Buffer, error) {
	data := InvoiceData{
		Invoice:     inv,
		Sale:        sl,
		Patient:     pat,
		PatientName: strings.TrimSpace(pat.FirstName + " " + pat.LastName),
		InvoiceDate: inv.CreatedAt.Format("January 2, 2006"),
		SaleDate:    sl.CreatedAt.Format("January 2, 2006"),
		Company: CompanyInfo{
			Name:    s.config.App.CompanyName,
			Address: s.config.App.CompanyAddress,
			Phone:   s.config.App.CompanyPhone,
			Email:   s.config.App.CompanyEmail,
			Website: s.config.App.CompanyWebsite,
		},
	}

	htmlContent, err := s.generateHTML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to generate HTML: %w", err)
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}

	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.Grayscale.Set(false)

	page := wkhtmltopdf.NewPageReader(bytes.NewReader([]byte(htmlContent)))
	page.FooterRight.Set("[page]")
	page.FooterFontSize.Set(9)
	page.Zoom.Set(0.95)

	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}

	return bytes.NewBuffer(pdfg.Bytes()), nil
}

// generateHTML renders the invoice template
func (s *Service) generateHTML(data InvoiceData) (string, error) {
	tmpl := template.Must(template.New("invoice").Parse(invoiceTemplate))

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// Invoice HTML template. Laid out with tables rather than flexbox;
// wkhtmltopdf's rendering engine handles tables far more predictably.
const invoiceTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Invoice {{.Invoice.InvoiceNumber}}</title>
<style>
  body { font-family: "Helvetica Neue", Helvetica, Arial, sans-serif; color: #1f2933; margin: 0; padding: 24px; font-size: 13px; }
  p { margin: 2px 0; }
  table { border-collapse: collapse; }
  .letterhead { width: 100%; border-bottom: 3px solid #0f766e; padding-bottom: 14px; margin-bottom: 22px; }
  .letterhead td { vertical-align: top; }
  .letterhead h1 { margin: 0 0 5px 0; font-size: 22px; color: #0f766e; }
  .letterhead .contact { color: #52606d; }
  .doc-meta { text-align: right; }
  .doc-title { font-size: 24px; font-weight: bold; letter-spacing: 1px; color: #0f766e; margin-bottom: 8px; }
  .sale-meta { width: 100%; margin-bottom: 20px; }
  .sale-meta td { padding: 3px 0; }
  .sale-meta .k { font-weight: bold; width: 120px; }
  .badge { display: inline-block; padding: 3px 9px; border-radius: 3px; font-size: 11px; font-weight: bold; text-transform: uppercase; }
  .badge-paid { background: #d1fae5; color: #065f46; }
  .badge-due { background: #fef3c7; color: #92400e; }
  .patient-block { margin-bottom: 20px; padding: 10px 12px; background: #f5f7fa; border-left: 3px solid #0f766e; }
  .patient-block .heading { font-size: 14px; font-weight: bold; margin-bottom: 4px; color: #334e68; }
  .lines { width: 100%; margin-bottom: 24px; }
  .lines th { background: #0f766e; color: #fff; padding: 8px 7px; text-align: left; font-size: 12px; }
  .lines td { border-bottom: 1px solid #d9e2ec; padding: 8px 7px; }
  .lines .num { text-align: right; white-space: nowrap; }
  .totals-wrap { width: 100%; }
  .totals-wrap .spacer { width: 55%; }
  .totals { width: 100%; }
  .totals td { padding: 6px 8px; border-bottom: 1px solid #d9e2ec; }
  .totals .k { text-align: right; font-weight: bold; }
  .totals .v { text-align: right; white-space: nowrap; width: 110px; }
  .totals .grand td { font-size: 16px; font-weight: bold; border-top: 2px solid #1f2933; border-bottom: none; }
  .closing { margin-top: 44px; padding-top: 14px; border-top: 1px solid #d9e2ec; text-align: center; color: #627d98; font-size: 11px; }
</style>
</head>
<body>
  <table class="letterhead">
    <tr>
      <td>
        <h1>{{.Company.Name}}</h1>
        <p class="contact">{{.Company.Address}}</p>
        <p class="contact">Phone: {{.Company.Phone}} | Email: {{.Company.Email}}</p>
        {{if .Company.Website}}<p class="contact">{{.Company.Website}}</p>{{end}}
      </td>
      <td class="doc-meta">
        <div class="doc-title">PHARMACY INVOICE</div>
        <p><strong>Invoice #:</strong> {{.Invoice.InvoiceNumber}}</p>
        <p><strong>Invoice Date:</strong> {{.InvoiceDate}}</p>
        <p><strong>Sale #:</strong> {{.Sale.SaleNumber}}</p>
      </td>
    </tr>
  </table>

  <table class="sale-meta">
    <tr>
      <td class="k">Sale Date:</td>
      <td>{{.SaleDate}}</td>
      <td class="k" style="text-align: right;">Payment Status:</td>
      <td style="text-align: right; width: 110px;">
        <span class="badge {{if eq .Invoice.Status "PAID"}}badge-paid{{else}}badge-due{{end}}">{{.Invoice.Status}}</span>
      </td>
    </tr>
    <tr>
      <td class="k">Sale Type:</td>
      <td>{{.Sale.SaleType}}</td>
      <td class="k" style="text-align: right;">Sale Status:</td>
      <td style="text-align: right;">{{.Sale.Status}}</td>
    </tr>
  </table>

  <div class="patient-block">
    <div class="heading">Patient</div>
    <p><strong>{{.PatientName}}</strong> (MRN: {{.Patient.MRN}})</p>
    {{if .Patient.Phone}}<p>Phone: {{.Patient.Phone}}</p>{{end}}
    {{if .Patient.Address}}<p>{{.Patient.Address}}{{if .Patient.City}}, {{.Patient.City}}{{end}}</p>{{end}}
    {{if .Patient.Email}}<p>Email: {{.Patient.Email}}</p>{{end}}
  </div>

  <table class="lines">
    <thead>
      <tr>
        <th>Item</th>
        <th>Batch</th>
        <th>Expiry</th>
        <th class="num">Qty</th>
        <th class="num">Price</th>
        <th class="num">Discount</th>
        <th class="num">Total</th>
      </tr>
    </thead>
    <tbody>
      {{range .Sale.Items}}
      <tr>
        <td><strong>{{.ProductName}}</strong></td>
        <td>{{.BatchNumber}}</td>
        <td>{{if .ExpiryDate}}{{.ExpiryDate.Format "Jan 2006"}}{{end}}</td>
        <td class="num">{{.Quantity}}</td>
        <td class="num">&#8377;{{.UnitPrice.StringFixed 2}}</td>
        <td class="num">&#8377;{{.DiscountAmount.StringFixed 2}}</td>
        <td class="num">&#8377;{{.TotalAmount.StringFixed 2}}</td>
      </tr>
      {{end}}
    </tbody>
  </table>

  <table class="totals-wrap">
    <tr>
      <td class="spacer"></td>
      <td>
        <table class="totals">
          <tr>
            <td class="k">Subtotal:</td>
            <td class="v">&#8377;{{.Invoice.TotalAmount.StringFixed 2}}</td>
          </tr>
          {{if .Invoice.DiscountAmount.IsPositive}}
          <tr>
            <td class="k">Discount:</td>
            <td class="v">-&#8377;{{.Invoice.DiscountAmount.StringFixed 2}}</td>
          </tr>
          {{end}}
          <tr>
            <td class="k">Tax:</td>
            <td class="v">&#8377;{{.Invoice.TaxAmount.StringFixed 2}}</td>
          </tr>
          <tr class="grand">
            <td class="k">Net Total:</td>
            <td class="v">&#8377;{{.Invoice.NetAmount.StringFixed 2}}</td>
          </tr>
          <tr>
            <td class="k">Paid:</td>
            <td class="v">&#8377;{{.Invoice.PaidAmount.StringFixed 2}}</td>
          </tr>
          <tr>
            <td class="k">Balance Due:</td>
            <td class="v">&#8377;{{.Invoice.OutstandingAmount.StringFixed 2}}</td>
          </tr>
        </table>
      </td>
    </tr>
  </table>

  <div class="closing">
    <p>Wishing you a speedy recovery!</p>
    <p>Questions about this invoice? Contact us at {{.Company.Email}} or {{.Company.Phone}}.</p>
  </div>
</body>
</html>
`
