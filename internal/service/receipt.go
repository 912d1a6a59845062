package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/jung-kurt/gofpdf"

	"github.com/swiftdrive/driveschool-api/internal/models"
	appErrors "github.com/swiftdrive/driveschool-api/pkg/errors"
)

var receiptTemplate = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Receipt {{.Payment.ReceiptNumber}}</title>
<style>
body { font-family: Arial, sans-serif; margin: 2em; color: #222; }
.header { text-align: center; border-bottom: 2px solid #222; padding-bottom: 1em; }
table { width: 100%; border-collapse: collapse; margin-top: 1.5em; }
td { padding: 0.4em 0; }
td.label { color: #666; width: 40%; }
.total { font-size: 1.3em; font-weight: bold; border-top: 1px solid #999; }
.footer { margin-top: 2em; text-align: center; color: #888; font-size: 0.85em; }
</style>
</head>
<body>
<div class="header">
<h1>{{.School.Name}}</h1>
<p>{{.School.Address}} &middot; {{.School.Phone}}</p>
<h2>Official Receipt</h2>
</div>
<table>
<tr><td class="label">Receipt No.</td><td>{{.Payment.ReceiptNumber}}</td></tr>
<tr><td class="label">Date</td><td>{{.Payment.PaymentDate.Format "02 Jan 2006 15:04"}}</td></tr>
<tr><td class="label">Received From</td><td>{{.StudentName}}</td></tr>
<tr><td class="label">Payment Method</td><td>{{.Payment.PaymentMethod}}</td></tr>
{{if .Payment.TransactionID}}<tr><td class="label">Transaction Ref</td><td>{{.Payment.TransactionID}}</td></tr>{{end}}
<tr class="total"><td class="label">Amount</td><td>KES {{.Payment.Amount}}</td></tr>
<tr><td class="label">Outstanding Balance</td><td>KES {{.Balance}}</td></tr>
</table>
<div class="footer">This is a system-generated receipt.</div>
</body>
</html>
`))

type receiptStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
}

type settingsReader interface {
	Get(ctx context.Context) (*models.Settings, error)
}

type receiptData struct {
	School      *models.Settings
	Payment     *models.Payment
	StudentName string
	Balance     int64
}

// ReceiptService renders payment receipts for print and display.
type ReceiptService struct {
	payments *PaymentService
	students receiptStudentReader
	settings settingsReader
}

// NewReceiptService constructs the receipt renderer.
func NewReceiptService(payments *PaymentService, students receiptStudentReader, settings settingsReader) *ReceiptService {
	return &ReceiptService{payments: payments, students: students, settings: settings}
}

func (s *ReceiptService) load(ctx context.Context, idOrReceipt string) (*receiptData, error) {
	payment, err := s.payments.Get(ctx, idOrReceipt)
	if err != nil {
		return nil, err
	}

	name := "Unknown student"
	balance := int64(0)
	if student, err := s.students.FindByID(ctx, payment.StudentID); err == nil {
		name = student.FirstName + " " + student.LastName
		balance = student.Balance
	}

	school, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	return &receiptData{School: school, Payment: payment, StudentName: name, Balance: balance}, nil
}

// RenderHTML renders the receipt as a printable HTML page.
func (s *ReceiptService) RenderHTML(ctx context.Context, idOrReceipt string) ([]byte, error) {
	data, err := s.load(ctx, idOrReceipt)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, data); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	return buf.Bytes(), nil
}

// RenderPDF renders the receipt as a downloadable PDF.
func (s *ReceiptService) RenderPDF(ctx context.Context, idOrReceipt string) ([]byte, error) {
	data, err := s.load(ctx, idOrReceipt)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, data.School.Name, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, data.School.Address, "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, data.School.Phone, "", 1, "C", false, 0, "")
	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(0, 8, "OFFICIAL RECEIPT", "T", 1, "C", false, 0, "")
	pdf.Ln(4)

	row := func(label, value string) {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(60, 7, label, "", 0, "", false, 0, "")
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 7, value, "", 1, "", false, 0, "")
	}
	row("Receipt No.", data.Payment.ReceiptNumber)
	row("Date", data.Payment.PaymentDate.Format("02 Jan 2006 15:04"))
	row("Received From", data.StudentName)
	row("Payment Method", string(data.Payment.PaymentMethod))
	if data.Payment.TransactionID != nil {
		row("Transaction Ref", *data.Payment.TransactionID)
	}
	row("Amount", fmt.Sprintf("KES %d", data.Payment.Amount))
	row("Outstanding Balance", fmt.Sprintf("KES %d", data.Balance))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt pdf")
	}
	return buf.Bytes(), nil
}
