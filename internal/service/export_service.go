package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/liquidation-verify-api/internal/models"
	"github.com/noah-isme/liquidation-verify-api/internal/workflow"
	appErrors "github.com/noah-isme/liquidation-verify-api/pkg/errors"
	"github.com/noah-isme/liquidation-verify-api/pkg/export"
)

// Export formats.
const (
	FormatPDF  = "pdf"
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

const (
	letterTitle       = "Stock Verification Letter"
	letterDeclaration = "We hereby confirm that the stock figures above were physically verified at the distributor premises."
	letterSheet       = "Verification"
)

var letterHeaders = []string{"Product", "SKU", "Previous Stock", "New Stock", "Difference", "Direction", "Farmer Qty", "Retailer Allocations"}

type csvRenderer interface {
	RenderLetter(letter export.Letter) ([]byte, error)
}

type pdfRenderer interface {
	RenderLetter(letter export.Letter) ([]byte, error)
}

type xlsxRenderer interface {
	RenderLetter(letter export.Letter, sheet string) ([]byte, error)
}

// ExportDocument is a rendered file ready to be sent as an attachment.
type ExportDocument struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders verification letters for live workflows and stored entries.
type ExportService struct {
	csv      csvRenderer
	pdf      pdfRenderer
	xlsx     xlsxRenderer
	location *time.Location
	logger   *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers fall back to the defaults.
func NewExportService(location *time.Location, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer, xlsx xlsxRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if location == nil {
		location = time.UTC
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if xlsx == nil {
		xlsx = export.NewXLSXExporter()
	}
	return &ExportService{csv: csv, pdf: pdf, xlsx: xlsx, location: location, logger: logger}
}

// VerificationLetter renders the letter for the items currently being verified.
func (s *ExportService) VerificationLetter(w *workflow.Workflow, format string, now time.Time) (*ExportDocument, error) {
	if w == nil || len(w.Items) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "there are no stock changes to put in a letter yet")
	}
	rows := make([]map[string]string, 0, len(w.Items))
	for _, item := range w.Items {
		alloc := w.Allocation(item.SKU.Key())
		names := make([]string, 0, len(alloc.Retailers))
		for _, r := range alloc.Retailers {
			if !r.Selected() {
				continue
			}
			names = append(names, fmt.Sprintf("%s: %d", r.RetailerName, r.Quantity))
		}
		rows = append(rows, letterRow(item.SKU.ProductName, item.SKU.SKUName+" ("+item.SKU.SKUCode+")",
			item.SKU.CurrentStock, item.NewStock, alloc.FarmerQuantity, names))
	}

	preamble := []string{
		fmt.Sprintf("Distributor: %s (%s)", w.Distributor.Name, w.Distributor.Code),
		"Date: " + now.In(s.location).Format("02 Jan 2006 15:04"),
	}
	closing := []string{letterDeclaration, ""}
	if a := w.Attestation; a != nil && !a.CapturedAt.IsZero() {
		closing = append(closing, verifierLine(a.CapturedBy.Name, a.CapturedBy.Designation, a.CapturedBy.Role))
		closing = append(closing, "Signed at: "+a.CapturedAt.In(s.location).Format("02 Jan 2006 15:04"))
		if loc := locationLine(a.Location); loc != "" {
			closing = append(closing, loc)
		}
	}
	closing = append(closing, "Distributor signature: ______________________")

	letter := export.Letter{Title: letterTitle, Preamble: preamble, Table: export.Dataset{Headers: letterHeaders, Rows: rows}, Closing: closing}
	return s.render(letter, format, fmt.Sprintf("verification_%s_%s", sanitizeFilename(w.Distributor.Code), now.In(s.location).Format("20060102")))
}

// EntryLetter renders the letter for a submitted liquidation entry.
func (s *ExportService) EntryLetter(entry *models.LiquidationEntry, format string) (*ExportDocument, error) {
	if entry == nil || len(entry.Items) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "entry has no items")
	}
	rows := make([]map[string]string, 0, len(entry.Items))
	for _, item := range entry.Items {
		names := make([]string, 0, len(item.Retailers))
		for _, r := range item.Retailers {
			names = append(names, fmt.Sprintf("%s: %d", r.RetailerID, r.Quantity))
		}
		rows = append(rows, letterRow(item.ProductCode, item.SKUCode, item.PreviousStock, item.CurrentStock, item.FarmerQuantity, names))
	}
	preamble := []string{
		fmt.Sprintf("Distributor: %s (%s)", entry.DistributorName, entry.DistributorCode),
		"Entry: " + entry.ID,
		"Submitted: " + entry.SubmittedAt.In(s.location).Format("02 Jan 2006 15:04"),
	}
	closing := []string{
		letterDeclaration,
		"",
		verifierLine(entry.VerifierName, "", entry.VerifierRole),
		"Signed at: " + entry.VerifiedAt.In(s.location).Format("02 Jan 2006 15:04"),
	}
	if entry.Latitude != nil && entry.Longitude != nil {
		loc := &workflow.Location{Latitude: *entry.Latitude, Longitude: *entry.Longitude}
		if entry.Address != nil {
			loc.Address = *entry.Address
		}
		closing = append(closing, locationLine(loc))
	}
	if entry.SignatureURL != "" {
		closing = append(closing, "Signature: "+entry.SignatureURL)
	}
	letter := export.Letter{Title: letterTitle, Preamble: preamble, Table: export.Dataset{Headers: letterHeaders, Rows: rows}, Closing: closing}
	return s.render(letter, format, "liquidation_"+sanitizeFilename(entry.ID))
}

func (s *ExportService) render(letter export.Letter, format, basename string) (*ExportDocument, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatPDF
	}
	var (
		data        []byte
		err         error
		contentType string
	)
	switch format {
	case FormatPDF:
		data, err = s.pdf.RenderLetter(letter)
		contentType = "application/pdf"
	case FormatXLSX:
		data, err = s.xlsx.RenderLetter(letter, letterSheet)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatCSV:
		data, err = s.csv.RenderLetter(letter)
		contentType = "text/csv"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %s", format))
	}
	if err != nil {
		s.logger.Error("failed to render letter", zap.String("format", format), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render letter")
	}
	return &ExportDocument{Filename: basename + "." + format, ContentType: contentType, Data: data}, nil
}

func letterRow(product, sku string, previous, current, farmer int, retailers []string) map[string]string {
	direction := "Return"
	if current < previous {
		direction = "Outward"
	}
	allocations := strings.Join(retailers, "; ")
	if allocations == "" {
		allocations = "-"
	}
	return map[string]string{
		"Product":              product,
		"SKU":                  sku,
		"Previous Stock":       strconv.Itoa(previous),
		"New Stock":            strconv.Itoa(current),
		"Difference":           strconv.Itoa(current - previous),
		"Direction":            direction,
		"Farmer Qty":           strconv.Itoa(farmer),
		"Retailer Allocations": allocations,
	}
}

func verifierLine(name, designation, role string) string {
	line := "Verified by: " + name
	switch {
	case designation != "":
		line += " (" + designation + ")"
	case role != "":
		line += " (" + role + ")"
	}
	return line
}

func locationLine(loc *workflow.Location) string {
	if loc == nil {
		return ""
	}
	line := fmt.Sprintf("Location: %.6f, %.6f", loc.Latitude, loc.Longitude)
	if loc.Address != "" {
		line += " - " + loc.Address
	}
	return line
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
