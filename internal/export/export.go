// Package export turns report snapshots into downloadable documents. The
// document rendering itself is delegated to a DocumentExporter; this package
// owns the report view, the artifact naming and the upload.
package export

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"time"

	"log/slog"

	"github.com/simpledough/dough-manager/internal/currency"
	"github.com/simpledough/dough-manager/internal/dependency"
	"github.com/simpledough/dough-manager/internal/entity"
)

//go:embed templates/*.gohtml
var templatesFS embed.FS

const (
	filenamePrefix = "simple-dough-report"
	filenameDate   = "2006-01-02"
	viewTemplate   = "report_view.gohtml"
)

// Filename derives the artifact name for one export:
// simple-dough-report-<range>-<YYYY-MM-DD>.pdf.
func Filename(token entity.RangeToken, now time.Time) string {
	return fmt.Sprintf("%s-%s-%s.pdf", filenamePrefix, token, now.Format(filenameDate))
}

type Service struct {
	exporter  dependency.DocumentExporter
	artifacts dependency.ArtifactStore
	tmpl      *template.Template
	now       func() time.Time
}

func New(exporter dependency.DocumentExporter, artifacts dependency.ArtifactStore) (*Service, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/"+viewTemplate)
	if err != nil {
		return nil, fmt.Errorf("can't parse report view template: %w", err)
	}
	return &Service{
		exporter:  exporter,
		artifacts: artifacts,
		tmpl:      tmpl,
		now:       time.Now,
	}, nil
}

type viewProduct struct {
	Name     string
	Quantity int
	Revenue  string
}

type viewDay struct {
	Label   string
	Revenue string
	Orders  int
}

type viewData struct {
	RangeLabel    string
	GeneratedAt   string
	TotalRevenue  string
	TotalOrders   int
	AvgOrderValue string
	TopProducts   []viewProduct
	RevenueByDay  []viewDay
	ByStatus      map[string]int
	ByPayment     map[string]int
}

// RenderView renders the printable HTML view of a snapshot.
func (s *Service) RenderView(snap *entity.ReportSnapshot, token entity.RangeToken) ([]byte, error) {
	data := viewData{
		RangeLabel:    string(token),
		GeneratedAt:   s.now().Format("Jan 2, 2006 15:04"),
		TotalRevenue:  currency.Peso(snap.TotalRevenue),
		TotalOrders:   snap.TotalOrders,
		AvgOrderValue: currency.PesoExact(snap.AvgOrderValue),
		ByStatus:      snap.OrdersByStatus,
		ByPayment:     snap.PaymentMethods,
	}
	for _, ps := range snap.TopProducts {
		data.TopProducts = append(data.TopProducts, viewProduct{
			Name:     ps.Name,
			Quantity: ps.Quantity,
			Revenue:  currency.PesoExact(ps.Revenue),
		})
	}
	for _, db := range snap.RevenueByDay {
		data.RevenueByDay = append(data.RevenueByDay, viewDay{
			Label:   db.Label,
			Revenue: currency.PesoExact(db.Revenue),
			Orders:  db.Orders,
		})
	}

	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("can't render report view: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportReport renders the snapshot, exports it as a document and uploads
// the artifact, returning its URL.
func (s *Service) ExportReport(ctx context.Context, snap *entity.ReportSnapshot, token entity.RangeToken) (string, error) {
	view, err := s.RenderView(snap, token)
	if err != nil {
		return "", err
	}

	artifact, contentType, err := s.exporter.Export(ctx, view)
	if err != nil {
		return "", fmt.Errorf("document export failed: %w", err)
	}

	name := Filename(token, s.now())
	url, err := s.artifacts.UploadReportDocument(ctx, name, artifact, contentType)
	if err != nil {
		return "", fmt.Errorf("can't upload report artifact: %w", err)
	}

	slog.Default().InfoContext(ctx, "exported report",
		slog.String("name", name),
		slog.String("range", string(token)),
	)
	return url, nil
}
