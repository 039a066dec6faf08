package receipt

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"
	"github.com/skip2/go-qrcode"
	"github.com/tiibntick/service-expedition/internal/platform/apperr"
	"go.uber.org/zap"
)

const (
	brandName   = "TickBnPick"
	brandSlogan = "Votre solution de livraison de confiance"

	margin = 15.0
	qrSize = 30.0
)

var brandOrange = [3]int{249, 115, 22}

// Renderer lays out receipts on A4 portrait pages.
type Renderer struct {
	logger   *zap.Logger
	compress bool
}

// NewRenderer creates a Renderer.
func NewRenderer(logger *zap.Logger) *Renderer {
	return &Renderer{logger: logger, compress: true}
}

// Render writes the PDF for r to w. Nothing is written when assembly fails.
func (rd *Renderer) Render(w io.Writer, r Receipt) error {
	var buf bytes.Buffer
	if err := rd.render(&buf, r); err != nil {
		rd.logger.Error("failed to render receipt",
			zap.String("tracking_number", r.TrackingNumber),
			zap.Error(err),
		)
		return err
	}
	if _, err := buf.WriteTo(w); err != nil {
		return apperr.NewRenderError("failed to write receipt", err)
	}
	return nil
}

// Save renders r into dir/Bordereau_{tracking}.pdf and returns the path.
// The file is only created once the document is fully assembled.
func (rd *Renderer) Save(dir string, r Receipt) (string, error) {
	var buf bytes.Buffer
	if err := rd.Render(&buf, r); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperr.NewRenderError("failed to create receipt directory", err)
	}
	path := filepath.Join(dir, r.FileName())
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", apperr.NewRenderError("failed to save receipt", err)
	}
	rd.logger.Info("receipt saved", zap.String("path", path))
	return path, nil
}

type page struct {
	pdf   *fpdf.Fpdf
	tr    func(string) string
	width float64
	y     float64
}

// render assembles the document. fpdf panics on some corrupt image chunks, so a
// panic here is turned into a RenderError.
func (rd *Renderer) render(w io.Writer, r Receipt) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = apperr.NewRenderError("failed to assemble receipt", fmt.Errorf("%v", rec))
		}
	}()

	qr, err := qrcode.Encode(r.TrackingNumber, qrcode.Medium, 256)
	if err != nil {
		return apperr.NewRenderError("failed to encode tracking QR code", err)
	}
	var photo, signature *Image
	if r.Photo != "" {
		img, err := DecodeDataURL(r.Photo)
		if err != nil {
			return fmt.Errorf("parcel photo: %w", err)
		}
		photo = &img
	}
	if r.Signature != "" {
		img, err := DecodeDataURL(r.Signature)
		if err != nil {
			return fmt.Errorf("signature: %w", err)
		}
		signature = &img
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(rd.compress)
	pdf.SetCreationDate(r.GeneratedAt)
	pdf.SetTitle(r.FileName(), true)
	pdf.SetAuthor(brandName, true)
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	width, _ := pdf.GetPageSize()
	p := &page{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), width: width, y: 20}

	p.header(r, qr)
	p.parties(r)
	p.parcel(r, photo)
	p.financials(r)
	p.signatures(signature)
	p.footer(r)

	if err := pdf.Error(); err != nil {
		return apperr.NewRenderError("failed to assemble receipt", err)
	}
	if err := pdf.Output(w); err != nil {
		return apperr.NewRenderError("failed to output receipt", err)
	}
	return nil
}

func (p *page) text(x, y float64, s string) {
	p.pdf.Text(x, y, p.tr(s))
}

// textRight right-aligns s so that it ends at x.
func (p *page) textRight(x, y float64, s string) {
	s = p.tr(s)
	p.pdf.Text(x-p.pdf.GetStringWidth(s), y, s)
}

func (p *page) textCenter(y float64, s string) {
	s = p.tr(s)
	p.pdf.Text((p.width-p.pdf.GetStringWidth(s))/2, y, s)
}

func (p *page) sectionTitle(title string) {
	p.pdf.SetFont("Helvetica", "B", 12)
	p.pdf.SetTextColor(45, 55, 72)
	p.text(margin, p.y, title)
	p.y += 2
	p.pdf.SetDrawColor(45, 55, 72)
	p.pdf.SetLineWidth(0.5)
	p.pdf.Line(margin, p.y, p.width-margin, p.y)
	p.y += 8
}

func (p *page) field(label, value string, x, y float64) {
	if value == "" {
		value = "N/A"
	}
	p.pdf.SetFont("Helvetica", "B", 9)
	p.pdf.SetTextColor(0, 0, 0)
	prefix := label + ": "
	p.text(x, y, prefix)

	p.pdf.SetFont("Helvetica", "", 9)
	p.pdf.SetTextColor(60, 60, 60)
	p.text(x+p.pdf.GetStringWidth(p.tr(prefix))+1, y, value)
}

func (p *page) image(name string, img Image, x, y, w, h float64) {
	opts := fpdf.ImageOptions{ImageType: img.Type}
	p.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.Data))
	p.pdf.ImageOptions(name, x, y, w, h, false, opts, 0, "")
}

func (p *page) header(r Receipt, qr []byte) {
	p.pdf.SetFont("Helvetica", "B", 22)
	p.pdf.SetTextColor(brandOrange[0], brandOrange[1], brandOrange[2])
	p.text(margin, p.y, brandName)

	p.y += 6
	p.pdf.SetFont("Helvetica", "", 9)
	p.pdf.SetTextColor(120, 120, 120)
	p.text(margin, p.y, brandSlogan)

	p.image("qr", Image{Type: "PNG", Data: qr}, p.width-margin-qrSize, 12, qrSize, qrSize)

	right := p.width - margin - 32
	p.pdf.SetTextColor(0, 0, 0)
	p.pdf.SetFont("Helvetica", "B", 11)
	p.textRight(right, 17, "Bordereau d'Expédition")
	p.pdf.SetFont("Helvetica", "", 8)
	p.textRight(right, 21, "N°: "+r.TrackingNumber)
	p.textRight(right, 25, "Date: "+r.GeneratedAt.Format("02/01/2006"))

	p.y += 25
}

func (p *page) parties(r Receipt) {
	p.sectionTitle("Intervenants")
	top := p.y

	p.field("Expéditeur", r.SenderName, margin, p.y)
	p.y += 6
	p.field("Téléphone", r.SenderPhone, margin, p.y)
	p.y += 6
	p.field("Dépôt", r.DeparturePoint, margin, p.y)

	col2 := p.width/2 + 5
	y2 := top
	p.field("Destinataire", r.RecipientName, col2, y2)
	y2 += 6
	p.field("Téléphone", r.RecipientPhone, col2, y2)
	y2 += 6
	p.field("Point de Retrait", r.ArrivalPoint, col2, y2)

	if y2 > p.y {
		p.y = y2
	}
	p.y += 15
}

func (p *page) parcel(r Receipt, photo *Image) {
	p.sectionTitle("Détails du colis")
	top := p.y

	p.field("Désignation", r.Designation, margin, p.y)
	p.y += 6
	p.field("Poids", formatWeight(r.WeightKg), margin, p.y)
	p.y += 6
	p.field("Spécificités", r.Handling(), margin, p.y)

	if photo != nil {
		p.image("photo", *photo, p.width-margin-50, top-5, 50, 40)
	}
	p.y = top + 45
}

func (p *page) financials(r Receipt) {
	p.sectionTitle("Récapitulatif Financier")

	p.field("Coût de base", FormatAmount(r.BasePrice), margin, p.y)
	p.y += 6
	p.field("Frais de trajet", FormatAmount(r.TravelPrice), margin, p.y)
	if r.OperatorFee > 0 {
		p.y += 6
		p.field("Frais opérateur", FormatAmount(r.OperatorFee), margin, p.y)
	}
	p.y += 12

	p.field(r.TotalLabel(), FormatAmount(r.Total()), margin, p.y)
	p.y += 20
}

func (p *page) signatures(signature *Image) {
	p.sectionTitle("Signature")
	y := p.y

	p.pdf.SetFont("Helvetica", "B", 9)
	p.pdf.SetTextColor(0, 0, 0)
	p.pdf.SetLineWidth(0.2)
	p.text(margin+20, y, "Client")
	p.pdf.Line(margin+20, y+1, margin+31, y+1)

	agentX := p.width - margin - 35
	p.text(agentX, y, "Agent")
	p.pdf.Line(agentX, y+1, agentX+12, y+1)

	if signature != nil {
		p.image("signature", *signature, margin+10, y+5, 40, 20)
	}
	p.y += 45
}

func (p *page) footer(r Receipt) {
	_, height := p.pdf.GetPageSize()
	y := height - 10

	p.pdf.SetFont("Helvetica", "", 7)
	p.pdf.SetTextColor(150, 150, 150)
	p.pdf.SetDrawColor(200, 200, 200)
	p.pdf.SetLineWidth(0.2)
	p.pdf.Line(margin, y-5, p.width-margin, y-5)

	p.textCenter(y-2, fmt.Sprintf("Document généré le %s.", r.GeneratedAt.Format("02/01/2006 15:04:05")))
	p.textCenter(y+1, fmt.Sprintf("Ce document fait office de preuve de dépôt. %s vous remercie.", brandName))
}
