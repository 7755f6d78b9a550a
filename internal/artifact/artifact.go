// Package artifact renders the downloadable prescription document for a
// confirmed encounter and stores it for later retrieval.
package artifact

import (
	"bytes"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/signintech/gopdf"

	"diagnosis-decoder/internal/encounter"
)

// PDFGenerator renders encounters with gopdf.
type PDFGenerator struct {
	fontPaths []string
}

// NewPDFGenerator creates a generator. Without WithFontPaths it probes the
// usual DejaVuSans locations.
func NewPDFGenerator(opts ...GeneratorOption) *PDFGenerator {
	g := &PDFGenerator{
		fontPaths: []string{
			"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
			"/usr/share/fonts/dejavu/DejaVuSans.ttf",
			"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		},
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// GeneratorOption configures the generator.
type GeneratorOption func(*PDFGenerator)

// WithFontPaths overrides the TTF font search paths.
func WithFontPaths(paths ...string) GeneratorOption {
	return func(g *PDFGenerator) {
		g.fontPaths = paths
	}
}

// Generate renders the prescription document for a confirmed encounter.
func (g *PDFGenerator) Generate(e *encounter.Encounter) ([]byte, error) {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	var fontErr error
	fontLoaded := false
	for _, path := range g.fontPaths {
		if err := pdf.AddTTFFont("DejaVu", path); err == nil {
			fontLoaded = true
			break
		} else {
			fontErr = err
		}
	}
	if !fontLoaded {
		return nil, eris.Wrap(fontErr, "artifact: load font")
	}

	if err := pdf.SetFont("DejaVu", "", 20); err != nil {
		return nil, eris.Wrap(err, "artifact: set font")
	}
	pdf.Cell(nil, "Prescription")
	pdf.Br(30)

	if err := pdf.SetFont("DejaVu", "", 12); err != nil {
		return nil, eris.Wrap(err, "artifact: set font")
	}
	pdf.Cell(nil, fmt.Sprintf("Date: %s", e.CreatedAt.Format("2006-01-02 15:04")))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("Patient: %s", e.PatientEmail))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("Diagnosis: %s", e.FinalDiagnosis))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("Risk level: %s", e.RiskLevel))
	pdf.Br(25)

	if err := pdf.SetFont("DejaVu", "", 14); err != nil {
		return nil, eris.Wrap(err, "artifact: set font")
	}
	pdf.Cell(nil, "Treatment:")
	pdf.Br(15)

	if err := pdf.SetFont("DejaVu", "", 11); err != nil {
		return nil, eris.Wrap(err, "artifact: set font")
	}
	writeLine := func(line string) {
		lines, _ := pdf.SplitText(line, 500)
		for _, l := range lines {
			pdf.Cell(nil, l)
			pdf.Br(12)
		}
	}
	writeLine("Medication: " + e.Prescription.Medication)
	writeLine("Dosage: " + e.Prescription.Dosage)
	writeLine("Instructions: " + e.Prescription.Instructions)
	pdf.Br(10)

	if len(e.Symptoms) > 0 {
		if err := pdf.SetFont("DejaVu", "", 14); err != nil {
			return nil, eris.Wrap(err, "artifact: set font")
		}
		pdf.Cell(nil, "Reported symptoms:")
		pdf.Br(15)
		if err := pdf.SetFont("DejaVu", "", 11); err != nil {
			return nil, eris.Wrap(err, "artifact: set font")
		}
		for _, s := range e.Symptoms {
			writeLine("- " + s.Name)
		}
		pdf.Br(10)
	}

	if len(e.EdgeCases) > 0 {
		if err := pdf.SetFont("DejaVu", "", 14); err != nil {
			return nil, eris.Wrap(err, "artifact: set font")
		}
		pdf.Cell(nil, "Conditions to monitor:")
		pdf.Br(15)
		if err := pdf.SetFont("DejaVu", "", 11); err != nil {
			return nil, eris.Wrap(err, "artifact: set font")
		}
		for _, ec := range e.EdgeCases {
			line := "- " + ec.Name
			if ec.FurtherSteps != "" {
				line += ": " + ec.FurtherSteps
			}
			writeLine(line)
		}
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, eris.Wrap(err, "artifact: write pdf")
	}
	return buf.Bytes(), nil
}
