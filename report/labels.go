package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/usagereg/usagereg/internal/catalog"
	"github.com/usagereg/usagereg/internal/qrcode"
	"github.com/usagereg/usagereg/internal/shared"
)

// LabelSize is the pixel size of a QR code on the label sheet.
const LabelSize = 150

var labelSheet = template.Must(template.New("labels").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title>
<style>
body { font-family: sans-serif; }
.label { display: inline-block; width: 180px; margin: 10px; text-align: center; page-break-inside: avoid; }
.label img { width: {{.Size}}px; height: {{.Size}}px; margin-bottom: 5px; }
.label p { margin: 2px 0; font-size: 12px; }
</style></head><body>
{{range .Labels}}<div class="label"><img src="{{.Image}}" alt="{{.Name}}"><p><strong>{{.Name}}</strong></p><p>QR Code: {{.Code}}</p></div>
{{end}}</body></html>`))

type label struct {
	Name  string
	Code  string
	Image string
}

// LabelSheet builds the HTML label sheet for the products that carry a QR
// code, plus the PNG files it references.
func LabelSheet(products []catalog.Product) (string, map[string][]byte, error) {
	var labels []label
	assets := make(map[string][]byte)
	for i, p := range products {
		if p.QRCode == "" {
			continue
		}
		png, err := qrcode.PNG(p.QRCode, LabelSize)
		if err != nil {
			return "", nil, fmt.Errorf("report: qr %s: %w", p.QRCode, err)
		}
		file := fmt.Sprintf("qr-%d.png", i)
		assets[file] = png
		labels = append(labels, label{Name: p.Name, Code: p.QRCode, Image: file})
	}
	if len(labels) == 0 {
		return "", nil, shared.E(shared.KindNotFound, "labels", string(catalog.EntityProducts),
			fmt.Errorf("Geen producten met QR codes gevonden: %w", shared.ErrNotFound))
	}
	var buf bytes.Buffer
	err := labelSheet.Execute(&buf, struct {
		Title  string
		Size   int
		Labels []label
	}{Title: "QR Codes", Size: LabelSize, Labels: labels})
	if err != nil {
		return "", nil, err
	}
	return buf.String(), assets, nil
}

// RenderLabels renders the label sheet of products to PDF.
func (c *Client) RenderLabels(ctx context.Context, products []catalog.Product) ([]byte, error) {
	html, assets, err := LabelSheet(products)
	if err != nil {
		return nil, err
	}
	return c.RenderHTML(ctx, html, assets)
}
