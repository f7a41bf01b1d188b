package bulk

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/usagereg/usagereg/internal/catalog"
)

// Product CSV columns.
const (
	ColProductName = "Productnaam"
	ColCategory    = "Categorie"
	ColQRCode      = "QR Code"
)

// ProductRow is one line of the products CSV.
type ProductRow struct {
	Row      int    `csv:"-" json:"row"`
	Name     string `csv:"Productnaam" json:"name"`
	Category string `csv:"Categorie" json:"category"`
}

type qrLabelRow struct {
	Name   string `csv:"Productnaam"`
	QRCode string `csv:"QR Code"`
}

// ParseProducts reads the products CSV. Headers match case-insensitively; a
// missing Productnaam column aborts the batch.
func ParseProducts(r io.Reader) ([]ProductRow, error) {
	sheet, err := ReadSheet("products.csv", r)
	if err != nil {
		return nil, err
	}
	if !sheet.HasColumn(ColProductName) {
		return nil, parseError("parse", fmt.Errorf("ongeldig CSV formaat: kolom A: %s, kolom B: %s", ColProductName, ColCategory))
	}

	rows := make([]ProductRow, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		rows = append(rows, ProductRow{
			Row:      row.Line,
			Name:     row.Get(ColProductName),
			Category: row.Get(ColCategory),
		})
	}
	return rows, nil
}

// ExportProducts writes products with their category name.
func ExportProducts(products []catalog.Product, categories []catalog.Category) ([]byte, error) {
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}
	rows := make([]ProductRow, 0, len(products))
	for _, p := range products {
		rows = append(rows, ProductRow{Name: p.Name, Category: names[p.CategoryID]})
	}
	out, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return nil, fmt.Errorf("bulk: export products: %w", err)
	}
	return out, nil
}

// ExportQRLabels writes name and code of every product that has a code, in
// the layout label printers import.
func ExportQRLabels(products []catalog.Product) ([]byte, error) {
	rows := make([]qrLabelRow, 0, len(products))
	for _, p := range products {
		if p.QRCode == "" {
			continue
		}
		rows = append(rows, qrLabelRow{Name: p.Name, QRCode: p.QRCode})
	}
	out, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		return nil, fmt.Errorf("bulk: export qr labels: %w", err)
	}
	return out, nil
}
