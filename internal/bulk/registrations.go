package bulk

import (
	"github.com/usagereg/usagereg/internal/catalog"
)

const registrationsSheet = "Registraties"

var registrationColumns = []string{"Datum", "Tijd", "Gebruiker", "Product", "QR Code", "Locatie", "Doel"}

// ExportRegistrations writes the usage history to an .xlsx workbook.
func ExportRegistrations(regs []catalog.Registration) ([]byte, error) {
	rows := make([][]any, 0, len(regs))
	for _, r := range regs {
		rows = append(rows, []any{r.Date, r.Time, r.User, r.Product, r.QRCode, r.Location, r.Purpose})
	}
	return writeWorkbook(registrationsSheet, registrationColumns, []float64{12, 8, 25, 40, 12, 25, 20}, rows)
}
