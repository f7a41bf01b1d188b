package bulk

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xuri/excelize/v2"

	"github.com/usagereg/usagereg/internal/catalog"
)

// Users sheet columns.
const (
	ColName     = "Naam"
	ColEmail    = "Email"
	ColPassword = "Wachtwoord"
	ColLevel    = "Niveau"
	ColBadge    = "Badge Code"
)

const (
	usersSheet    = "Gebruikers"
	templateSheet = "Gebruikers Template"
)

var userColumns = []string{ColName, ColEmail, ColPassword, ColLevel, ColBadge}

// UserRow is one line of a users import.
type UserRow struct {
	Row       int          `json:"row"`
	Name      string       `json:"name" validate:"required"`
	Email     string       `json:"email" validate:"required"`
	Password  string       `json:"-" validate:"required,min=6"`
	Level     catalog.Role `json:"level"`
	BadgeCode string       `json:"badgeCode"`
}

// Problem returns a human readable reason when the row cannot be imported.
func (u UserRow) Problem() string {
	err := catalog.Validator().Struct(u)
	if err == nil {
		return ""
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err.Error()
	}
	fe := fieldErrs[0]
	if fe.Tag() == "min" {
		return fmt.Sprintf("Wachtwoord moet minimaal %d tekens lang zijn", catalog.MinPasswordLength)
	}
	return fmt.Sprintf("Verplicht veld ontbreekt: %s", columnFor(fe.Field()))
}

func columnFor(field string) string {
	switch field {
	case "Name":
		return ColName
	case "Email":
		return ColEmail
	case "Password":
		return ColPassword
	}
	return field
}

// ParseUsers reads a users sheet. File level problems abort with a file-parse
// error; row level problems are left for the importer to count.
func ParseUsers(filename string, r io.Reader) ([]UserRow, error) {
	sheet, err := ReadSheet(filename, r)
	if err != nil {
		return nil, err
	}
	if !sheet.HasColumn(ColName) {
		return nil, parseError("parse", fmt.Errorf("kolom %q ontbreekt", ColName))
	}
	rows := make([]UserRow, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		level := catalog.RoleUser
		if row.Get(ColLevel) != "" {
			level = catalog.ParseRole(strings.ToLower(row.Get(ColLevel)))
		}
		rows = append(rows, UserRow{
			Row:       row.Line,
			Name:      row.Get(ColName),
			Email:     row.Get(ColEmail),
			Password:  row.Get(ColPassword),
			Level:     level,
			BadgeCode: row.Get(ColBadge),
		})
	}
	return rows, nil
}

var whitespace = regexp.MustCompile(`\s+`)

// GeneratedEmail builds the address shown for a user in exports.
func GeneratedEmail(name, domain string) string {
	return whitespace.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), ".") + "@" + domain
}

// ExportUsers writes users to an .xlsx workbook. Passwords are never exported.
func ExportUsers(users []catalog.User, domain string) ([]byte, error) {
	rows := make([][]any, 0, len(users))
	for _, u := range users {
		rows = append(rows, []any{u.Name, GeneratedEmail(u.Name, domain), "", string(u.Role), u.BadgeCode})
	}
	return writeWorkbook(usersSheet, userColumns, []float64{25, 30, 15, 10, 15}, rows)
}

// UserTemplate returns an .xlsx file with the import columns and two examples.
func UserTemplate(domain string) ([]byte, error) {
	rows := [][]any{
		{"Jan Janssen", GeneratedEmail("Jan Janssen", domain), "wachtwoord123", "user", "BADGE001"},
		{"Marie Peeters", GeneratedEmail("Marie Peeters", domain), "veiligwachtwoord", "admin", "BADGE002"},
	}
	return writeWorkbook(templateSheet, userColumns, []float64{25, 30, 20, 10, 15}, rows)
}

func writeWorkbook(sheet string, header []string, widths []float64, rows [][]any) ([]byte, error) {
	file := excelize.NewFile()
	defer func() { _ = file.Close() }()

	if err := file.SetSheetName(file.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("bulk: rename sheet: %w", err)
	}
	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := file.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return nil, fmt.Errorf("bulk: write header: %w", err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := row
		if err := file.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("bulk: write row %d: %w", i+2, err)
		}
	}
	for i, width := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := file.SetColWidth(sheet, col, col, width); err != nil {
			return nil, fmt.Errorf("bulk: column width: %w", err)
		}
	}
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("bulk: write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
