package bulk

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/usagereg/usagereg/internal/catalog"
	"github.com/usagereg/usagereg/internal/shared"
)

func TestParseUsersFromCSV(t *testing.T) {
	input := "Naam,Email,Wachtwoord,Niveau,Badge Code\n" +
		"Jan Janssen,jan@example.com,geheim1,admin,B1\n" +
		",,,,\n" +
		"Marie Peeters,marie@example.com,kort,,\n"

	rows, err := ParseUsers("users.csv", strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, UserRow{Row: 2, Name: "Jan Janssen", Email: "jan@example.com", Password: "geheim1", Level: catalog.RoleAdmin, BadgeCode: "B1"}, rows[0])
	assert.Equal(t, catalog.RoleUser, rows[1].Level)
	assert.Equal(t, 4, rows[1].Row)
}

func TestUserRowProblem(t *testing.T) {
	ok := UserRow{Name: "Jan", Email: "jan@example.com", Password: "geheim1"}
	assert.Empty(t, ok.Problem())

	short := ok
	short.Password = "abc"
	assert.Contains(t, short.Problem(), "minimaal 6")

	missing := ok
	missing.Email = ""
	assert.Contains(t, missing.Problem(), ColEmail)
}

func TestExportedUsersCanBeReadBack(t *testing.T) {
	users := []catalog.User{
		{Name: "An Wouters", Role: catalog.RoleUser, BadgeCode: "BADGE003"},
		{Name: "Piet Claes", Role: catalog.RoleAdmin},
	}
	data, err := ExportUsers(users, "example.com")
	require.NoError(t, err)

	file, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "Gebruikers", file.GetSheetName(0))
	width, err := file.GetColWidth("Gebruikers", "B")
	require.NoError(t, err)
	assert.Equal(t, 30.0, width)
	require.NoError(t, file.Close())

	rows, err := ParseUsers("export.xlsx", bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "an.wouters@example.com", rows[0].Email)
	assert.Equal(t, "BADGE003", rows[0].BadgeCode)
	assert.Empty(t, rows[0].Password)
	assert.Equal(t, catalog.RoleAdmin, rows[1].Level)
}

func TestUserTemplateRowsAreValid(t *testing.T) {
	data, err := UserTemplate("example.com")
	require.NoError(t, err)
	rows, err := ParseUsers("template.xlsx", bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Empty(t, row.Problem())
	}
}

func TestReadSheetRejectsBrokenFiles(t *testing.T) {
	_, err := ReadSheet("users.xlsx", strings.NewReader("not a zip"))
	assert.True(t, shared.IsKind(err, shared.KindFileParse))

	_, err = ReadSheet("users.csv", strings.NewReader("Naam,Email\n"))
	assert.True(t, shared.IsKind(err, shared.KindFileParse))

	_, err = ParseUsers("users.csv", strings.NewReader("Foo,Bar\n1,2\n"))
	assert.True(t, shared.IsKind(err, shared.KindFileParse))
}

func TestParseProducts(t *testing.T) {
	input := "\xEF\xBB\xBFProductnaam,Categorie\n Fin Oil ,Smeermiddelen\nLube Spray,\n"
	rows, err := ParseProducts(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, ProductRow{Row: 2, Name: "Fin Oil", Category: "Smeermiddelen"}, rows[0])
	assert.Equal(t, "", rows[1].Category)

	_, err = ParseProducts(strings.NewReader("Naam\nFin Oil\n"))
	assert.True(t, shared.IsKind(err, shared.KindFileParse))
}

func TestParseProductsHeaderIgnoresCase(t *testing.T) {
	rows, err := ParseProducts(strings.NewReader("productnaam, CATEGORIE \nWD40,Smeermiddelen\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ProductRow{Row: 2, Name: "WD40", Category: "Smeermiddelen"}, rows[0])
}

func TestExportProductsAndLabels(t *testing.T) {
	products := []catalog.Product{
		{ID: "1", Name: "Fin Oil", QRCode: "FO001", CategoryID: "1"},
		{ID: "2", Name: "Fin Grease"},
	}
	categories := []catalog.Category{{ID: "1", Name: "Smeermiddelen"}}

	data, err := ExportProducts(products, categories)
	require.NoError(t, err)
	assert.Equal(t, "Productnaam,Categorie\nFin Oil,Smeermiddelen\nFin Grease,\n", string(data))

	labels, err := ExportQRLabels(products)
	require.NoError(t, err)
	assert.Equal(t, "Productnaam,QR Code\nFin Oil,FO001\n", string(labels))
}

func TestGeneratedEmail(t *testing.T) {
	assert.Equal(t, "jan.van.dam@example.com", GeneratedEmail("  Jan  van Dam ", "example.com"))
}

func TestReportCounts(t *testing.T) {
	var r Report
	r.Created = 2
	r.Fail(3, "Verplicht veld ontbreekt: %s", ColName)
	r.Skip()

	var total Report
	total.Merge(r)
	assert.Equal(t, 2, total.Created)
	assert.Equal(t, 1, total.ErrorCount)
	assert.Equal(t, 1, total.Skipped)
	assert.Equal(t, RowError{Row: 3, Reason: "Verplicht veld ontbreekt: Naam"}, total.Errors[0])
}
