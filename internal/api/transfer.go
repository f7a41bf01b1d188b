package api

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/usagereg/usagereg/internal/bulk"
	"github.com/usagereg/usagereg/internal/catalog"
	"github.com/usagereg/usagereg/internal/platform/httpx"
	"github.com/usagereg/usagereg/internal/shared"
)

// MaxImportSize caps uploaded import files.
const MaxImportSize = 10 << 20

const (
	xlsxType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	csvType  = "text/csv; charset=utf-8"
)

// upload reads the "file" part of a multipart import request.
func upload(w http.ResponseWriter, r *http.Request, entity catalog.Entity) (string, []byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxImportSize+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, shared.E(shared.KindFileParse, "import", string(entity), err)
	}
	defer func() {
		_ = file.Close()
	}()
	data, err := io.ReadAll(io.LimitReader(file, MaxImportSize+1))
	if err != nil {
		return "", nil, shared.E(shared.KindFileParse, "import", string(entity), err)
	}
	if len(data) > MaxImportSize {
		return "", nil, shared.E(shared.KindValidation, "import", string(entity), fmt.Errorf("bestand groter dan %d MB", MaxImportSize>>20))
	}
	return header.Filename, data, nil
}

func importMessage(noun string, report bulk.Report) string {
	msg := fmt.Sprintf("%d %s geïmporteerd", report.Created, noun)
	if report.ErrorCount > 0 {
		msg += fmt.Sprintf(", %d fouten", report.ErrorCount)
	}
	return msg
}

// enqueue hands the upload to the worker when one is configured.
func (h *Handler) enqueue(w http.ResponseWriter, r *http.Request, entity catalog.Entity, filename string, data []byte) bool {
	if h.imports == nil {
		return false
	}
	id, err := h.imports.EnqueueImport(r.Context(), entity, filename, data)
	if err != nil {
		h.fail(w, r, "enqueue import", shared.E(shared.KindConnectivity, "enqueue", string(entity), err))
		return true
	}
	httpx.Success(w, http.StatusAccepted, "Import gestart", map[string]string{"job": id})
	return true
}

func (h *Handler) importUsers(w http.ResponseWriter, r *http.Request) {
	filename, data, err := upload(w, r, catalog.EntityUsers)
	if err != nil {
		h.fail(w, r, "import users", err)
		return
	}
	rows, err := bulk.ParseUsers(filename, bytes.NewReader(data))
	if err != nil {
		h.fail(w, r, "import users", err)
		return
	}
	if h.enqueue(w, r, catalog.EntityUsers, filename, data) {
		return
	}
	report, err := h.sync.ImportUsers(r.Context(), rows)
	if err != nil {
		h.fail(w, r, "import users", err)
		return
	}
	httpx.Success(w, http.StatusOK, importMessage("gebruikers", report), report)
}

func (h *Handler) importProducts(w http.ResponseWriter, r *http.Request) {
	filename, data, err := upload(w, r, catalog.EntityProducts)
	if err != nil {
		h.fail(w, r, "import products", err)
		return
	}
	rows, err := bulk.ParseProducts(bytes.NewReader(data))
	if err != nil {
		h.fail(w, r, "import products", err)
		return
	}
	if h.enqueue(w, r, catalog.EntityProducts, filename, data) {
		return
	}
	report, err := h.sync.ImportProducts(r.Context(), rows)
	if err != nil {
		h.fail(w, r, "import products", err)
		return
	}
	httpx.Success(w, http.StatusOK, importMessage("producten", report), report)
}

func download(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func today() string {
	return time.Now().Format(catalog.DateLayout)
}

func (h *Handler) exportUsers(w http.ResponseWriter, r *http.Request) {
	data, err := bulk.ExportUsers(h.sync.Users(), h.emailDomain)
	if err != nil {
		h.fail(w, r, "export users", err)
		return
	}
	download(w, xlsxType, "gebruikers-"+today()+".xlsx", data)
}

func (h *Handler) exportUserTemplate(w http.ResponseWriter, r *http.Request) {
	data, err := bulk.UserTemplate(h.emailDomain)
	if err != nil {
		h.fail(w, r, "export template", err)
		return
	}
	download(w, xlsxType, "gebruikers-template.xlsx", data)
}

func (h *Handler) exportProducts(w http.ResponseWriter, r *http.Request) {
	data, err := bulk.ExportProducts(h.sync.Products(), h.sync.Categories())
	if err != nil {
		h.fail(w, r, "export products", err)
		return
	}
	download(w, csvType, "producten-"+today()+".csv", data)
}

func (h *Handler) exportQRLabels(w http.ResponseWriter, r *http.Request) {
	data, err := bulk.ExportQRLabels(h.sync.Products())
	if err != nil {
		h.fail(w, r, "export qr labels", err)
		return
	}
	download(w, csvType, "qr-labels-"+today()+".csv", data)
}

func (h *Handler) exportRegistrations(w http.ResponseWriter, r *http.Request) {
	data, err := bulk.ExportRegistrations(h.sync.Registrations())
	if err != nil {
		h.fail(w, r, "export registrations", err)
		return
	}
	download(w, xlsxType, "registraties-"+today()+".xlsx", data)
}
