package api

import (
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/usagereg/usagereg/internal/catalog"
	"github.com/usagereg/usagereg/internal/platform/httpx"
	"github.com/usagereg/usagereg/internal/qrcode"
	"github.com/usagereg/usagereg/internal/shared"
	"github.com/usagereg/usagereg/internal/synchronizer"
)

const defaultQRSize = 256

func (h *Handler) resolveQR(w http.ResponseWriter, r *http.Request) {
	p, err := h.sync.ResolveQRCode(pathName(r, "code"))
	if err != nil {
		h.fail(w, r, "resolve qr", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) qrImage(w http.ResponseWriter, r *http.Request) {
	p, ok := h.sync.FindProduct(chi.URLParam(r, "id"))
	if !ok || p.QRCode == "" {
		h.fail(w, r, "qr image", shared.E(shared.KindNotFound, "qr", string(catalog.EntityProducts), shared.ErrNotFound))
		return
	}
	size := defaultQRSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 1024 {
			size = n
		}
	}
	png, err := qrcode.PNG(p.QRCode, size)
	if err != nil {
		h.fail(w, r, "qr image", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": p.QRCode + ".png"}))
	_, _ = w.Write(png)
}

func (h *Handler) generateQR(w http.ResponseWriter, r *http.Request) {
	code, err := h.sync.GenerateQRCode(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "generate qr", err)
		return
	}
	httpx.Success(w, http.StatusOK, "QR code gegenereerd: "+code, map[string]string{"qrcode": code})
}

// attach accepts a multipart form with a single "file" part.
func (h *Handler) attach(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, synchronizer.MaxAttachmentSize+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		h.fail(w, r, "attach", shared.E(shared.KindFileParse, "attach", string(catalog.EntityProducts), err))
		return
	}
	defer func() {
		_ = file.Close()
	}()
	if err := h.sync.AttachFile(r.Context(), chi.URLParam(r, "id"), header.Filename, file); err != nil {
		h.fail(w, r, "attach", err)
		return
	}
	httpx.Success(w, http.StatusOK, "Bijlage opgeslagen", nil)
}

func (h *Handler) detach(w http.ResponseWriter, r *http.Request) {
	if err := h.sync.RemoveAttachment(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "detach", err)
		return
	}
	httpx.Success(w, http.StatusOK, "Bijlage verwijderd", nil)
}

func (h *Handler) openAttachment(w http.ResponseWriter, r *http.Request) {
	blob, err := h.sync.OpenAttachment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "open attachment", err)
		return
	}
	defer func() {
		_ = blob.Body.Close()
	}()
	w.Header().Set("Content-Type", blob.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": blob.Name}))
	if blob.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(blob.Size, 10))
	}
	_, _ = io.Copy(w, blob.Body)
}
