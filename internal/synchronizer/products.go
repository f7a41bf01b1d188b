package synchronizer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/usagereg/usagereg/internal/catalog"
	"github.com/usagereg/usagereg/internal/qrcode"
	"github.com/usagereg/usagereg/internal/remote"
	"github.com/usagereg/usagereg/internal/shared"
)

// MaxAttachmentSize caps uploaded product documents.
const MaxAttachmentSize = 20 << 20

const pdfMIME = "application/pdf"

// Products returns the local products.
func (s *Synchronizer) Products() []catalog.Product {
	return s.products.list()
}

// FindProduct looks a product up by id.
func (s *Synchronizer) FindProduct(id string) (catalog.Product, bool) {
	return s.products.find(func(p catalog.Product) bool { return p.ID == id })
}

// ResolveQRCode finds the product carrying a scanned code.
func (s *Synchronizer) ResolveQRCode(code string) (catalog.Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return catalog.Product{}, shared.E(shared.KindValidation, "scan", string(catalog.EntityProducts), fmt.Errorf("qrcode: %w", shared.ErrRequiredField))
	}
	p, ok := s.products.find(func(p catalog.Product) bool { return strings.EqualFold(p.QRCode, code) })
	if !ok {
		return catalog.Product{}, notFound("scan", catalog.EntityProducts)
	}
	return p, nil
}

func (s *Synchronizer) checkProduct(p catalog.Product, exceptID string) error {
	if err := catalog.Validate(catalog.EntityProducts, p); err != nil {
		return err
	}
	if catalog.Conflict(s.products.list(), func(o catalog.Product) string { return o.QRCode }, p.QRCode, exceptID) {
		return catalog.DuplicateError(catalog.EntityProducts, "qrcode", p.QRCode)
	}
	return nil
}

// CreateProduct adds a product and returns it as stored, with its generated id.
func (s *Synchronizer) CreateProduct(ctx context.Context, p catalog.Product) (catalog.Product, error) {
	p = catalog.NormalizeProduct(p)
	p.ID = ""
	if err := s.checkProduct(p, ""); err != nil {
		return catalog.Product{}, err
	}
	var created catalog.Product
	err := s.mutate(ctx, catalog.EntityProducts, "create", func(ctx context.Context, st remote.Store) error {
		var err error
		created, err = st.Products().Create(ctx, p)
		return err
	}, s.refreshProducts)
	return created, err
}

// UpdateProduct replaces the editable fields of product id. Attachment and
// creation time are kept from the stored product.
func (s *Synchronizer) UpdateProduct(ctx context.Context, id string, p catalog.Product) (bool, error) {
	original, ok := s.FindProduct(id)
	if !ok {
		return false, notFound("update", catalog.EntityProducts)
	}
	p = catalog.NormalizeProduct(p)
	p.ID = original.ID
	p.AttachmentURL = original.AttachmentURL
	p.AttachmentName = original.AttachmentName
	p.CreatedAt = original.CreatedAt
	if p == original {
		return false, nil
	}
	if err := s.checkProduct(p, id); err != nil {
		return false, err
	}
	err := s.putProduct(ctx, "update", p)
	return err == nil, err
}

func (s *Synchronizer) putProduct(ctx context.Context, op string, p catalog.Product) error {
	return s.mutate(ctx, catalog.EntityProducts, op, func(ctx context.Context, st remote.Store) error {
		_, err := st.Products().Update(ctx, p.ID, p)
		return err
	}, s.refreshProducts)
}

// DeleteProduct removes a product and its attachment after confirmation.
func (s *Synchronizer) DeleteProduct(ctx context.Context, id string) error {
	p, ok := s.FindProduct(id)
	if !ok {
		return notFound("delete", catalog.EntityProducts)
	}
	if err := s.confirmed(ctx, catalog.EntityProducts, "delete", fmt.Sprintf("Weet je zeker dat je %s wilt verwijderen?", p.Name)); err != nil {
		return err
	}
	return s.mutate(ctx, catalog.EntityProducts, "delete", func(ctx context.Context, st remote.Store) error {
		if err := st.Products().Delete(ctx, id); err != nil {
			return err
		}
		if p.HasAttachment() {
			s.dropBlob(ctx, st, p.AttachmentURL)
		}
		return nil
	}, s.refreshProducts)
}

// GenerateQRCode assigns the next free code derived from the product name.
func (s *Synchronizer) GenerateQRCode(ctx context.Context, id string) (string, error) {
	p, ok := s.FindProduct(id)
	if !ok {
		return "", notFound("qrcode", catalog.EntityProducts)
	}
	existing := make([]string, 0, s.products.size())
	for _, other := range s.products.list() {
		if other.QRCode != "" {
			existing = append(existing, other.QRCode)
		}
	}
	code, err := qrcode.Generate(p.Name, existing)
	if err != nil {
		return "", shared.E(shared.KindValidation, "qrcode", string(catalog.EntityProducts), err)
	}
	p.QRCode = code
	if err := s.putProduct(ctx, "qrcode", p); err != nil {
		return "", err
	}
	return code, nil
}

// AttachFile stores a PDF document for the product, replacing any previous one.
func (s *Synchronizer) AttachFile(ctx context.Context, id, filename string, r io.Reader) error {
	p, ok := s.FindProduct(id)
	if !ok {
		return notFound("attach", catalog.EntityProducts)
	}
	data, err := io.ReadAll(io.LimitReader(r, MaxAttachmentSize+1))
	if err != nil {
		return shared.E(shared.KindFileParse, "attach", string(catalog.EntityProducts), err)
	}
	if len(data) > MaxAttachmentSize {
		return shared.E(shared.KindValidation, "attach", string(catalog.EntityProducts), fmt.Errorf("bestand groter dan %d MB", MaxAttachmentSize>>20))
	}
	if mt := mimetype.Detect(data); !mt.Is(pdfMIME) {
		return shared.E(shared.KindValidation, "attach", string(catalog.EntityProducts), fmt.Errorf("alleen PDF bestanden toegestaan, kreeg %s", mt.String()))
	}
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "bijlage.pdf"
	}
	if s.store == nil {
		return shared.E(shared.KindConnectivity, "attach", string(catalog.EntityProducts), shared.ErrNotConfigured)
	}

	url, err := s.store.Blobs().Upload(ctx, p.ID, name, pdfMIME, bytes.NewReader(data))
	if err != nil {
		err = writeError("attach", catalog.EntityProducts, err)
		s.observeWrite(catalog.EntityProducts, "attach", err)
		return err
	}
	previous := p.AttachmentURL
	p.AttachmentURL = url
	p.AttachmentName = name
	if err := s.putProduct(ctx, "attach", p); err != nil {
		s.dropBlob(ctx, s.store, url)
		return err
	}
	if previous != "" {
		s.dropBlob(ctx, s.store, previous)
	}
	return nil
}

// RemoveAttachment deletes the product document after confirmation.
func (s *Synchronizer) RemoveAttachment(ctx context.Context, id string) error {
	p, ok := s.FindProduct(id)
	if !ok {
		return notFound("detach", catalog.EntityProducts)
	}
	if !p.HasAttachment() {
		return nil
	}
	if err := s.confirmed(ctx, catalog.EntityProducts, "detach", fmt.Sprintf("Bijlage %s verwijderen?", p.AttachmentName)); err != nil {
		return err
	}
	if s.store == nil {
		return shared.E(shared.KindConnectivity, "detach", string(catalog.EntityProducts), shared.ErrNotConfigured)
	}
	if err := s.store.Blobs().Delete(ctx, p.AttachmentURL); err != nil && !shared.IsKind(err, shared.KindNotFound) {
		err = writeError("detach", catalog.EntityProducts, err)
		s.observeWrite(catalog.EntityProducts, "detach", err)
		return err
	}
	p.AttachmentURL = ""
	p.AttachmentName = ""
	return s.putProduct(ctx, "detach", p)
}

// OpenAttachment streams the product document. The caller closes Body.
func (s *Synchronizer) OpenAttachment(ctx context.Context, id string) (remote.Blob, error) {
	p, ok := s.FindProduct(id)
	if !ok || !p.HasAttachment() {
		return remote.Blob{}, notFound("open", catalog.EntityProducts)
	}
	if s.store == nil {
		return remote.Blob{}, shared.E(shared.KindConnectivity, "open", string(catalog.EntityProducts), shared.ErrNotConfigured)
	}
	return s.store.Blobs().Open(ctx, p.AttachmentURL)
}

func (s *Synchronizer) dropBlob(ctx context.Context, st remote.Store, url string) {
	if err := st.Blobs().Delete(ctx, url); err != nil && !shared.IsKind(err, shared.KindNotFound) {
		s.logger.Warn("orphaned attachment", slog.String("url", url), slog.Any("error", err))
	}
}
