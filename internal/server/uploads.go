package server

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"

	"transfertrack/internal/storage"
	"transfertrack/pkg/types"
)

// handleGetUpload streams a stored PDF inline. Access is gated through the
// transfer owning the blob, so only participants and admins can fetch it.
// The bare file name is tried against the local key scheme first, then S3.
func (s *Service) handleGetUpload(w http.ResponseWriter, r *http.Request) {
	principal, err := s.principalFromContext(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}

	name := path.Base(r.PathValue("name"))
	if name == "" || name == "." || name == "/" {
		s.respondError(w, types.ErrTransferNotFound)
		return
	}

	data, row, err := s.transfers.OpenBlob(r.Context(), principal, storage.LocalKey(name))
	if errors.Is(err, types.ErrTransferNotFound) {
		data, row, err = s.transfers.OpenBlob(r.Context(), principal, storage.S3Key(name))
	}
	if err != nil {
		s.respondError(w, err)
		return
	}

	if !isPDF(data) {
		s.respondError(w, types.NewValidationError("file", "stored file is not a PDF"))
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", row.PDFFileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if _, err := w.Write(data); err != nil {
		s.logger.WithError(err).Debug("failed to write blob response")
	}
}
