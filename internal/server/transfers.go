package server

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"transfertrack/pkg/types"
)

func (s *Service) handleListTransfers(w http.ResponseWriter, r *http.Request) {
	// 100 requests per minute
	if !s.allowRate(w, r, time.Minute, 100) {
		return
	}

	principal, err := s.principalFromContext(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}

	filter := types.ParseArchiveFilter(r.URL.Query().Get("archive"))

	rows, err := s.transfers.ListTransfers(r.Context(), principal, filter)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{"transfers": rows})
}

func (s *Service) handleGetTransfer(w http.ResponseWriter, r *http.Request) {
	if !s.allowRate(w, r, time.Minute, 100) {
		return
	}

	principal, err := s.principalFromContext(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}

	transferID := r.PathValue("id")
	if transferID == "" {
		s.respondError(w, types.ErrTransferNotFound)
		return
	}

	row, err := s.transfers.GetTransfer(r.Context(), principal, transferID)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{"transfer": row})
}

func (s *Service) handlePatchTransfer(w http.ResponseWriter, r *http.Request) {
	if !s.allowRate(w, r, time.Minute, 100) {
		return
	}

	principal, err := s.principalFromContext(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}

	transferID := r.PathValue("id")

	var changes types.TransferChanges
	if err := decodeBody(r, &changes); err != nil {
		s.respondError(w, types.NewValidationError("body", "malformed request"))
		return
	}

	row, err := s.transfers.UpdateTransfer(r.Context(), principal, transferID, changes)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{"success": true, "transfer": row})
}

func (s *Service) handleDeleteTransfer(w http.ResponseWriter, r *http.Request) {
	principal, err := s.principalFromContext(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}

	transferID := r.PathValue("id")

	if err := s.transfers.DeleteTransfer(r.Context(), principal, transferID); err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Transfer deleted successfully",
	})
}

func (s *Service) handleUploadTransfer(w http.ResponseWriter, r *http.Request) {
	// 20 uploads per hour
	if !s.allowRate(w, r, time.Hour, 20) {
		return
	}

	principal, err := s.principalFromContext(r.Context())
	if err != nil {
		s.respondError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
		s.respondError(w, types.NewValidationError("pdf", "upload too large or malformed"))
		return
	}

	file, header, err := r.FormFile("pdf")
	if err != nil {
		s.respondError(w, types.NewValidationError("pdf", "no file uploaded"))
		return
	}
	defer file.Close()

	if contentType := header.Header.Get("Content-Type"); contentType != "" && contentType != "application/pdf" {
		s.respondError(w, types.NewValidationError("pdf", "only PDF files are allowed"))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, types.NewValidationError("pdf", "failed to read file"))
		return
	}

	if !isPDF(data) {
		s.respondError(w, types.NewValidationError("pdf", "file must be a valid PDF document"))
		return
	}

	transferType := types.TransferType(r.FormValue("transferType"))
	if transferType == "" {
		transferType = types.TransferTypeSend
	}

	fileName := header.Filename
	if fileName == "" {
		fileName = "transfer.pdf"
	}

	row, err := s.transfers.CreateTransfer(
		r.Context(),
		principal,
		transferType,
		r.FormValue("locationId"),
		fileName,
		data,
	)
	if err != nil {
		s.respondError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{"success": true, "transfer": row})
}

// isPDF checks the %PDF magic bytes.
func isPDF(data []byte) bool {
	return len(data) >= 4 && bytes.HasPrefix(data, []byte("%PDF"))
}
