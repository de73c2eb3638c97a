package http

import (
	"bytes"
	"errors"
	"io"
	"net/http"
)

// multipartOverhead is the allowance for form framing on top of the photo.
const multipartOverhead = 64 << 10

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

type photoResponse struct {
	PhotoURL string `json:"photoUrl"`
}

func (h *handlers) uploadPhoto(w http.ResponseWriter, r *http.Request) {
	if h.svc.Photos == nil {
		writeError(w, http.StatusServiceUnavailable, codeUnavailable, "photo uploads are not configured")
		return
	}

	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, codeTooLarge, "photo too large")
			return
		}
		writeError(w, http.StatusBadRequest, codeValidation, "expected multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck // temp files

	file, header, err := r.FormFile("photo")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "photo is required")
		return
	}
	defer file.Close()

	if header.Size > h.photoMaxBytes {
		writeError(w, http.StatusRequestEntityTooLarge, codeTooLarge, "photo too large")
		return
	}

	// The declared part Content-Type is client-controlled; sniff instead.
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, codeValidation, "unreadable photo")
		return
	}
	head = head[:n]
	contentType := http.DetectContentType(head)
	ext, ok := imageExtensions[contentType]
	if !ok {
		writeError(w, http.StatusUnsupportedMediaType, codeUnsupported, "photo must be a JPEG, PNG, GIF or WebP image")
		return
	}

	body := io.MultiReader(bytes.NewReader(head), file)
	photoURL, err := h.svc.Photos.Upload(r.Context(), ext, contentType, header.Size, body)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "photo upload failed", "error", err, "size", header.Size)
		writeError(w, http.StatusInternalServerError, codeInternal, "Failed to upload photo")
		return
	}
	writeJSON(w, http.StatusCreated, photoResponse{PhotoURL: photoURL})
}
