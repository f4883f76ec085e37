package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/eventhub/apiserver/internal/services"
	"github.com/eventhub/apiserver/pkg/logger"
)

const (
	maxJSONBody        = 1 << 20
	maxMultipartMemory = 12 << 20
	formFieldImage     = "image"
)

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Upload is an image read from a multipart request.
type Upload struct {
	Reader      io.Reader
	Size        int64
	ContentType string
	closer      io.Closer
}

func (u Upload) Close() error {
	if u.closer == nil {
		return nil
	}
	return u.closer.Close()
}

func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError maps service errors to statuses. Unknown errors are
// logged and reported as fallback with a 500.
func writeServiceError(ctx context.Context, w http.ResponseWriter, log logger.Logger, err error, fallback string) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrUnauthenticated), errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, services.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, services.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, services.ErrUsernameTaken), errors.Is(err, services.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrStorageDisabled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Error(ctx, fallback, logger.Error(err))
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid request")
	}
	return nil
}

// readImage opens the single image part of a multipart request. The
// caller closes the returned upload.
func readImage(r *http.Request) (Upload, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return Upload{}, errors.New("invalid multipart form")
	}
	files := r.MultipartForm.File[formFieldImage]
	if len(files) == 0 {
		return Upload{}, errors.New("image file is required")
	}
	if len(files) > 1 {
		return Upload{}, errors.New("only one image file is allowed")
	}

	header := files[0]
	file, err := header.Open()
	if err != nil {
		return Upload{}, fmt.Errorf("failed to read image: %w", err)
	}
	return Upload{
		Reader:      file,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		closer:      file,
	}, nil
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errMissingAuthorization
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}

var errMissingAuthorization = errors.New("missing authorization")
