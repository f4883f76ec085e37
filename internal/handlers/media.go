package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/eventhub/apiserver/internal/storage"
	"github.com/eventhub/apiserver/pkg/logger"
)

// ImageReader streams stored photos and banners.
type ImageReader interface {
	OpenImage(ctx context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error)
}

// MediaHandler serves uploaded images by object key.
type MediaHandler struct {
	images ImageReader
	log    logger.Logger
}

func NewMediaHandler(images ImageReader, log logger.Logger) *MediaHandler {
	return &MediaHandler{images: images, log: log}
}

// Image streams the object named by the wildcard path.
func (h *MediaHandler) Image(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	body, info, err := h.images.OpenImage(r.Context(), key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		writeError(w, http.StatusNotFound, "image not found")
		return
	}
	if err != nil {
		h.log.Error(r.Context(), "open image failed", logger.String("key", key), logger.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load image")
		return
	}
	defer body.Close()

	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	if info.CacheControl != "" {
		w.Header().Set("Cache-Control", info.CacheControl)
	}
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.log.Warn(r.Context(), "stream image interrupted", logger.String("key", key), logger.Error(err))
	}
}
