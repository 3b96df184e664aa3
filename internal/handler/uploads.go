package handler

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// saveUpload stores the multipart file of field in dir under a random name.
// It returns an empty path when the field is absent.
func saveUpload(c *gin.Context, dir, field string) (string, error) {
	file, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read %s: %w", field, err)
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}

	name := uuid.New().String() + strings.ToLower(filepath.Ext(file.Filename))
	path := filepath.Join(dir, name)

	if err := c.SaveUploadedFile(file, path); err != nil {
		return "", fmt.Errorf("failed to save %s: %w", field, err)
	}

	return path, nil
}
