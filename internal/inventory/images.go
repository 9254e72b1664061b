package inventory

import (
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"lager-backend/internal/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const maxImageSize = 5 << 20

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// ImageStore writes uploaded article images under Dir. Stored names are
// relative and served below /media/.
type ImageStore struct {
	Dir string
}

// Save stores the upload under a random name and returns that name.
func (s ImageStore) Save(c *fiber.Ctx, fh *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !imageExtensions[ext] {
		return "", fmt.Errorf("%w: unsupported image type %q", apperr.ErrInvalidInput, ext)
	}
	if fh.Size > maxImageSize {
		return "", fmt.Errorf("%w: image larger than 5 MB", apperr.ErrInvalidInput)
	}

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}

	name := uuid.NewString() + ext
	if err := c.SaveFile(fh, filepath.Join(s.Dir, name)); err != nil {
		return "", fmt.Errorf("save image: %w", err)
	}
	return name, nil
}

// Remove deletes a stored image. A missing file is not an error; other
// failures are only logged since the row no longer points at the file.
func (s ImageStore) Remove(name string) {
	if name == "" {
		return
	}
	err := os.Remove(filepath.Join(s.Dir, filepath.Base(name)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[WARN] remove image %s: %v", name, err)
	}
}

// formImage returns the optional "image" upload of a multipart request.
func formImage(c *fiber.Ctx) *multipart.FileHeader {
	if !strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		return nil
	}
	fh, err := c.FormFile("image")
	if err != nil {
		return nil
	}
	return fh
}

func ImageURL(name string) string {
	if name == "" {
		return ""
	}
	return "/media/" + name
}
