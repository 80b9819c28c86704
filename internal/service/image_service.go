package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"chronicle/internal/config"
	"chronicle/internal/middleware"
	"chronicle/internal/models"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultMediaRoot     = "./media"
	DefaultMaxImageBytes = 5 << 20
	PreviewMaxWidth      = 640
	WebPQuality          = 70
	// MaxImagePixels bounds width*height so decoding a small upload cannot
	// allocate an arbitrarily large pixel buffer.
	MaxImagePixels = 50_000_000

	// imageDir is the blob store prefix for post attachments.
	imageDir = "posts"
)

// ImageUpload is an image submitted with a post form.
type ImageUpload struct {
	Filename string
	Content  []byte
}

// StoredImage holds blob store paths, relative to the media root.
type StoredImage struct {
	Path        string
	PreviewPath string
	Format      string
	Width       int
	Height      int
}

// ImageService validates post images and writes them to the filesystem blob store.
type ImageService struct {
	root     string
	maxBytes int64
}

func NewImageService(cfg *config.Config) *ImageService {
	root := DefaultMediaRoot
	maxBytes := int64(DefaultMaxImageBytes)

	if cfg != nil {
		if cfg.MediaRoot != "" {
			root = cfg.MediaRoot
		}
		if cfg.MaxImageBytes > 0 {
			maxBytes = cfg.MaxImageBytes
		}
	}

	return &ImageService{root: root, maxBytes: maxBytes}
}

// Root returns the directory the blob store writes to.
func (s *ImageService) Root() string {
	return s.root
}

// MediaURL maps a blob store path to its public media URL.
func MediaURL(rel string) string {
	if rel == "" {
		return ""
	}
	return "/media/" + strings.TrimPrefix(rel, "/")
}

const msgInvalidImage = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."

// Inspect checks the size and content of an upload and reports its format and dimensions.
// The payload is fully decoded, so truncated or corrupted images are rejected.
func (s *ImageService) Inspect(content []byte) (image.Config, string, error) {
	img, format, err := s.decode(content)
	if err != nil {
		return image.Config{}, "", err
	}
	b := img.Bounds()
	return image.Config{ColorModel: img.ColorModel(), Width: b.Dx(), Height: b.Dy()}, format, nil
}

// decode validates content and returns the decoded image. Dimensions are checked
// against MaxImagePixels from the header before any pixel data is read.
func (s *ImageService) decode(content []byte) (image.Image, string, error) {
	if len(content) == 0 {
		return nil, "", models.NewValidationError("The submitted file is empty.")
	}
	if int64(len(content)) > s.maxBytes {
		return nil, "", models.NewValidationError(
			fmt.Sprintf("File too large (max %d bytes).", s.maxBytes))
	}
	if !isAllowedImageMIME(http.DetectContentType(content)) {
		return nil, "", models.NewValidationError(msgInvalidImage)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", models.NewValidationError(msgInvalidImage)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return nil, "", models.NewValidationError(
			fmt.Sprintf("Image dimensions too large (max %d pixels).", MaxImagePixels))
	}

	img, format, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return nil, "", models.NewValidationError(msgInvalidImage)
	}
	return img, format, nil
}

// Store validates content and writes it to posts/<hash>.<ext>, plus a webp preview
// at most PreviewMaxWidth wide. Identical content maps to the same path.
func (s *ImageService) Store(ctx context.Context, content []byte) (*StoredImage, error) {
	img, format, err := s.decode(content)
	if err != nil {
		return nil, err
	}
	bounds := img.Bounds()

	hash := contentHash(content)
	stored := &StoredImage{
		Path:   path.Join(imageDir, hash+"."+extensionFor(format)),
		Format: format,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}
	if err := s.write(stored.Path, content); err != nil {
		return nil, models.NewInternalError(err)
	}

	preview, err := buildPreview(img)
	if err != nil {
		// The original is usable without a preview.
		middleware.Logger.WarnContext(ctx, "image preview failed", "path", stored.Path, "error", err)
		return stored, nil
	}
	stored.PreviewPath = path.Join(imageDir, hash+"_preview.webp")
	if err := s.write(stored.PreviewPath, preview); err != nil {
		middleware.Logger.WarnContext(ctx, "image preview write failed", "path", stored.PreviewPath, "error", err)
		stored.PreviewPath = ""
	}
	return stored, nil
}

// Remove deletes blob store paths. Missing files are ignored.
func (s *ImageService) Remove(paths ...string) {
	for _, rel := range paths {
		if rel == "" {
			continue
		}
		if err := os.Remove(s.abs(rel)); err != nil && !os.IsNotExist(err) {
			middleware.Logger.Warn("failed to remove media file", "path", rel, "error", err)
		}
	}
}

func (s *ImageService) abs(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

func (s *ImageService) write(rel string, data []byte) error {
	full := s.abs(rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o750); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o600)
}

func buildPreview(img image.Image) ([]byte, error) {
	resized := resizeToWidth(img, PreviewMaxWidth)

	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, resized, &webp.Options{Quality: WebPQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func resizeToWidth(src image.Image, maxWidth int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxWidth {
		return src
	}

	newH := h * maxWidth / w
	if newH < 1 {
		newH = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, maxWidth, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func isAllowedImageMIME(contentType string) bool {
	switch contentType {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func extensionFor(format string) string {
	switch format {
	case "jpeg":
		return "jpg"
	default:
		return format
	}
}

func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:16])
}
