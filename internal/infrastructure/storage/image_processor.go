package storage

import (
	"bytes"
	"fmt"
	"mime"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
)

const (
	defaultThumbnailSize    = 400
	defaultThumbnailQuality = 80
)

// ValidationError mô tả lý do một file bị từ chối
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// ImageProcessor validate upload và tạo thumbnail
type ImageProcessor struct {
	MaxBytes         int64
	ThumbnailSize    int
	ThumbnailQuality int
	allowed          map[string]struct{}
}

func NewImageProcessor(maxBytes int64, allowedTypes []string) *ImageProcessor {
	allowed := make(map[string]struct{}, len(allowedTypes))
	for _, t := range allowedTypes {
		allowed[normalizeContentType(t)] = struct{}{}
	}
	return &ImageProcessor{
		MaxBytes:         maxBytes,
		ThumbnailSize:    defaultThumbnailSize,
		ThumbnailQuality: defaultThumbnailQuality,
		allowed:          allowed,
	}
}

// Validate check size và content type, trả về content type đã normalize.
// Declared type không nằm trong allowed list (vd. application/octet-stream từ camera)
// thì fallback sang detect bằng magic bytes.
func (p *ImageProcessor) Validate(data []byte, declared string) (string, error) {
	size := int64(len(data))
	if size == 0 {
		return "", &ValidationError{Reason: "file is empty"}
	}
	if size > p.MaxBytes {
		return "", &ValidationError{Reason: fmt.Sprintf("file is %s, maximum allowed is %s",
			humanize.IBytes(uint64(size)), humanize.IBytes(uint64(p.MaxBytes)))}
	}

	if ct := normalizeContentType(declared); p.isAllowed(ct) {
		return ct, nil
	}

	if detected := normalizeContentType(mimetype.Detect(data).String()); p.isAllowed(detected) {
		return detected, nil
	}

	if declared == "" {
		declared = "unknown"
	}
	return "", &ValidationError{Reason: fmt.Sprintf("content type %s is not an allowed image type", declared)}
}

func (p *ImageProcessor) isAllowed(contentType string) bool {
	_, ok := p.allowed[contentType]
	return ok
}

// Thumbnail resize ảnh vừa khung ThumbnailSize x ThumbnailSize, encode JPEG.
// EXIF orientation được áp dụng trước khi resize.
func (p *ImageProcessor) Thumbnail(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("cannot decode image: %w", err)
	}

	thumb := imaging.Fit(img, p.ThumbnailSize, p.ThumbnailSize, imaging.Lanczos)

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, thumb, imaging.JPEG, imaging.JPEGQuality(p.ThumbnailQuality)); err != nil {
		return nil, fmt.Errorf("cannot encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// ExtensionFor trả về file extension (không có dấu chấm) cho content type
func ExtensionFor(contentType string) string {
	switch normalizeContentType(contentType) {
	case "image/jpeg":
		return "jpg"
	case "image/png":
		return "png"
	}
	if m := mimetype.Lookup(contentType); m != nil && m.Extension() != "" {
		return strings.TrimPrefix(m.Extension(), ".")
	}
	return "bin"
}

// normalizeContentType bỏ parameters, lowercase, image/jpg -> image/jpeg
func normalizeContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	if mediaType == "image/jpg" || mediaType == "image/pjpeg" {
		return "image/jpeg"
	}
	return mediaType
}
