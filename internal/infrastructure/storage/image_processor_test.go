package storage

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func newTestProcessor() *ImageProcessor {
	return NewImageProcessor(1024*1024, []string{"image/jpeg", "image/png", "image/jpg"})
}

func TestImageProcessor_Validate(t *testing.T) {
	p := newTestProcessor()
	pngData := testPNG(t, 20, 10)

	tests := []struct {
		name     string
		data     []byte
		declared string
		want     string
		wantErr  bool
	}{
		{name: "declared png", data: pngData, declared: "image/png", want: "image/png"},
		{name: "declared jpg alias", data: pngData, declared: "image/jpg", want: "image/jpeg"},
		{name: "declared with params", data: pngData, declared: "IMAGE/PNG; charset=binary", want: "image/png"},
		{name: "octet-stream sniffed", data: pngData, declared: "application/octet-stream", want: "image/png"},
		{name: "empty declared sniffed", data: pngData, declared: "", want: "image/png"},
		{name: "text rejected", data: []byte("hello world"), declared: "text/plain", wantErr: true},
		{name: "gif rejected", data: []byte("GIF89a......"), declared: "image/gif", wantErr: true},
		{name: "empty file", data: nil, declared: "image/png", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Validate(tt.data, tt.declared)
			if tt.wantErr {
				var vErr *ValidationError
				require.True(t, errors.As(err, &vErr), "expected ValidationError, got %v", err)
				assert.NotEmpty(t, vErr.Reason)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestImageProcessor_ValidateTooLarge(t *testing.T) {
	p := NewImageProcessor(10*1024*1024, []string{"image/jpeg"})

	_, err := p.Validate(make([]byte, 50*1024*1024), "image/jpeg")

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Reason, "50 MiB")
	assert.Contains(t, vErr.Reason, "10 MiB")
}

func TestImageProcessor_Thumbnail(t *testing.T) {
	p := newTestProcessor()

	thumb, err := p.Thumbnail(testPNG(t, 1600, 800))
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.Width)
	assert.Equal(t, 200, cfg.Height)
}

func TestImageProcessor_ThumbnailRejectsGarbage(t *testing.T) {
	_, err := newTestProcessor().Thumbnail([]byte("not an image"))
	assert.Error(t, err)
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, "jpg", ExtensionFor("image/jpeg"))
	assert.Equal(t, "jpg", ExtensionFor("image/jpg"))
	assert.Equal(t, "png", ExtensionFor("image/png"))
	assert.Equal(t, "bin", ExtensionFor("application/x-unknown-thing"))
}
