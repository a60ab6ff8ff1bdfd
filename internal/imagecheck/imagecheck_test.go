package imagecheck

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/and161185/rewear/internal/errs"
)

// 1x1 transparent PNG
var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4,
	0x89, 0x00, 0x00, 0x00, 0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae,
	0x42, 0x60, 0x82,
}

func dataURL(mediaType string, b []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(b)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		ref  string
		ok   bool
	}{
		{"png data url", dataURL("image/png", pngBytes), true},
		{"declared type ignored", dataURL("application/octet-stream", pngBytes), true},
		{"text disguised as image", dataURL("image/png", []byte("hello world")), false},
		{"not base64", "data:image/png,rawbytes", false},
		{"broken base64", "data:image/png;base64,@@@", false},
		{"https url", "https://cdn.example.com/a.jpg", true},
		{"http url", "http://example.com/a.png", true},
		{"ftp url", "ftp://example.com/a.png", false},
		{"relative path", "/uploads/a.png", false},
		{"empty", "  ", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.ref)
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, errs.ErrInvalidArgument)
		})
	}
}

func TestSniffDataURL_ReportsType(t *testing.T) {
	mt, err := sniffDataURL(dataURL("image/jpeg", pngBytes))
	require.NoError(t, err)
	require.Equal(t, "image/png", mt)
}

func TestValidateAll(t *testing.T) {
	require.ErrorIs(t, ValidateAll(nil), errs.ErrInvalidArgument)
	require.NoError(t, ValidateAll([]string{"https://x.io/a.png", dataURL("image/png", pngBytes)}))
	require.ErrorIs(t, ValidateAll([]string{"https://x.io/a.png", "nope"}), errs.ErrInvalidArgument)
}
