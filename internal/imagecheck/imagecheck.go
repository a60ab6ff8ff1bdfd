// Package imagecheck validates listing image references.
//
// A reference is either a base64 data URL whose decoded bytes sniff as an
// image, or an absolute http(s) URL. Content is not fetched or stored.
package imagecheck

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/and161185/rewear/internal/errs"
)

// MaxDataURLBytes caps the decoded size of an inline image.
const MaxDataURLBytes = 5 << 20

// Validate returns errs.ErrInvalidArgument when ref is not an acceptable image reference.
func Validate(ref string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return fmt.Errorf("%w: empty image reference", errs.ErrInvalidArgument)
	}
	if strings.HasPrefix(ref, "data:") {
		_, err := sniffDataURL(ref)
		return err
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: image must be a data URL or http(s) URL", errs.ErrInvalidArgument)
	}
	return nil
}

// sniffDataURL decodes a base64 data URL and returns the detected MIME type.
// The declared media type is ignored in favour of the payload's signature.
func sniffDataURL(ref string) (string, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return "", fmt.Errorf("%w: data URL must be base64 encoded", errs.ErrInvalidArgument)
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxDataURLBytes+3 {
		return "", fmt.Errorf("%w: image exceeds %d bytes", errs.ErrInvalidArgument, MaxDataURLBytes)
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("%w: bad base64 payload", errs.ErrInvalidArgument)
	}
	mt := mimetype.Detect(raw)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", fmt.Errorf("%w: payload is %s, not an image", errs.ErrInvalidArgument, mt.String())
	}
	return mt.String(), nil
}

// ValidateAll checks every reference and requires at least one.
func ValidateAll(refs []string) error {
	if len(refs) == 0 {
		return fmt.Errorf("%w: at least one image is required", errs.ErrInvalidArgument)
	}
	for i, r := range refs {
		if err := Validate(r); err != nil {
			return fmt.Errorf("image %d: %w", i, err)
		}
	}
	return nil
}
