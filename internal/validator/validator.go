package validator

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	_ "image/jpeg"
	_ "image/png"

	apperrors "github.com/martinsandoval/imagevault-backend/pkg/errors"
)

var (
	allowedExtensions = map[string]bool{
		".jpg":  true,
		".jpeg": true,
		".png":  true,
	}
	allowedMIME = map[string]bool{
		"image/jpeg": true,
		"image/png":  true,
	}
	signatures = map[string][][]byte{
		"image/jpeg": {{0xFF, 0xD8, 0xFF}},
		"image/png":  {{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}},
	}
)

// ValidatedUpload is the result of a payload that passed every check. A
// zero Width/Height with empty Format marks a payload whose declared
// dimensions exceeded the pixel ceiling; it is stored but never decoded.
type ValidatedUpload struct {
	Extension string
	MIMEType  string
	Bytes     []byte
	SHA256    string
	Width     int
	Height    int
	Format    string
}

// Validator runs the upload checks in fixed order, cheapest first. Every
// failure is an apperrors CodeValidation error whose message is recorded
// verbatim on the attempt.
type Validator struct {
	maxBytes  int64
	maxPixels int
}

func New(maxBytes int64, maxPixels int) *Validator {
	return &Validator{maxBytes: maxBytes, maxPixels: maxPixels}
}

// Ext extracts the lowercased filename extension.
func Ext(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

func matchSignature(mime string, data []byte) bool {
	for _, sig := range signatures[mime] {
		if bytes.HasPrefix(data, sig) {
			return true
		}
	}
	return false
}

// Validate checks the payload against the declared filename and content type.
// Order: extension, MIME, non-empty, byte ceiling, magic bytes, dimension
// probe with pixel ceiling, full decode. The hash is computed only after the
// payload is known good.
func (v *Validator) Validate(filename, contentType string, data []byte) (*ValidatedUpload, error) {
	extension := Ext(filename)
	if !allowedExtensions[extension] {
		shown := extension
		if shown == "" {
			shown = "none"
		}
		return nil, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("Bad Extension %s", shown))
	}

	mime := strings.ToLower(contentType)
	if !allowedMIME[mime] {
		shown := mime
		if shown == "" {
			shown = "(none)"
		}
		return nil, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("Bad MIME type: %s", shown))
	}

	if len(data) == 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "Empty upload")
	}

	if v.maxBytes > 0 && int64(len(data)) > v.maxBytes {
		return nil, apperrors.New(apperrors.CodeValidation, "File exceeds maximum allowed size")
	}

	if !matchSignature(mime, data) {
		return nil, apperrors.New(apperrors.CodeValidation, "File bytes do not match image type")
	}

	width, height, format, err := v.decode(data)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)

	return &ValidatedUpload{
		Extension: extension,
		MIMEType:  mime,
		Bytes:     data,
		SHA256:    hex.EncodeToString(sum[:]),
		Width:     width,
		Height:    height,
		Format:    format,
	}, nil
}

// decode probes dimensions first so a header claiming an enormous canvas
// never triggers a full pixel decode. Anything over the pixel ceiling comes
// back as the zero-dimension sentinel.
func (v *Validator) decode(data []byte) (int, int, string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, "", apperrors.New(apperrors.CodeValidation, "Invalid or corrupted image")
	}

	if v.maxPixels > 0 && cfg.Width*cfg.Height > v.maxPixels {
		return 0, 0, "", nil
	}

	_, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, 0, "", apperrors.New(apperrors.CodeValidation, "Invalid or corrupted image")
	}
	return cfg.Width, cfg.Height, format, nil
}
