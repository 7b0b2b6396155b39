package capture

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/okian/tailor/internal/domain/model"
	"gocv.io/x/gocv"
)

// DecodeBase64 decodes a base64 image, optionally wrapped in a data URL
// ("data:image/jpeg;base64,..."), into a 3-channel frame.
func DecodeBase64(b64 string) (model.Frame, error) {
	if i := strings.Index(b64, ","); i != -1 && strings.HasPrefix(b64, "data:") {
		b64 = b64[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return DecodeImage(data)
}

// DecodeImage decodes encoded image bytes (JPEG, PNG, ...).
func DecodeImage(data []byte) (model.Frame, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrDecode)
	}
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if mat.Empty() {
		_ = mat.Close()
		return nil, fmt.Errorf("%w: empty or unsupported format", ErrDecode)
	}
	return NewMatFrame(mat), nil
}
