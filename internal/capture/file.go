package capture

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/kozaktomas/xiangxin/internal/apperrors"
	"github.com/kozaktomas/xiangxin/internal/constants"
)

// UnknownSize tells FromFile that the payload length is not known up front.
const UnknownSize = -1

// FromFile reads an uploaded image and normalizes it. The size limit is
// checked before decoding: a declared size over the limit fails without
// reading, and an unknown size is read through a limit+1 reader.
func FromFile(r io.Reader, size, limit int64) (EncodedImage, error) {
	if limit <= 0 {
		limit = constants.MaxUploadSize
	}
	if size > limit {
		return EncodedImage{}, tooLarge(limit)
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return EncodedImage{}, apperrors.Decode("failed to read the file", err)
	}
	return fromBytes(data, limit)
}

// FromBase64 accepts raw base64 or a data URI, applying the same limits as
// FromFile to the decoded payload.
func FromBase64(s string, limit int64) (EncodedImage, error) {
	if limit <= 0 {
		limit = constants.MaxUploadSize
	}

	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		comma := strings.IndexByte(s, ',')
		if comma < 0 {
			return EncodedImage{}, apperrors.Decode("invalid data URI", nil)
		}
		s = s[comma+1:]
	}

	if int64(base64.StdEncoding.DecodedLen(len(s))) > limit+2 {
		return EncodedImage{}, tooLarge(limit)
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return EncodedImage{}, apperrors.Decode("image is not valid base64", err)
	}
	return fromBytes(data, limit)
}

func fromBytes(data []byte, limit int64) (EncodedImage, error) {
	if int64(len(data)) > limit {
		return EncodedImage{}, tooLarge(limit)
	}
	if len(data) == 0 {
		return EncodedImage{}, apperrors.Decode("the file is empty", nil)
	}
	return Normalize(data, constants.MaxImageSize)
}

func tooLarge(limit int64) error {
	return apperrors.FileTooLarge(fmt.Sprintf("the file exceeds the %d MB limit", limit>>20))
}
