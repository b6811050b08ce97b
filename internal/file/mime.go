// AngelaMos | 2026
// mime.go

package file

import (
	"errors"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const (
	MIMEXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MIMECSV  = "text/csv"
	MIMEPDF  = "application/pdf"

	mimeOctetStream = "application/octet-stream"
)

var ErrUnsupportedType = errors.New("unsupported file type")

var allowedTypes = map[string]Type{
	MIMEXLSX: TypeExcel,
	MIMECSV:  TypeCSV,
	MIMEPDF:  TypePDF,
}

// DetectType maps the declared MIME type onto a file type. Clients that do
// not know the type (empty or octet-stream) get the content sniffed instead.
func DetectType(declared string, content []byte) (Type, error) {
	mt := normalizeMIME(declared)

	if mt == "" || mt == mimeOctetStream {
		sniffed := mimetype.Detect(content)
		for candidate, t := range allowedTypes {
			if sniffed.Is(candidate) {
				return t, nil
			}
		}
		return "", ErrUnsupportedType
	}

	if t, ok := allowedTypes[mt]; ok {
		return t, nil
	}
	return "", ErrUnsupportedType
}

func ContentType(t Type) string {
	switch t {
	case TypeExcel:
		return MIMEXLSX
	case TypeCSV:
		return MIMECSV
	case TypePDF:
		return MIMEPDF
	}
	return mimeOctetStream
}

func normalizeMIME(declared string) string {
	declared = strings.TrimSpace(declared)
	if declared == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return strings.ToLower(declared)
	}
	return mt
}
