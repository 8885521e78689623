package mimetypes

import "mime"

type MIME string

const (
	Unknown   MIME = "unknown"
	TextPlain MIME = "text/plain"

	ImagePNG  MIME = "image/png"
	ImageJPEG MIME = "image/jpeg"
	ImageGIF  MIME = "image/gif"

	VideoMP4  MIME = "video/mp4"
	AudioMPEG MIME = "audio/mpeg"
)

// Normalize strips parameters ("image/png; charset=binary" -> "image/png").
// Returns Unknown when the value is not a parseable media type.
func Normalize(declared string) MIME {
	mt, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return Unknown
	}
	return MIME(mt)
}

func Matches(detected string, expected MIME) (MIME, bool) {
	mt, _, err := mime.ParseMediaType(detected)
	if err != nil {
		return Unknown, false
	}
	return expected, mt == string(expected)
}
