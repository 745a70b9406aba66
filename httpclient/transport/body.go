package transport

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/url"
	"strings"

	json "github.com/goccy/go-json"
)

// Content types set by EncodePayload.
const (
	ContentTypeJSON  = "application/json"
	ContentTypeForm  = "application/x-www-form-urlencoded"
	ContentTypeText  = "text/plain; charset=utf-8"
	ContentTypeOctet = "application/octet-stream"
)

// Raw is a payload sent verbatim, with no content type implied.
type Raw []byte

// Multipart is an encoded multipart/form-data body together with the
// content type carrying its boundary.
type Multipart struct {
	Body        []byte
	ContentType string
}

// Encoded is a payload that was already serialized, with the content type
// it implies. An empty ContentType sends no Content-Type header.
type Encoded struct {
	Body        []byte
	ContentType string
}

// EncodePayload serializes a request payload and reports the content type
// it implies. A nil payload yields a nil body and an empty content type.
//
//   - string: sent as text/plain
//   - []byte: sent as application/octet-stream
//   - Raw: sent verbatim, no content type implied
//   - Multipart, Encoded: sent with their own content type
//   - io.Reader: read fully, no content type implied
//   - url.Values: form-encoded
//   - anything else: JSON-encoded
func EncodePayload(payload any) ([]byte, string, error) {
	switch v := payload.(type) {
	case nil:
		return nil, "", nil
	case string:
		return []byte(v), ContentTypeText, nil
	case []byte:
		return v, ContentTypeOctet, nil
	case Raw:
		return v, "", nil
	case Multipart:
		return v.Body, v.ContentType, nil
	case Encoded:
		return v.Body, v.ContentType, nil
	case io.Reader:
		b, err := io.ReadAll(v)
		if err != nil {
			return nil, "", fmt.Errorf("read payload: %w", err)
		}
		return b, "", nil
	case url.Values:
		return []byte(v.Encode()), ContentTypeForm, nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, "", fmt.Errorf("encode payload: %w", err)
		}
		return b, ContentTypeJSON, nil
	}
}

// DecodeBody turns a raw response body into a Go value.
//
// Empty bodies decode to nil. Bodies declared as JSON, and undeclared text
// that happens to be valid JSON, are decoded as JSON. Anything else,
// including malformed JSON, is returned as a string.
func DecodeBody(raw []byte, contentType string) any {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}

	if isJSONContentType(contentType) || json.Valid(trimmed) {
		var v any
		if err := json.Unmarshal(trimmed, &v); err == nil {
			return v
		}
	}
	return string(raw)
}

func isJSONContentType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == ContentTypeJSON || strings.HasSuffix(mediaType, "+json")
}
