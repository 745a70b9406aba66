package transport

import (
	"net/http"
	"net/url"
	"strings"
)

// Method is an HTTP verb supported by the request builder.
type Method string

const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodPut    Method = http.MethodPut
	MethodPatch  Method = http.MethodPatch
	MethodDelete Method = http.MethodDelete
)

// Valid reports whether m is one of the supported methods.
func (m Method) Valid() bool {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete:
		return true
	}
	return false
}

// Descriptor is the transport-agnostic description of one request.
// It is built by the request builder and treated as read-only afterwards.
type Descriptor struct {
	Method   Method
	BaseURL  string
	Segments []string
	Query    url.Values
	Header   http.Header
	Payload  any
}

// Path joins the segments into an absolute path, "/" when there are none.
func (d *Descriptor) Path() string {
	return "/" + JoinSegments(d.Segments...)
}

// URL returns the absolute request URL, including the encoded query string.
func (d *Descriptor) URL() (string, error) {
	target := JoinURL(d.BaseURL, d.Segments...)
	if _, err := url.Parse(target); err != nil {
		return "", err
	}
	if len(d.Query) > 0 {
		target += "?" + d.Query.Encode()
	}
	return target, nil
}

// Clone returns a deep copy of d. The payload itself is shared.
func (d *Descriptor) Clone() *Descriptor {
	if d == nil {
		return nil
	}
	out := *d
	out.Segments = append([]string(nil), d.Segments...)
	if d.Query != nil {
		out.Query = make(url.Values, len(d.Query))
		for k, v := range d.Query {
			out.Query[k] = append([]string(nil), v...)
		}
	}
	out.Header = d.Header.Clone()
	return &out
}

// JoinURL joins base and segments with exactly one "/" between each part.
// Trailing slashes on base and surrounding slashes on segments are dropped.
func JoinURL(base string, segments ...string) string {
	base = strings.TrimRight(base, "/")
	joined := JoinSegments(segments...)
	if joined == "" {
		return base
	}
	return base + "/" + joined
}

// JoinSegments trims surrounding slashes from each segment and joins the
// non-empty results with "/".
func JoinSegments(segments ...string) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s = strings.Trim(s, "/"); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "/")
}
