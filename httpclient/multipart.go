package httpclient

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/url"
	"os"
	"path/filepath"
	"sort"

	"github.com/kroma-labs/courier/httpclient/transport"
)

// FileUpload is one file part of a multipart request.
type FileUpload struct {
	FieldName string
	FileName  string

	// Path is read when the request is finalized. Ignored if Reader is set.
	Path   string
	Reader io.Reader
}

// File adds the file at filePath as a multipart part. The file is read once,
// when the request is finalized, so retries resend the same bytes.
//
//	client.Request().
//	    Path("documents").
//	    File("document", "/tmp/report.pdf").
//	    FormField("title", "Q4 Report").
//	    Post()
func (rb *RequestBuilder) File(fieldName, filePath string) *RequestBuilder {
	rb.uploads = append(rb.uploads, FileUpload{
		FieldName: fieldName,
		FileName:  filepath.Base(filePath),
		Path:      filePath,
	})
	return rb
}

// FileReader adds a multipart part read from r.
func (rb *RequestBuilder) FileReader(fieldName, fileName string, r io.Reader) *RequestBuilder {
	rb.uploads = append(rb.uploads, FileUpload{
		FieldName: fieldName,
		FileName:  fileName,
		Reader:    r,
	})
	return rb
}

// FormField adds a plain multipart field. Any files or form fields replace
// the payload set with Payload.
func (rb *RequestBuilder) FormField(key, value string) *RequestBuilder {
	if rb.formFields == nil {
		rb.formFields = make(url.Values)
	}
	rb.formFields.Add(key, value)
	return rb
}

// buildMultipart encodes form fields, in key order, followed by files.
func (rb *RequestBuilder) buildMultipart() (transport.Multipart, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	keys := make([]string, 0, len(rb.formFields))
	for k := range rb.formFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range rb.formFields[k] {
			if err := w.WriteField(k, v); err != nil {
				return transport.Multipart{}, err
			}
		}
	}

	for _, f := range rb.uploads {
		if err := writeFilePart(w, f); err != nil {
			return transport.Multipart{}, err
		}
	}

	if err := w.Close(); err != nil {
		return transport.Multipart{}, err
	}
	return transport.Multipart{Body: body.Bytes(), ContentType: w.FormDataContentType()}, nil
}

func writeFilePart(w *multipart.Writer, f FileUpload) error {
	r := f.Reader
	if r == nil {
		file, err := os.Open(f.Path)
		if err != nil {
			return err
		}
		defer file.Close()
		r = file
	}

	part, err := w.CreateFormFile(f.FieldName, f.FileName)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, r)
	return err
}
