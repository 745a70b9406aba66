package httpclient

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kroma-labs/courier/httpclient/transport"
)

// debugLogger returns the logger installed by WithDebug.
func debugLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).Level(zerolog.DebugLevel).With().Timestamp().Logger()
}

func logRetry(logger zerolog.Logger, attempt int, err error, next time.Duration) {
	ev := logger.Warn().
		Int("attempt", attempt).
		Dur("delay", next)
	if te := transport.AsError(err); te != nil {
		ev = ev.Int("status", te.StatusCode).Err(te.Err)
	}
	ev.Msg("retrying http call")
}

// generateCurlCommand renders d as a cURL command line.
//
// Example output:
//
//	curl -X POST 'https://api.example.com/users' -H 'Content-Type: application/json' -d '{"name":"John"}'
func generateCurlCommand(d *transport.Descriptor) string {
	parts := []string{"curl"}

	if d.Method != transport.MethodGet {
		parts = append(parts, "-X", string(d.Method))
	}

	target, err := d.URL()
	if err != nil {
		target = transport.JoinURL(d.BaseURL, d.Segments...)
	}
	parts = append(parts, shellQuote(target))

	body, contentType, _ := transport.EncodePayload(d.Payload)

	header := d.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	if contentType != "" && header.Get("Content-Type") == "" {
		header.Set("Content-Type", contentType)
	}

	keys := make([]string, 0, len(header))
	for k := range header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range header[k] {
			parts = append(parts, "-H", shellQuote(k+": "+v))
		}
	}

	if len(body) > 0 {
		parts = append(parts, "-d", shellQuote(string(body)))
	}

	return strings.Join(parts, " ")
}

func shellQuote(s string) string {
	return fmt.Sprintf("'%s'", strings.ReplaceAll(s, "'", `'\''`))
}
