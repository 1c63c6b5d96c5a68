package smart

import (
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/sirupsen/logrus"
)

// DecompressBody transparently decodes gzip request bodies. Git clients
// compress large negotiation requests.
func DecompressBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.EqualFold(r.Header.Get("Content-Encoding"), "gzip") {
			next.ServeHTTP(w, r)

			return
		}

		reader, err := gzip.NewReader(r.Body)
		if err != nil {
			logrus.WithError(err).WithField("path", r.URL.Path).Debug("Rejected malformed gzip body")
			http.Error(w, "Failed to decompress request", http.StatusBadRequest)

			return
		}

		r.Body = &gzipBody{reader: reader, original: r.Body}
		r.Header.Del("Content-Encoding")
		r.ContentLength = -1

		next.ServeHTTP(w, r)
	})
}

// gzipBody closes both the decoder and the wire body.
type gzipBody struct {
	reader   *gzip.Reader
	original io.ReadCloser
}

func (g *gzipBody) Read(p []byte) (int, error) {
	return g.reader.Read(p)
}

func (g *gzipBody) Close() error {
	err := g.reader.Close()
	if closeErr := g.original.Close(); err == nil {
		err = closeErr
	}

	return err
}
