package httpx

import (
	"io"
	"mime"
	"net/http"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// ReadBody drains and closes the response body, transcoding it to UTF-8 when
// the Content-Type declares a windows-1251 charset. Russian retail endpoints
// still serve legacy-encoded listing pages.
func ReadBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if charsetOf(resp.Header.Get("Content-Type")) == "windows-1251" {
		reader = transform.NewReader(reader, charmap.Windows1251.NewDecoder())
	}
	return io.ReadAll(reader)
}

func charsetOf(contentType string) string {
	if contentType == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return strings.ToLower(params["charset"])
}
