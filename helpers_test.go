package bytrofront

import (
	"bytes"
	"encoding/base64"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/h2non/gock"
)

// capturePayload decodes the signed request body (data=<base64>) back into
// its plain key=value&... form so tests can assert on what was actually
// transmitted.
func capturePayload(out *string) gock.MatchFunc {
	return func(req *http.Request, _ *gock.Request) (bool, error) {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return false, err
		}
		req.Body = io.NopCloser(bytes.NewReader(body))

		raw := strings.TrimPrefix(string(body), "data=")
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return false, err
		}
		unescaped, err := url.QueryUnescape(string(decoded))
		if err != nil {
			return false, err
		}
		*out = unescaped
		return true, nil
	}
}
