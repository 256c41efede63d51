package bytrofront

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// ParameterByName scans rawURL's query string for the named parameter and
// returns its decoded value ('+' treated as space). It is deliberately a
// plain scan, not a full URL parse: the website URLs this runs against are
// not guaranteed to be well formed. A bare parameter with no '=' decodes to
// the empty string.
func ParameterByName(name, rawURL string) (string, bool) {
	for pos := 0; pos < len(rawURL); {
		idx := strings.Index(rawURL[pos:], name)
		if idx < 0 {
			return "", false
		}
		idx += pos
		pos = idx + len(name)
		if idx == 0 || (rawURL[idx-1] != '?' && rawURL[idx-1] != '&') {
			continue
		}
		rest := rawURL[idx+len(name):]
		if rest == "" || rest[0] == '&' || rest[0] == '#' {
			return "", true
		}
		if rest[0] != '=' {
			continue
		}
		value := rest[1:]
		if end := strings.IndexAny(value, "&#"); end >= 0 {
			value = value[:end]
		}
		decoded, err := url.QueryUnescape(value)
		if err != nil {
			return value, true
		}
		return decoded, true
	}
	return "", false
}

// PrepareRequest assembles the signed URL and POST body for an action. It
// is a pure function of its inputs: no I/O, and cfg is never written to.
// The working payload is extended in place with the session fields the
// protocol requires (auth fields first, tracking source last).
//
// A non-open key with missing auth material is a configuration error and
// fails immediately; it must not be treated as a network failure.
func PrepareRequest(action string, data *Payload, cfg *Config) (*PreparedRequest, error) {
	if cfg == nil {
		return nil, errors.Wrap(ErrInvalidConfig, "nil config")
	}
	if data == nil {
		data = NewPayload()
	}

	if !cfg.IsOpen() {
		if cfg.WebAPI.Key == "" || cfg.Uber.AuthTstamp == "" || cfg.Uber.AuthHash == "" || cfg.UserID == "" {
			return nil, errors.Wrap(ErrInvalidConfig,
				"authenticated key mode requires authTstamp, authHash and userId")
		}
		data.Set("authTstamp", cfg.Uber.AuthTstamp)
		data.Set("authUserID", cfg.UserID)
	}
	data.Set("source", cfg.TrackingSource)

	encoded := base64.StdEncoding.EncodeToString([]byte(data.EncodedForm()))
	hash := SignAction(cfg.WebAPI.Key, action, data, cfg.Uber.AuthHash)

	locale := "0"
	if v, ok := ParameterByName("L", cfg.WebsiteURL); ok && v != "" {
		locale = v
	}

	requestURL := fmt.Sprintf(
		"%sindex.php?eID=api&key=%s&action=%s&hash=%s&outputFormat=json&apiVersion=%s&L=%s&source=%s",
		cfg.WebsiteURL, cfg.WebAPI.Key, action, hash, cfg.WebAPI.Version, locale, cfg.TrackingSource)

	return &PreparedRequest{
		URL:    requestURL,
		Body:   "data=" + encoded,
		Method: http.MethodPost,
	}, nil
}
