package bytrofront

import "encoding/base64"

// SignAction computes the request signature for an action.
//
// In open mode the hash binds the base64 of the percent-encoded canonical
// form; no secret is involved. In authenticated mode it binds the plain
// canonical form plus the session's authHash, so both the action name and
// the exact parameter order are covered by the signature.
func SignAction(key, action string, data *Payload, authHash string) string {
	if key == OpenKey {
		encoded := base64.StdEncoding.EncodeToString([]byte(data.EncodedForm()))
		return sha1Hex(key + action + encodeURIComponent(encoded))
	}
	return sha1Hex(key + action + data.PlainForm() + authHash)
}
