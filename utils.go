package bytrofront

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// sha1Hex computes the protocol's request digest. The backend verifies
// SHA-1 specifically; substituting a stronger hash breaks interoperability.
func sha1Hex(text string) string {
	hash := sha1.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

// formatValue renders a payload value the way the wire protocol expects:
// nil as the empty string, booleans as 0/1, floats without scientific
// notation.
func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case bool:
		if val {
			return "1"
		}
		return "0"
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		if val == float32(int32(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int, int8, int16, int32, int64:
		return fmt.Sprintf("%d", val)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// uriComponentSafe is the set of bytes left unescaped. The backend computes
// signatures over this exact alphabet, so stdlib query escaping (which
// treats spaces, '!', '~', '*', quotes and parens differently) cannot be
// used here.
const uriComponentSafe = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_.!~*'()"

// encodeURIComponent percent-encodes s byte-for-byte compatibly with the
// web client.
func encodeURIComponent(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if strings.IndexByte(uriComponentSafe, c) >= 0 {
			b.WriteByte(c)
		} else {
			b.WriteString(fmt.Sprintf("%%%02X", c))
		}
	}
	return b.String()
}

// elapsedSince returns the wall-clock milliseconds since start, as stamped
// onto results by the endpoint facades.
func elapsedSince(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
