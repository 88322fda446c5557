package payload

import (
	"encoding/base64"
	"strings"
)

// DecodeBase64 decodes a base64 payload as the device
// sends it. A data URI prefix ("data:image/jpeg;base64,")
// is tolerated and stripped.
func DecodeBase64(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		if _, rest, ok := strings.Cut(s, ";base64,"); ok {
			s = rest
		}
	}

	return base64.StdEncoding.DecodeString(s)
}
