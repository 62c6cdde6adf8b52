package upload

import (
	"encoding/base64"
	"errors"
	"strings"
)

// DecodeDataURL accepts either bare base64 or a data URL
// ("data:image/png;base64,....") and returns the decoded bytes.
func DecodeDataURL(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		_, payload, ok := strings.Cut(s, ",")
		if !ok {
			return nil, &Error{Kind: KindDecode, Err: errors.New("data URL has no payload")}
		}
		s = payload
	}
	if s == "" {
		return nil, &Error{Kind: KindDecode, Err: errors.New("empty payload")}
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, &Error{Kind: KindDecode, Err: err}
	}
	return b, nil
}
