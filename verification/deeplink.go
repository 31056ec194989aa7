package verification

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrBadStart marks an undecodable or unrecognized start parameter.
var ErrBadStart = errors.New("malformed start parameter")

// StartKind discriminates the two deep-link payloads.
type StartKind int

const (
	// StartGet requests a file download.
	StartGet StartKind = iota
	// StartVerify is the return leg from the web flow.
	StartVerify
)

// Start is a decoded deep-link payload.
type Start struct {
	Kind    StartKind
	PostNo  int64
	TokenID string
}

// Deep links are URL-safe base64 of "get-<post>" or "verify-<token>".
// Decoders accept both padded and unpadded forms; new encodings are
// canonical unpadded.

// EncodeGet builds the start parameter requesting a file.
func EncodeGet(postNo int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(fmt.Sprintf("get-%d", postNo)))
}

// EncodeVerify builds the start parameter for the web-flow return leg.
func EncodeVerify(tokenID string) string {
	return base64.RawURLEncoding.EncodeToString([]byte("verify-" + tokenID))
}

// DecodeStart parses a start parameter.
func DecodeStart(param string) (*Start, error) {
	raw, err := decodeURLSafe(param)
	if err != nil {
		return nil, errors.Wrap(ErrBadStart, "undecodable base64")
	}
	payload := string(raw)
	switch {
	case strings.HasPrefix(payload, "get-"):
		postNo, err := strconv.ParseInt(payload[len("get-"):], 10, 64)
		if err != nil || postNo < 1 {
			return nil, errors.Wrapf(ErrBadStart, "bad post number in %q", payload)
		}
		return &Start{Kind: StartGet, PostNo: postNo}, nil
	case strings.HasPrefix(payload, "verify-"):
		tokenID := payload[len("verify-"):]
		if tokenID == "" {
			return nil, errors.Wrap(ErrBadStart, "empty token id")
		}
		return &Start{Kind: StartVerify, TokenID: tokenID}, nil
	default:
		return nil, errors.Wrapf(ErrBadStart, "unknown payload %q", payload)
	}
}

// EncodeTokenParam externalizes a token id for carriage in web URLs.
func EncodeTokenParam(tokenID string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(tokenID))
}

// DecodeTokenParam reverses EncodeTokenParam, accepting padded input too.
func DecodeTokenParam(param string) (string, error) {
	raw, err := decodeURLSafe(param)
	if err != nil {
		return "", errors.Wrap(err, "decode token parameter")
	}
	return string(raw), nil
}

func decodeURLSafe(s string) ([]byte, error) {
	if strings.ContainsAny(s, "=") {
		return base64.URLEncoding.DecodeString(s)
	}
	return base64.RawURLEncoding.DecodeString(s)
}
