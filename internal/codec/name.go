package codec

import (
	"bytes"

	"github.com/cockroachdb/errors"

	"github.com/windingtree/wt-client/pkg/types"
)

// NameSize is the width of a ledger identifier.
const NameSize = 32

// EncodeName right-pads name with zero bytes to a 32-byte identifier.
// Names are never truncated.
func EncodeName(name string) ([NameSize]byte, error) {
	var out [NameSize]byte
	if name == "" {
		return out, errors.Wrap(types.ErrEncoding, "empty name")
	}
	if len(name) > NameSize {
		return out, types.NameTooLong(name)
	}
	if bytes.IndexByte([]byte(name), 0) >= 0 {
		return out, errors.Wrapf(types.ErrEncoding, "name %q contains a zero byte", name)
	}
	copy(out[:], name)
	return out, nil
}

// DecodeName strips the zero padding from an identifier.
func DecodeName(b [NameSize]byte) string {
	if i := bytes.IndexByte(b[:], 0); i >= 0 {
		return string(b[:i])
	}
	return string(b[:])
}
