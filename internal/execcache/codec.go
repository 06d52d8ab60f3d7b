package execcache

import (
	"encoding/binary"
	"errors"
)

var errShortEntry = errors.New("cache entry truncated")

// encodeEntry frames module id, key and value as length-prefixed fields.
func encodeEntry(id, key string, value []byte) []byte {
	out := make([]byte, 0, 8+len(id)+len(key)+len(value))
	out = binary.AppendUvarint(out, uint64(len(id)))
	out = append(out, id...)
	out = binary.AppendUvarint(out, uint64(len(key)))
	out = append(out, key...)
	return append(out, value...)
}

func decodeEntry(b []byte) (id, key string, value []byte, err error) {
	field := func() (string, error) {
		n, w := binary.Uvarint(b)
		if w <= 0 || uint64(len(b)-w) < n {
			return "", errShortEntry
		}
		s := string(b[w : w+int(n)])
		b = b[w+int(n):]
		return s, nil
	}
	if id, err = field(); err != nil {
		return "", "", nil, err
	}
	if key, err = field(); err != nil {
		return "", "", nil, err
	}
	return id, key, append([]byte(nil), b...), nil
}
