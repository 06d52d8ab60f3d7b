package frontmatter

import (
	"strings"

	"github.com/inful/mdfp"
)

// FingerprintField is the metadata key the fingerprint is stored under.
const FingerprintField = mdfp.FingerprintField

// Fingerprint computes the mdfp content fingerprint of fields and body. The
// fingerprint field itself and any excluded keys do not participate, so
// storing the result in fields leaves it unchanged.
func Fingerprint(fields map[string]any, body []byte, exclude ...string) (string, error) {
	skip := make(map[string]struct{}, len(exclude)+1)
	skip[strings.ToLower(FingerprintField)] = struct{}{}
	for _, k := range exclude {
		skip[strings.ToLower(k)] = struct{}{}
	}

	hashed := make(map[string]any, len(fields))
	for k, v := range fields {
		if _, ok := skip[strings.ToLower(k)]; ok {
			continue
		}
		hashed[k] = v
	}

	yamlPart := ""
	if len(hashed) > 0 {
		serialized, err := SerializeYAML(hashed, "\n")
		if err != nil {
			return "", err
		}
		yamlPart = strings.TrimSuffix(string(serialized), "\n")
	}
	return mdfp.CalculateFingerprintFromParts(yamlPart, string(body)), nil
}
