package metadata

import (
	"bytes"

	"gopkg.in/yaml.v3"
)

func unmarshal(content []byte, out *any) error {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil
	}
	return yaml.Unmarshal(content, out)
}
