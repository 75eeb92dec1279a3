package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// DefaultProfile is looked up in the project root when no profile is given.
const DefaultProfile = ".syncto.yaml"

// ParseProfile decodes a yaml profile. Defaults are not applied so that
// command line flags can still be layered on top.
func ParseProfile(content []byte) (*Sync, error) {
	var sync Sync

	if err := yaml.Unmarshal(content, &sync); err != nil {
		return nil, fmt.Errorf("fail to parse sync profile, error: %v", err)
	}

	return &sync, nil
}
