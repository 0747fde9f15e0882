package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/marmos91/deskfs/pkg/vfs/lazy"
)

// LoadManifest reads a lazy-loading manifest file. The manifest is a
// YAML document with a top-level "files" list:
//
//	files:
//	  - path: /Music/song.mp3
//	    ref: library/song.mp3
//	    type: audio
func LoadManifest(path string) ([]lazy.ManifestEntry, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	var entries []lazy.ManifestEntry
	if err := v.UnmarshalKey("files", &entries); err != nil {
		return nil, fmt.Errorf("failed to decode manifest %s: %w", path, err)
	}

	for i, e := range entries {
		if e.Path == "" {
			return nil, fmt.Errorf("manifest %s: files[%d] has no path", path, i)
		}
		if e.Ref == "" {
			return nil, fmt.Errorf("manifest %s: files[%d] has no ref", path, i)
		}
	}
	return entries, nil
}
