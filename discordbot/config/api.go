// Package config with configuration models and utilities
package config

import (
	"errors"
	"io"

	yaml "gopkg.in/yaml.v2"
)

// Read reads configuration, empty input yields empty configuration
func Read(reader io.Reader) (root *Root, err error) {
	root = &Root{}

	err = yaml.NewDecoder(reader).Decode(root)
	if errors.Is(err, io.EOF) {
		err = nil
	}

	return
}

// Write writes configuration
func Write(writer io.Writer, root *Root) (err error) {
	enc := yaml.NewEncoder(writer)

	err = enc.Encode(root)
	if err != nil {
		return
	}

	return enc.Close()
}
