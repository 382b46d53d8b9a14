package config

import (
	"fmt"
	"strings"
)

type StoreConfig struct {
	File string `koanf:"file"`
}

// String returns a string representation of the store configuration.
func (c *StoreConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Store ---\n")
	b.WriteString(fmt.Sprintf("  file: %s\n", c.File))
	return b.String()
}

func (c *StoreConfig) Validate() error {
	if c.File == "" {
		return fmt.Errorf("store file is not configured")
	}
	return nil
}
