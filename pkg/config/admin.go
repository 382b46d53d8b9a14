package config

import (
	"fmt"
	"strings"
)

// AdminConfig holds the shared token gating catalog-management routes.
// The chat gateway checks the user's platform permissions and attaches this
// token when relaying admin commands.
type AdminConfig struct {
	Token string `koanf:"token"`
}

// String returns a string representation of the admin configuration.
func (c *AdminConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Admin ---\n")
	b.WriteString(fmt.Sprintf("  token: %s\n", maskToken(c.Token)))
	return b.String()
}

func (c *AdminConfig) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("admin token is not configured")
	}
	return nil
}
