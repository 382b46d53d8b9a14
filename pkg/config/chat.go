package config

import (
	"fmt"
	"strings"
)

// ChatConfig holds everything the notifier needs to talk to the chat gateway
// and shape the per-order channels it provisions.
type ChatConfig struct {
	BaseURL       string `koanf:"baseurl"`
	Token         string `koanf:"token"`
	ChannelPrefix string `koanf:"channelprefix"`
	StaffRole     string `koanf:"staffrole"`
	OrderAdmin    string `koanf:"orderadmin"`
}

const defaultChannelPrefix = "order-"

// String returns a string representation of the chat gateway configuration.
func (c *ChatConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Chat gateway ---\n")
	b.WriteString(fmt.Sprintf("  baseurl: %s\n", c.BaseURL))
	b.WriteString(fmt.Sprintf("  token: %s\n", maskToken(c.Token)))
	b.WriteString(fmt.Sprintf("  channelprefix: %s\n", c.ChannelPrefix))
	b.WriteString(fmt.Sprintf("  staffrole: %s\n", c.StaffRole))
	b.WriteString(fmt.Sprintf("  orderadmin: %s\n", c.OrderAdmin))
	return b.String()
}

func (c *ChatConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("chat gateway base URL is not configured")
	}
	if c.Token == "" {
		return fmt.Errorf("chat gateway token is not configured")
	}
	if c.ChannelPrefix == "" {
		c.ChannelPrefix = defaultChannelPrefix
	}
	return nil
}

func maskToken(token string) string {
	if token == "" {
		return "<not configured>"
	}
	return "****"
}
