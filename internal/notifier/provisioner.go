// Package notifier consumes order events and provisions a private channel
// with the order summary for each one.
package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/abgdnv/shopbot/internal/notifier/chat"
	"github.com/abgdnv/shopbot/pkg/config"
	"github.com/abgdnv/shopbot/pkg/messaging/events"
	"github.com/google/uuid"
)

// Provisioner creates one restricted channel per order and posts the order
// summary into it.
type Provisioner struct {
	chat   chat.Client
	cfg    config.ChatConfig
	logger *slog.Logger
}

// NewProvisioner creates a Provisioner with the provided chat client and configuration.
func NewProvisioner(chatClient chat.Client, cfg config.ChatConfig, logger *slog.Logger) *Provisioner {
	return &Provisioner{
		chat:   chatClient,
		cfg:    cfg,
		logger: logger.With("component", "provisioner"),
	}
}

// Provision creates the order channel, restricted to the buyer and the staff
// role, and posts the summary mentioning the order admin.
func (p *Provisioner) Provision(ctx context.Context, event events.OrderCreatedEvent) error {
	req := chat.ChannelRequest{
		Name:       p.channelName(event.UserID),
		AllowUsers: []string{event.UserID},
	}
	if p.cfg.StaffRole != "" {
		req.AllowRoles = []string{p.cfg.StaffRole}
	}

	channel, err := p.chat.CreateChannel(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to provision channel for order %s: %w", event.OrderID, err)
	}

	if err := p.chat.PostMessage(ctx, channel.ID, p.summary(event)); err != nil {
		return fmt.Errorf("failed to post summary for order %s: %w", event.OrderID, err)
	}

	p.logger.InfoContext(ctx, "order channel provisioned",
		"order_id", event.OrderID,
		"user_id", event.UserID,
		"channel_id", channel.ID,
		"channel", channel.Name)
	return nil
}

// channelName builds a per-order channel name: prefix, buyer and a short
// random suffix, lowercased with spaces replaced.
func (p *Provisioner) channelName(userID string) string {
	name := fmt.Sprintf("%s%s-%s", p.cfg.ChannelPrefix, userID, uuid.NewString()[:6])
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}

// summary renders the order lines and total as a single message.
func (p *Provisioner) summary(event events.OrderCreatedEvent) string {
	var b strings.Builder
	if p.cfg.OrderAdmin != "" {
		b.WriteString(fmt.Sprintf("<@%s> ", p.cfg.OrderAdmin))
	}
	b.WriteString(fmt.Sprintf("New order %s from <@%s>\n", event.OrderID, event.UserID))
	for _, line := range event.Lines {
		b.WriteString(fmt.Sprintf("%s: qty %d x %d = %d\n", line.Name, line.Quantity, line.UnitPrice, line.Subtotal))
	}
	b.WriteString(fmt.Sprintf("Total: %d", event.TotalPrice))
	return b.String()
}
