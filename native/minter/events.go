package minter

import (
	"strconv"

	"github.com/alpha-fi/cheddar-maze-minter/core/events"
	"github.com/alpha-fi/cheddar-maze-minter/core/types"
)

const (
	// EventTypeInitialized is emitted once when the gateway configuration is created.
	EventTypeInitialized = "minter.initialized"
	// EventTypeActiveToggled is emitted when the admin flips the active flag.
	EventTypeActiveToggled = "minter.active.toggled"
	// EventTypeMinterChanged is emitted when the admin replaces the minter identity.
	EventTypeMinterChanged = "minter.minter.changed"
	// EventTypeMintIssued is emitted for every accepted issuance request.
	EventTypeMintIssued = "minter.mint.issued"
)

type eventEnvelope struct {
	evt *types.Event
}

func (e eventEnvelope) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e eventEnvelope) Event() *types.Event { return e.evt }

// WrapEvent converts a raw event payload into the emitter-friendly envelope.
func WrapEvent(evt *types.Event) events.Event { return eventEnvelope{evt: evt} }

// InitializedEvent describes the initial configuration.
func InitializedEvent(cfg *Config) *types.Event {
	return &types.Event{
		Type: EventTypeInitialized,
		Attributes: map[string]string{
			"ledger":     cfg.Ledger,
			"admin":      cfg.Admin,
			"minter":     cfg.Minter,
			"dailyQuota": FormatAmount(cfg.DailyQuota),
			"userQuota":  FormatAmount(cfg.UserQuota),
		},
	}
}

// ActiveToggledEvent captures the new value of the active flag.
func ActiveToggledEvent(admin string, active bool) *types.Event {
	return &types.Event{
		Type: EventTypeActiveToggled,
		Attributes: map[string]string{
			"admin":  admin,
			"active": strconv.FormatBool(active),
		},
	}
}

// MinterChangedEvent captures a minter rotation.
func MinterChangedEvent(admin, previous, next string) *types.Event {
	return &types.Event{
		Type: EventTypeMinterChanged,
		Attributes: map[string]string{
			"admin":    admin,
			"previous": previous,
			"minter":   next,
		},
	}
}

// MintIssuedEvent summarises an accepted issuance request.
func MintIssuedEvent(res *MintResult) *types.Event {
	return &types.Event{
		Type: EventTypeMintIssued,
		Attributes: map[string]string{
			"recipient":      res.Recipient,
			"referral":       res.Referral,
			"requested":      FormatAmount(res.Requested),
			"userMinted":     FormatAmount(res.UserMinted),
			"referralMinted": FormatAmount(res.ReferralMinted),
			"day":            strconv.FormatUint(res.Day, 10),
			"dailyUse":       FormatAmount(res.DailyUse),
			"truncated":      strconv.FormatBool(res.Truncated()),
		},
	}
}
