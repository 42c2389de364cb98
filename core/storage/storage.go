// Package storage defines the persistence boundary for the committed
// calendar and the shared configuration. The core never performs I/O itself;
// durability, retries, and delivery of remote updates are the collaborator's
// concern. A failed load means "no data yet", not a fatal error.
package storage

import "github.com/coparent/rota/core/model"

// Settings is the durable, guardian-shared part of the configuration.
type Settings struct {
	GuardianA          model.GuardianID `json:"guardianA"`
	GuardianB          model.GuardianID `json:"guardianB"`
	MaxRunLength       int              `json:"maxRunLength"`
	DefaultBlockLength int              `json:"defaultBlockLength"`
}

// Store persists the committed calendar and settings. Saves are idempotent:
// writing the same value twice leaves the same state.
type Store interface {
	// LoadCalendar returns the committed calendar, or nil when none has
	// been saved yet.
	LoadCalendar() (model.Calendar, error)
	SaveCalendar(model.Calendar) error
	// LoadSettings returns the shared settings, or nil when unset.
	LoadSettings() (*Settings, error)
	SaveSettings(Settings) error
	Close() error
}
