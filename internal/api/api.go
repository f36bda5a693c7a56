package api

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"mailbeacon/internal/auth"
	"mailbeacon/internal/mailer"
	"mailbeacon/internal/notify"
)

// Store holds external dependencies required by the API layer.
type Store struct {
	ORM *gorm.DB
}

// Config controls runtime behaviour for the API handlers.
type Config struct {
	OTPTTL time.Duration

	// TrackCreatorViews counts every fetch, including ones matching the
	// creator's address. Off by default: self-views are suppressed.
	TrackCreatorViews bool
}

// API wires dependencies and configuration for HTTP handlers.
type API struct {
	store    *Store
	tokens   *auth.JWTManager
	mail     mailer.Sender
	notifier *notify.Dispatcher
	config   Config
}

// New initialises the API layer with sane defaults applied to the provided configuration.
func New(store *Store, tokens *auth.JWTManager, mail mailer.Sender, notifier *notify.Dispatcher, cfg Config) (*API, error) {
	if store == nil || store.ORM == nil {
		return nil, errors.New("store ORM is required")
	}
	if tokens == nil {
		return nil, errors.New("token manager is required")
	}
	if mail == nil {
		return nil, errors.New("mail sender is required")
	}

	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = 10 * time.Minute
	}

	return &API{
		store:    store,
		tokens:   tokens,
		mail:     mail,
		notifier: notifier,
		config:   cfg,
	}, nil
}
