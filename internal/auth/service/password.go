package service

import (
	"github.com/halcyonlabs/keywarden/internal/auth/domain"
	"github.com/halcyonlabs/keywarden/internal/auth/events"
	"github.com/halcyonlabs/keywarden/internal/auth/notify"
	"github.com/halcyonlabs/keywarden/internal/auth/store"
)

// PasswordService manages the single password credential a user may hold.
type PasswordService struct {
	secretStore
}

func NewPasswordService(st store.Store, notifier notify.Notifier, publisher events.Publisher) *PasswordService {
	return &PasswordService{secretStore{
		Store:    st,
		Notifier: notifier,
		Events:   publisher,
		typ:      domain.CredentialPassword,
	}}
}
