package service

import (
	"github.com/halcyonlabs/keywarden/internal/auth/domain"
	"github.com/halcyonlabs/keywarden/internal/auth/events"
	"github.com/halcyonlabs/keywarden/internal/auth/notify"
	"github.com/halcyonlabs/keywarden/internal/auth/store"
)

// PincodeService manages the single pincode credential a user may hold.
// Pincodes are short numeric secrets; anything but digits is rejected at
// creation and rotation.
type PincodeService struct {
	secretStore
}

func NewPincodeService(st store.Store, notifier notify.Notifier, publisher events.Publisher) *PincodeService {
	return &PincodeService{secretStore{
		Store:    st,
		Notifier: notifier,
		Events:   publisher,
		typ:      domain.CredentialPincode,
		validate: validatePincode,
	}}
}

func validatePincode(secret string) error {
	for i := 0; i < len(secret); i++ {
		if secret[i] < '0' || secret[i] > '9' {
			return ErrPincodeNotNumeric
		}
	}
	return nil
}
