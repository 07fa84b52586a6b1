package service

import "errors"

var (
	// ErrInvalidCredential is returned on any hash mismatch. The targeted
	// credential's failed-attempt counter has already been incremented when
	// this comes back.
	ErrInvalidCredential = errors.New("invalid_credential")

	// ErrInvalidResetToken is returned when no reset token is outstanding or
	// the presented token does not match the stored hash.
	ErrInvalidResetToken = errors.New("invalid_reset_token")

	// ErrResetTokenExpired is returned when the reset token lapsed. The
	// token is not consumed.
	ErrResetTokenExpired = errors.New("reset_token_expired")

	// ErrSecretRecentlyUsed rejects a rotation that reuses the current
	// secret or one of the last five.
	ErrSecretRecentlyUsed = errors.New("secret_recently_used")

	// ErrPincodeNotNumeric rejects pincode secrets containing anything but
	// digits.
	ErrPincodeNotNumeric = errors.New("pincode_not_numeric")
)
