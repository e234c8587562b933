package entities

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/stellar/go-stellar-sdk/strkey"
)

var (
	ErrInvalidTokenID = errors.New("invalid token id")
	assetCodeRegex    = regexp.MustCompile(`^[a-zA-Z0-9]{1,12}$`)
)

// Asset identifies the economy token on the ledger. Its string form, CODE:ISSUER, is the token id.
type Asset struct {
	Code   string `json:"code"   validate:"required,asset_code"`
	Issuer string `json:"issuer" validate:"required,public_key"`
}

func (a Asset) String() string {
	return a.Code + ":" + a.Issuer
}

func (a Asset) Validate() error {
	if !assetCodeRegex.MatchString(a.Code) {
		return fmt.Errorf("%w: asset code %q must be 1-12 alphanumeric characters", ErrInvalidTokenID, a.Code)
	}
	if !strkey.IsValidEd25519PublicKey(a.Issuer) {
		return fmt.Errorf("%w: issuer %q is not a valid public key", ErrInvalidTokenID, a.Issuer)
	}
	return nil
}

// ParseAsset parses a CODE:ISSUER token id.
func ParseAsset(tokenID string) (Asset, error) {
	code, issuer, found := strings.Cut(strings.TrimSpace(tokenID), ":")
	if !found {
		return Asset{}, fmt.Errorf("%w: %q is not in the CODE:ISSUER format", ErrInvalidTokenID, tokenID)
	}

	asset := Asset{Code: code, Issuer: issuer}
	if err := asset.Validate(); err != nil {
		return Asset{}, err
	}
	return asset, nil
}
