// Package domain holds the BTPS wire types: identities, artifact
// envelopes, trust records, and retry bookkeeping. Types in this
// package are validated at construction where practical and otherwise
// expose a Validate method; they hold no I/O state.
package domain

import (
	"fmt"
	"regexp"
	"strings"

	btpserrors "github.com/btps-org/btps-core/internal/errors"
)

var errInvalidIdentity = btpserrors.ErrInvalidIdentity

// labelPattern is a conservative grammar for both halves of an
// identity: letters, digits, dot, dash, underscore. Neither half may
// be empty.
var labelPattern = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?$`)

// Identity is the BTPS address form "account$domain".
type Identity struct {
	account string
	domain  string
}

// NewIdentity constructs an Identity from already-split halves,
// validating both.
func NewIdentity(account, domain string) (*Identity, error) {
	id := &Identity{account: account, domain: domain}
	if err := id.Validate(); err != nil {
		return nil, err
	}
	return id, nil
}

// ParseIdentity splits s on the single "$" separator and validates
// both halves. Returns an error wrapping errors.ErrInvalidIdentity on
// any malformed input.
func ParseIdentity(s string) (*Identity, error) {
	account, domain, ok := strings.Cut(s, "$")
	if !ok {
		return nil, fmt.Errorf("parse identity %q: %w", s, errInvalidIdentity)
	}
	return NewIdentity(account, domain)
}

// Validate checks both halves are non-empty and match the label
// grammar.
func (i *Identity) Validate() error {
	if i.account == "" {
		return fmt.Errorf("identity: empty account: %w", errInvalidIdentity)
	}
	if i.domain == "" {
		return fmt.Errorf("identity: empty domain: %w", errInvalidIdentity)
	}
	if !labelPattern.MatchString(i.account) {
		return fmt.Errorf("identity: account %q fails grammar: %w", i.account, errInvalidIdentity)
	}
	if !isValidDomainLabel(i.domain) {
		return fmt.Errorf("identity: domain %q fails grammar: %w", i.domain, errInvalidIdentity)
	}
	return nil
}

// isValidDomainLabel accepts dot-separated DNS labels.
func isValidDomainLabel(domain string) bool {
	labels := strings.Split(domain, ".")
	for _, l := range labels {
		if !labelPattern.MatchString(l) {
			return false
		}
	}
	return true
}

// Account returns the account half.
func (i *Identity) Account() string { return i.account }

// Domain returns the domain half.
func (i *Identity) Domain() string { return i.domain }

// String renders the canonical "account$domain" form.
func (i *Identity) String() string {
	return i.account + "$" + i.domain
}

// Equal reports whether two identities denote the same address.
func (i *Identity) Equal(other *Identity) bool {
	if i == nil || other == nil {
		return i == other
	}
	return i.account == other.account && i.domain == other.domain
}
