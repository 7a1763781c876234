// Package dns resolves BTPS DNS TXT records: the domain-level host
// record under `_btps.<domain>`, and selector-scoped key records under
// `<selector>._btps.<account>.<domain>` (spec §4.1, §6).
package dns

import (
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"strings"

	"github.com/btps-org/btps-core/internal/core/domain"
	"github.com/btps-org/btps-core/internal/core/ports"
	btpserrors "github.com/btps-org/btps-core/internal/errors"
)

// namespace is the reserved DNS label BTPS records live under.
const namespace = "_btps"

// Resolver implements ports.Resolver using net.Resolver.LookupTXT. No
// third-party DNS client appears anywhere in the reference corpus;
// net.Resolver is the idiomatic stdlib way to do TXT lookups, so it is
// used directly rather than introducing an unneeded dependency.
type Resolver struct {
	net *net.Resolver
}

// New returns a Resolver using the default net.Resolver.
func New() *Resolver {
	return &Resolver{net: net.DefaultResolver}
}

// NewWithResolver allows injecting a net.Resolver, e.g. one pointed at
// a test DNS server.
func NewWithResolver(r *net.Resolver) *Resolver {
	return &Resolver{net: r}
}

// ResolveHost looks up `_btps.<domain>` and parses the required `v`,
// `u`, and `s` fields.
func (r *Resolver) ResolveHost(ctx context.Context, dom string) (*ports.HostRecord, error) {
	fqdn := namespace + "." + dom
	fields, err := r.lookup(ctx, fqdn)
	if err != nil {
		return nil, err
	}

	if fields["v"] != domain.ProtocolVersion {
		return nil, fmt.Errorf("dns: %s: unsupported protocol version %q: %w", fqdn, fields["v"], btpserrors.ErrUnsupportedProtocol)
	}
	host, hasHost := fields["u"]
	selector, hasSelector := fields["s"]
	if !hasHost || !hasSelector || host == "" || selector == "" {
		return nil, fmt.Errorf("dns: %s: missing u/s fields: %w", fqdn, btpserrors.ErrInvalidHostname)
	}
	return &ports.HostRecord{Host: host, Selector: selector}, nil
}

// ResolveKey looks up `<selector>._btps.<account>.<domain>` and
// returns the requested field. For ports.KeyFieldPEM, the base64 `p`
// value is decoded into the raw DER key bytes (no PEM armor).
func (r *Resolver) ResolveKey(ctx context.Context, id *domain.Identity, selector string, which ports.KeyField) (string, error) {
	fqdn := fmt.Sprintf("%s.%s.%s.%s", selector, namespace, id.Account(), id.Domain())
	fields, err := r.lookup(ctx, fqdn)
	if err != nil {
		return "", err
	}

	switch which {
	case ports.KeyFieldVersion:
		return fields["v"], nil
	case ports.KeyFieldKey:
		return fields["k"], nil
	case ports.KeyFieldPEM:
		raw, ok := fields["p"]
		if !ok {
			return "", fmt.Errorf("dns: %s: missing p field: %w", fqdn, btpserrors.ErrInvalidHostname)
		}
		der, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return "", fmt.Errorf("dns: %s: p field not base64: %w", fqdn, btpserrors.ErrInvalidHostname)
		}
		return string(der), nil
	default:
		return "", fmt.Errorf("dns: unknown key field %q", which)
	}
}

// lookup concatenates every TXT record's strings, splits on ";", and
// parses each "k=v" pair, trimming whitespace throughout (spec §4.1).
func (r *Resolver) lookup(ctx context.Context, fqdn string) (map[string]string, error) {
	txts, err := r.net.LookupTXT(ctx, fqdn)
	if err != nil {
		return nil, fmt.Errorf("dns: lookup %s: %w: %w", fqdn, btpserrors.ErrDNSResolutionFailed, err)
	}

	fields := make(map[string]string)
	for _, txt := range txts {
		for _, pair := range strings.Split(txt, ";") {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			k, v, ok := strings.Cut(pair, "=")
			if !ok {
				continue
			}
			fields[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	}
	return fields, nil
}
