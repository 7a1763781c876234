package dns

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	btpserrors "github.com/btps-org/btps-core/internal/errors"
)

// DefaultPort is the BTPS wire protocol's default port (spec §6).
const DefaultPort = 3443

// Address is the normalized host/port of a BTPS peer.
type Address struct {
	Host string
	Port int
}

// ParseAddress normalizes "host[:port]" or "btps://host[:port]" into a
// structured Address, defaulting the port to DefaultPort (spec §4.1).
func ParseAddress(input string) (*Address, error) {
	input = strings.TrimPrefix(input, "btps://")
	if input == "" {
		return nil, fmt.Errorf("address: empty input: %w", btpserrors.ErrInvalidHostname)
	}

	host, portStr, err := net.SplitHostPort(input)
	if err != nil {
		// No port present; treat the whole string as the host.
		host = input
		portStr = ""
	}
	if host == "" {
		return nil, fmt.Errorf("address: empty host in %q: %w", input, btpserrors.ErrInvalidHostname)
	}

	port := DefaultPort
	if portStr != "" {
		port, err = strconv.Atoi(portStr)
		if err != nil || port <= 0 || port > 65535 {
			return nil, fmt.Errorf("address: invalid port in %q: %w", input, btpserrors.ErrInvalidHostname)
		}
	}
	return &Address{Host: host, Port: port}, nil
}

// String renders "host:port".
func (a *Address) String() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}
