package dns

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress_BareHost(t *testing.T) {
	addr, err := ParseAddress("btps.example.org")
	require.NoError(t, err)
	assert.Equal(t, "btps.example.org", addr.Host)
	assert.Equal(t, DefaultPort, addr.Port)
}

func TestParseAddress_HostAndPort(t *testing.T) {
	addr, err := ParseAddress("btps.example.org:9443")
	require.NoError(t, err)
	assert.Equal(t, "btps.example.org", addr.Host)
	assert.Equal(t, 9443, addr.Port)
}

func TestParseAddress_SchemePrefix(t *testing.T) {
	addr, err := ParseAddress("btps://btps.example.org:9443")
	require.NoError(t, err)
	assert.Equal(t, "btps.example.org", addr.Host)
	assert.Equal(t, 9443, addr.Port)
}

func TestParseAddress_EmptyIsError(t *testing.T) {
	_, err := ParseAddress("")
	assert.Error(t, err)
}

func TestParseAddress_InvalidPortIsError(t *testing.T) {
	_, err := ParseAddress("host:notaport")
	assert.Error(t, err)
}

func TestParseAddress_StringRoundTrip(t *testing.T) {
	addr, err := ParseAddress("host:1234")
	require.NoError(t, err)
	assert.Equal(t, "host:1234", addr.String())
}
