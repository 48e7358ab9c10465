package main

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSRFProtection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("secret internal data"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.blockPrivate = true
	c, err := newCopier(cfg)
	require.NoError(t, err)

	_, err = c.copy(srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransfer)
	assert.Contains(t, err.Error(), "blocked connection")
	assert.Empty(t, listDir(t, dir))
}

func TestSSRFProtection_Disabled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("local data"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	c, err := newCopier(testConfig(dir))
	require.NoError(t, err)

	path, err := c.copy(srv.URL)
	require.NoError(t, err)
	assert.Equal(t, []string{"127.0.0.1.txt"}, listDir(t, dir))
	assert.FileExists(t, path)
}

func TestIsPrivateIP(t *testing.T) {
	private := []string{
		"127.0.0.1",
		"::1",
		"10.0.0.1",
		"10.255.255.255",
		"172.16.0.1",
		"172.31.255.255",
		"192.168.0.1",
		"192.168.255.255",
		"169.254.1.1",
		"fe80::1",
		"fd00::1",
		"0.0.0.0",
	}
	for _, ip := range private {
		assert.True(t, isPrivateIP(net.ParseIP(ip)), "%s should be private", ip)
	}

	public := []string{
		"8.8.8.8",
		"1.1.1.1",
		"203.0.113.1",
		"93.184.216.34",
		"2606:4700:4700::1111",
	}
	for _, ip := range public {
		assert.False(t, isPrivateIP(net.ParseIP(ip)), "%s should be public", ip)
	}
}

func TestSafeDialContext_BlocksPrivate(t *testing.T) {
	called := false
	dial := safeDialContext(func(ctx context.Context, network, addr string) (net.Conn, error) {
		called = true
		return nil, nil
	})
	_, err := dial(context.Background(), "tcp", "127.0.0.1:80")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked connection")
	assert.False(t, called)
}

func TestSafeDialContext_DialsResolvedPublicIP(t *testing.T) {
	var got string
	dial := safeDialContext(func(ctx context.Context, network, addr string) (net.Conn, error) {
		got = addr
		return nil, nil
	})
	_, err := dial(context.Background(), "tcp", "93.184.216.34:443")
	require.NoError(t, err)
	assert.Equal(t, "93.184.216.34:443", got)
}

func TestSafeDialContext_InvalidAddr(t *testing.T) {
	d := &net.Dialer{Timeout: 5 * time.Second}
	dial := safeDialContext(d.DialContext)
	_, err := dial(context.Background(), "tcp", "not-a-valid-address")
	assert.Error(t, err)
}
