package main

import (
	"bufio"
	"context"
	"crypto/tls"
	"crypto/x509"
	"io"
	"net"
	"net/http"
	"net/url"
	"runtime"
	"strings"

	units "github.com/docker/go-units"
	"github.com/pkg/errors"
	utls "github.com/refraction-networking/utls"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html/charset"
	"golang.org/x/net/http2"
)

const defaultUA = "Mozilla/5.0 (X11; Linux x86_64; rv:133.0) Gecko/20100101 Firefox/133.0"

// defaultMaxResponseBytes caps a single response body. Overridden by the
// --max-response-size flag; 0 means unlimited.
const defaultMaxResponseBytes int64 = 128 * 1024 * 1024

type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// lineSeparator terminates every line of fetched content.
func lineSeparator() string {
	if runtime.GOOS == "windows" {
		return "\r\n"
	}
	return "\n"
}

func parseProxyURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid proxy URL %q", raw)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("invalid proxy URL %q: need scheme and host", raw)
	}
	return u, nil
}

// client picks the HTTP client for u. With a proxy configured the standard
// TLS stack is used so requests can tunnel through CONNECT; https targets
// otherwise get the browser fingerprint.
func (c *copier) client(u *url.URL) *http.Client {
	switch {
	case c.cfg.proxyURL != "":
		return newProxyClient(c.cfg.proxyURL, c.cfg, c.dial)
	case strings.EqualFold(u.Scheme, "https"):
		return newBrowserClient(c.cfg, c.dial)
	default:
		return &http.Client{
			Timeout: c.cfg.timeout,
			Transport: &http.Transport{
				DialContext: c.dial,
			},
		}
	}
}

func newProxyClient(proxyAddr string, cfg config, dial dialFunc) *http.Client {
	transport := &http.Transport{
		DialContext:     dial,
		TLSClientConfig: &tls.Config{RootCAs: cfg.rootCAs},
	}
	if proxyURL, err := parseProxyURL(proxyAddr); err == nil {
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	return &http.Client{
		Timeout:   cfg.timeout,
		Transport: transport,
	}
}

// utlsConn wraps a utls.UConn and satisfies net.Conn plus the
// ConnectionState method net/http2 looks for.
type utlsConn struct {
	*utls.UConn
}

func (c *utlsConn) ConnectionState() tls.ConnectionState {
	cs := c.UConn.ConnectionState()
	return tls.ConnectionState{
		Version:                    cs.Version,
		HandshakeComplete:          cs.HandshakeComplete,
		CipherSuite:                cs.CipherSuite,
		NegotiatedProtocol:         cs.NegotiatedProtocol,
		NegotiatedProtocolIsMutual: cs.NegotiatedProtocolIsMutual,
		ServerName:                 cs.ServerName,
		PeerCertificates:           cs.PeerCertificates,
		VerifiedChains:             cs.VerifiedChains,
		OCSPResponse:               cs.OCSPResponse,
		TLSUnique:                  cs.TLSUnique,
	}
}

// newBrowserClient returns a client that presents a Firefox TLS
// fingerprint and speaks HTTP/2 or HTTP/1.1 depending on ALPN.
func newBrowserClient(cfg config, dial dialFunc) *http.Client {
	return &http.Client{
		Timeout: cfg.timeout,
		Transport: &browserTransport{
			dial:    dial,
			rootCAs: cfg.rootCAs,
			h1:      &http.Transport{DialContext: dial},
			h2:      &http2.Transport{},
		},
	}
}

type browserTransport struct {
	dial    dialFunc
	rootCAs *x509.CertPool // nil uses the system roots
	h1      *http.Transport
	h2      *http2.Transport
}

func (bt *browserTransport) dialUTLS(ctx context.Context, network, addr string) (net.Conn, string, error) {
	conn, err := bt.dial(ctx, network, addr)
	if err != nil {
		return nil, "", err
	}

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}

	tlsConn := utls.UClient(conn, &utls.Config{
		ServerName: host,
		RootCAs:    bt.rootCAs,
	}, utls.HelloFirefox_120)

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, "", err
	}

	return &utlsConn{tlsConn}, tlsConn.ConnectionState().NegotiatedProtocol, nil
}

func (bt *browserTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme != "https" {
		return bt.h1.RoundTrip(req)
	}

	addr := req.URL.Host
	if !hasPort(addr) {
		addr = net.JoinHostPort(req.URL.Hostname(), "443")
	}

	conn, alpn, err := bt.dialUTLS(req.Context(), "tcp", addr)
	if err != nil {
		return nil, err
	}

	if alpn == "h2" {
		h2conn, err := bt.h2.NewClientConn(conn)
		if err != nil {
			conn.Close()
			return nil, err
		}
		resp, err := h2conn.RoundTrip(req)
		if err != nil {
			h2conn.Close()
			return nil, err
		}
		resp.Body = &connClosingBody{ReadCloser: resp.Body, conn: h2conn}
		return resp, nil
	}

	// HTTP/1.1: hand the established TLS conn to a one-shot transport.
	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return conn, nil
		},
		DisableKeepAlives: true,
	}
	return transport.RoundTrip(req)
}

// connClosingBody closes the per-request HTTP/2 connection together with
// the response body.
type connClosingBody struct {
	io.ReadCloser
	conn io.Closer
}

func (b *connClosingBody) Close() error {
	err := b.ReadCloser.Close()
	b.conn.Close()
	return err
}

func hasPort(host string) bool {
	_, _, err := net.SplitHostPort(host)
	return err == nil
}

// fetch performs a single GET for loc and returns the body as UTF-8 text,
// one platform line separator after every line. Any failure is a transfer
// error; nothing is retried.
func (c *copier) fetch(loc location) (string, error) {
	rawURL := loc.URL.String()
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	if err != nil {
		return "", transferError(err)
	}
	if c.cfg.userAgent != "" {
		req.Header.Set("User-Agent", c.cfg.userAgent)
	}

	client := c.client(loc.URL)
	defer client.CloseIdleConnections()
	resp, err := client.Do(req)
	if err != nil {
		return "", transferError(errors.Wrap(err, "fetch failed"))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", transferError(errors.Errorf("HTTP %d for %s", resp.StatusCode, rawURL))
	}

	// Read one byte past the limit so overflow is detectable.
	var r io.Reader = resp.Body
	var limited *io.LimitedReader
	if c.cfg.maxResponseBytes > 0 {
		limited = &io.LimitedReader{R: resp.Body, N: c.cfg.maxResponseBytes + 1}
		r = limited
	}
	// charset.NewReader fails with io.EOF on an empty body; that is an
	// empty page, not a transfer fault.
	var content string
	var n int64
	text, err := charset.NewReader(r, resp.Header.Get("Content-Type"))
	if err != nil && err != io.EOF {
		return "", transferError(errors.Wrap(err, "reading response"))
	}
	if err == nil {
		content, n, err = readLines(text, lineSeparator())
		if err != nil {
			return "", transferError(errors.Wrap(err, "reading response"))
		}
	}
	if limited != nil && limited.N <= 0 {
		return "", transferError(errors.Errorf("response body exceeds maximum allowed size (%s)",
			units.BytesSize(float64(c.cfg.maxResponseBytes))))
	}

	logrus.WithFields(logrus.Fields{
		"url":  rawURL,
		"host": loc.Host,
		"size": units.HumanSize(float64(n)),
	}).Info("fetched")
	return content, nil
}

// readLines copies r line by line, stripping "\n" or "\r\n" and writing sep
// after each line. A lone "\r" is kept as content, not treated as a line
// break. It returns the text and the number of bytes read.
func readLines(r io.Reader, sep string) (string, int64, error) {
	var b strings.Builder
	var n int64
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		n += int64(len(line))
		if line != "" {
			line = strings.TrimSuffix(line, "\n")
			line = strings.TrimSuffix(line, "\r")
			b.WriteString(line)
			b.WriteString(sep)
		}
		if err == io.EOF {
			return b.String(), n, nil
		}
		if err != nil {
			return "", n, err
		}
	}
}
