package main

import (
	"crypto/x509"
	"net"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	defaultOutputDir = "./out"
	defaultTimeout   = 30 * time.Second
	fileSuffix       = ".txt"
)

// config holds the options of a copier. It is not modified after newCopier.
type config struct {
	outputDir        string
	timeout          time.Duration
	userAgent        string
	maxResponseBytes int64 // 0 means unlimited
	proxyURL         string
	blockPrivate     bool
	rootCAs          *x509.CertPool // nil uses the system roots
}

func defaultConfig() config {
	return config{
		outputDir:        defaultOutputDir,
		timeout:          defaultTimeout,
		userAgent:        defaultUA,
		maxResponseBytes: defaultMaxResponseBytes,
		blockPrivate:     true,
	}
}

// copier downloads one page per copy call and stores its text under
// cfg.outputDir. Calls are independent and may run in parallel.
type copier struct {
	cfg  config
	dial dialFunc
}

// location is a URL that passed resolution and can be fetched.
type location struct {
	URL  *url.URL
	Host string
	Port string
}

// newCopier validates cfg and returns a ready copier. The output directory
// must already exist; it is never created here.
func newCopier(cfg config) (*copier, error) {
	if err := checkOutputDir(cfg.outputDir); err != nil {
		return nil, writeError(err)
	}
	if cfg.proxyURL != "" {
		if _, err := parseProxyURL(cfg.proxyURL); err != nil {
			return nil, err
		}
	}
	if cfg.maxResponseBytes < 0 {
		return nil, errors.New("max response size must not be negative")
	}

	d := &net.Dialer{Timeout: cfg.timeout}
	dial := dialFunc(d.DialContext)
	if cfg.blockPrivate {
		dial = safeDialContext(dial)
	}
	return &copier{cfg: cfg, dial: dial}, nil
}

func checkOutputDir(dir string) error {
	if dir == "" {
		return errors.New("output directory not set")
	}
	fi, err := os.Stat(dir)
	if err != nil {
		return errors.Wrap(err, "output directory")
	}
	if !fi.IsDir() {
		return errors.Errorf("output directory %s is not a directory", dir)
	}
	return nil
}

// copy runs parse, resolve, fetch, deriveFileName and save in order and
// returns the path of the written file. The first failing step ends the run.
func (c *copier) copy(address string) (string, error) {
	u, err := parseAddress(address)
	if err != nil {
		return "", err
	}
	loc, err := resolve(u)
	if err != nil {
		return "", err
	}

	log := logrus.WithField("url", address)
	content, err := c.fetch(loc)
	if err != nil {
		return "", err
	}

	name, err := deriveFileName(u)
	if err != nil {
		return "", err
	}

	path, err := save(content, name, c.cfg.outputDir)
	if err != nil {
		return "", err
	}
	log.WithField("file", path).Debug("saved")
	return path, nil
}

// uriChars are the ASCII characters RFC 3986 allows in a URI: unreserved,
// reserved and '%' for escapes.
const uriChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789" +
	"-._~" + ":/?#[]@" + "!$&'()*+,;=" + "%"

// illegalURIRune reports whether r may not appear unescaped in a URI.
// Non-ASCII letters and symbols are accepted as-is; whitespace and control
// characters are not.
func illegalURIRune(r rune) bool {
	if r < utf8.RuneSelf {
		return !strings.ContainsRune(uriChars, r)
	}
	return unicode.IsSpace(r) || unicode.IsControl(r)
}

// parseAddress turns an address into a URL. Unlike url.Parse alone it
// rejects characters outside the URI grammar, such as spaces, '|', '{',
// '<', '"', '^', '\' and '`'.
func parseAddress(address string) (*url.URL, error) {
	if address == "" {
		return nil, invalidAddress(errors.New("empty address"))
	}
	if i := strings.IndexFunc(address, illegalURIRune); i >= 0 {
		return nil, invalidAddress(errors.Errorf("illegal character at index %d in %q", i, address))
	}
	u, err := url.Parse(address)
	if err != nil {
		return nil, invalidAddress(err)
	}
	return u, nil
}

// resolve checks that u names something the HTTP client can fetch.
func resolve(u *url.URL) (location, error) {
	if u.Scheme == "" {
		return location{}, unresolvable("resolve", errors.Errorf("%s: missing scheme", u))
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return location{}, unresolvable("resolve", errors.Errorf("%s: unsupported scheme %q", u, u.Scheme))
	}
	host := u.Hostname()
	if host == "" {
		return location{}, unresolvable("resolve", errors.Errorf("%s: missing host", u))
	}
	port := u.Port()
	if port == "" {
		port = "80"
		if scheme == "https" {
			port = "443"
		}
	}
	return location{URL: u, Host: host, Port: port}, nil
}

var disallowedFileChars = regexp.MustCompile(`[^a-zA-Z0-9.-]`)

// sanitizeHost replaces every character outside [A-Za-z0-9.-] with '-'.
func sanitizeHost(host string) string {
	return disallowedFileChars.ReplaceAllString(host, "-")
}

// deriveFileName names the output file after the URL's host.
func deriveFileName(u *url.URL) (string, error) {
	host := u.Hostname()
	if host == "" {
		return "", unresolvable("deriveFileName", errors.Errorf("%s: no host to name the file after", u))
	}
	return sanitizeHost(host) + fileSuffix, nil
}

