package urlhash

import (
	"bytes"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/idna"

	urlerrors "github.com/tamirms/urlhash/errors"
)

// Canonicalize produces the canonical byte form of a parsed URL: the single
// serialization every conforming implementation hashes. The procedure, in
// order (later steps assume earlier normalization):
//
//  1. Lower-case the scheme.
//  2. Lower-case the host.
//  3. IDNA-normalize the host, so a Unicode host and its xn-- equivalent
//     canonicalize identically. IPv6 literals bypass IDNA.
//  4. Drop the port when it equals the scheme's default (see DefaultPort).
//  5. Remove "." and ".." path segments.
//  6. Replace an empty path with "/".
//  7. Re-encode path, query, and fragment with a fixed percent-encoding
//     policy. Encoding is idempotent: canonicalizing an already-canonical
//     form is the identity.
//
// The output is scheme "://" host [":" port] path ["?" query] ["#" fragment].
// Canonicalize is a pure function of its input and is safe for concurrent
// use. It fails only on a nil URL or one with no scheme (ErrInvalidURL) and
// on hosts rejected by IDNA (ErrInvalidHost).
func Canonicalize(u *url.URL) (string, error) {
	if u == nil || u.Scheme == "" {
		return "", urlerrors.ErrInvalidURL
	}
	scheme := strings.ToLower(u.Scheme)

	host, err := canonicalHost(u.Hostname())
	if err != nil {
		return "", err
	}

	port := u.Port()
	if port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			if def, ok := DefaultPort(scheme); ok && def == n {
				port = ""
			} else {
				// Re-render to strip leading zeros.
				port = strconv.Itoa(n)
			}
		}
	}

	path := removeDotSegments(u.EscapedPath())
	if path == "" {
		path = "/"
	} else if path[0] != '/' {
		path = "/" + path
	}
	path = reencode(path, encodePath)

	var b strings.Builder
	b.Grow(len(scheme) + len(host) + len(path) + len(u.RawQuery) + 16)
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(host)
	if port != "" {
		b.WriteByte(':')
		b.WriteString(port)
	}
	b.WriteString(path)
	if u.ForceQuery || u.RawQuery != "" {
		b.WriteByte('?')
		b.WriteString(reencode(u.RawQuery, encodeQuery))
	}
	if f := u.EscapedFragment(); f != "" {
		b.WriteByte('#')
		b.WriteString(reencode(f, encodeFragment))
	}
	return b.String(), nil
}

// canonicalHost lower-cases host and applies IDNA ASCII-compatible encoding.
// IPv6 literals (Hostname strips the brackets; the colons remain) are
// re-bracketed and skip IDNA. Pure-ASCII hosts without an xn-- label need no
// encoding and pass through, which also tolerates hosts IDNA would reject
// (e.g. underscores) but URL parsers accept.
func canonicalHost(host string) (string, error) {
	if host == "" {
		return "", nil
	}
	host = strings.ToLower(host)
	if strings.Contains(host, ":") {
		return "[" + host + "]", nil
	}
	if isASCII(host) && !strings.Contains(host, "xn--") {
		return host, nil
	}
	a, err := idna.Lookup.ToASCII(host)
	if err != nil {
		// The lookup profile enforces registration-time rules some real
		// hosts violate; retry with plain punycode before giving up.
		a, err = idna.ToASCII(host)
		if err != nil {
			return "", fmt.Errorf("%w: %q", urlerrors.ErrInvalidHost, host)
		}
	}
	return a, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// removeDotSegments resolves "." and ".." segments in an already-escaped
// path, per the remove_dot_segments algorithm of RFC 3986 §5.2.4. A ".."
// at the root is dropped, never an error. Only literal dot segments are
// recognized; "%2E" stays an ordinary character.
func removeDotSegments(p string) string {
	if !strings.Contains(p, ".") {
		return p
	}
	var out []byte
	for len(p) > 0 {
		switch {
		case strings.HasPrefix(p, "../"):
			p = p[3:]
		case strings.HasPrefix(p, "./"):
			p = p[2:]
		case strings.HasPrefix(p, "/./"):
			p = p[2:]
		case p == "/.":
			p = "/"
		case strings.HasPrefix(p, "/../"):
			p = p[3:]
			out = trimLastSegment(out)
		case p == "/..":
			p = "/"
			out = trimLastSegment(out)
		case p == "." || p == "..":
			p = ""
		default:
			// Move the first segment, including its leading "/" if any,
			// from the input to the output.
			i := strings.IndexByte(p[1:], '/')
			if i < 0 {
				i = len(p)
			} else {
				i++
			}
			out = append(out, p[:i]...)
			p = p[i:]
		}
	}
	return string(out)
}

func trimLastSegment(out []byte) []byte {
	if i := bytes.LastIndexByte(out, '/'); i >= 0 {
		return out[:i]
	}
	return out[:0]
}

// encodeMode selects the allowed-character set for reencode.
type encodeMode int

const (
	encodePath encodeMode = iota
	encodeQuery
	encodeFragment
)

// shouldEscape reports whether byte c must be percent-encoded in the given
// component. The allowed sets follow RFC 3986: unreserved and sub-delims
// everywhere, ":" "@" "/" in all three components, "?" additionally in
// query and fragment.
func shouldEscape(c byte, mode encodeMode) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return false
	}
	switch c {
	case '-', '.', '_', '~': // unreserved
		return false
	case '!', '$', '&', '\'', '(', ')', '*', '+', ',', ';', '=': // sub-delims
		return false
	case ':', '@', '/':
		return false
	case '?':
		return mode == encodePath
	}
	return true
}

const upperhex = "0123456789ABCDEF"

// reencode applies the canonical percent-encoding policy to one component.
// Valid %XX triplets are preserved with their hex digits upper-cased, so
// correctly encoded input is never double-encoded; any other byte outside
// the allowed set is escaped. reencode(reencode(s)) == reencode(s).
func reencode(s string, mode encodeMode) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]):
			b.WriteByte('%')
			b.WriteByte(upperHex(s[i+1]))
			b.WriteByte(upperHex(s[i+2]))
			i += 2
		case shouldEscape(c, mode):
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&0xf])
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isHex(c byte) bool {
	switch {
	case '0' <= c && c <= '9', 'a' <= c && c <= 'f', 'A' <= c && c <= 'F':
		return true
	}
	return false
}

func upperHex(c byte) byte {
	if 'a' <= c && c <= 'f' {
		return c - ('a' - 'A')
	}
	return c
}
