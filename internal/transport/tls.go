package transport

import (
	"crypto/tls"
	"net"
)

// SecureWrapper upgrades a raw connection to an encrypted one, validating the peer
// against host. The handshake must be complete when it returns.
type SecureWrapper func(conn net.Conn, host string) (net.Conn, error)

// TLSWrapper returns a SecureWrapper performing a client handshake. A nil base uses
// the system roots; ServerName is always set to the target host.
func TLSWrapper(base *tls.Config) SecureWrapper {
	return func(conn net.Conn, host string) (net.Conn, error) {
		cfg := &tls.Config{MinVersion: tls.VersionTLS12}
		if base != nil {
			cfg = base.Clone()
		}
		cfg.ServerName = host
		tlsConn := tls.Client(conn, cfg)
		if err := tlsConn.Handshake(); err != nil {
			return nil, err
		}
		return tlsConn, nil
	}
}
