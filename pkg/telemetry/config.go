// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/telekom/traceprobe/internal/logger"
)

var (
	// ErrMissingURL is returned if a collector exporter has no url to export to.
	ErrMissingURL = errors.New("collector url is required")
	// ErrInvalidURL is returned if the collector url is not an absolute http(s) url.
	ErrInvalidURL = errors.New("invalid collector url")
	// ErrTokenWithoutCollector is returned if a token is set for an exporter that does not send it anywhere.
	ErrTokenWithoutCollector = errors.New("token requires the http or grpc exporter")
	// ErrCertWithoutTLS is returned if a certificate is configured while tls is disabled.
	ErrCertWithoutTLS = errors.New("tls certificate requires tls to be enabled")
	// ErrCertNotReadable is returned if the configured certificate file cannot be read.
	ErrCertNotReadable = errors.New("tls certificate is not readable")
)

// Config configures where the spans of a traceroute run are exported to.
type Config struct {
	// Enabled turns the span export on.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Exporter selects the span exporter.
	Exporter Exporter `yaml:"exporter" mapstructure:"exporter"`
	// URL of the collector, e.g. http://localhost:4318. Only used by the http and grpc exporters.
	URL string `yaml:"url" mapstructure:"url"`
	// Token is sent as bearer token to the collector.
	Token string `yaml:"token" mapstructure:"token"`
	// TLS configures the connection to the collector.
	TLS TLSConfig `yaml:"tls" mapstructure:"tls"`
}

// TLSConfig holds the tls settings of the collector connection.
type TLSConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// CertPath is a PEM file with the CA certificates of the collector.
	// The system pool is used if it is empty.
	CertPath string `yaml:"certPath" mapstructure:"certPath"`
}

// Validate checks that the exporter, the collector url and the credentials fit together.
// All problems are reported at once.
func (c *Config) Validate(ctx context.Context) (err error) {
	log := logger.FromContext(ctx)

	if vErr := c.Exporter.Validate(); vErr != nil {
		log.ErrorContext(ctx, "The span exporter is not supported", "exporter", c.Exporter)
		return vErr
	}

	if c.Exporter.IsExporting() {
		if vErr := validateCollectorURL(c.URL); vErr != nil {
			log.ErrorContext(ctx, "The collector url is invalid", "exporter", c.Exporter, "url", c.URL, "error", vErr)
			err = errors.Join(err, vErr)
		}
	} else if c.Token != "" {
		log.ErrorContext(ctx, "A collector token is set but nothing is exported to a collector", "exporter", c.Exporter)
		err = errors.Join(err, ErrTokenWithoutCollector)
	}

	if c.TLS.CertPath != "" {
		if !c.TLS.Enabled {
			log.ErrorContext(ctx, "A tls certificate is set but tls is disabled", "certPath", c.TLS.CertPath)
			err = errors.Join(err, ErrCertWithoutTLS)
		}
		if _, sErr := os.Stat(c.TLS.CertPath); sErr != nil {
			log.ErrorContext(ctx, "The tls certificate cannot be read", "certPath", c.TLS.CertPath, "error", sErr)
			err = errors.Join(err, fmt.Errorf("%w: %w", ErrCertNotReadable, sErr))
		}
	}
	return err
}

func validateCollectorURL(raw string) error {
	if raw == "" {
		return ErrMissingURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return nil
}
