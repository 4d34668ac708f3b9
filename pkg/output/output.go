// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

// Package output renders the progress and result of a traceroute run.
package output

import (
	"fmt"
	"io"
	"slices"

	"github.com/telekom/traceprobe/internal/traceroute"
)

// Format is the output format of a run
type Format string

const (
	// FormatText prints one line per hop as soon as the hop is done
	FormatText Format = "text"
	// FormatJSON prints the whole result as one JSON document
	FormatJSON Format = "json"
	// FormatYAML prints the whole result as one YAML document
	FormatYAML Format = "yaml"
)

// Formats lists the supported output formats
var Formats = []Format{FormatText, FormatJSON, FormatYAML}

func (f Format) String() string {
	return string(f)
}

// IsValid returns true if the format is supported
func (f Format) IsValid() bool {
	return slices.Contains(Formats, f)
}

// New returns the reporter writing the given format to w
func New(f Format, w io.Writer) (traceroute.Reporter, error) {
	switch f {
	case FormatText:
		return newTextReporter(w), nil
	case FormatJSON:
		return newDocumentReporter(w, encodeJSON), nil
	case FormatYAML:
		return newDocumentReporter(w, encodeYAML), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %q", f)
	}
}
