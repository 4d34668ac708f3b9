// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"slices"
	"time"

	"github.com/telekom/traceprobe/internal/helper"
)

// Method is the transport used for the outbound probes.
type Method string

// Method constants for the traceroute.
const (
	MethodUDP  Method = "udp"
	MethodTCP  Method = "tcp"
	MethodICMP Method = "icmp"
)

func (m Method) String() string {
	if m.IsValid() {
		return string(m)
	}
	return "unknown"
}

func (m Method) IsValid() bool {
	valid := []Method{MethodUDP, MethodTCP, MethodICMP}
	return slices.Contains(valid, m)
}

// Defaults of the classic traceroute tool.
const (
	DefaultMaxHops = 30
	DefaultQueries = 3
	DefaultPort    = 33434
	DefaultWait    = 3 * time.Second
)

// Options contains the configuration of a single traceroute run.
type Options struct {
	// FirstTTL is the TTL of the first probed hop.
	FirstTTL int `json:"firstTTL" yaml:"firstTTL" mapstructure:"firstTTL"`
	// MaxHops is the maximum TTL to probe.
	MaxHops int `json:"maxHops" yaml:"maxHops" mapstructure:"maxHops"`
	// Queries is the number of probes sent per hop.
	Queries int `json:"queries" yaml:"queries" mapstructure:"queries"`
	// Port is the base destination port (UDP/TCP) or base sequence number (ICMP).
	Port int `json:"port" yaml:"port" mapstructure:"port"`
	// Wait is how long to wait for the response of each probe.
	Wait time.Duration `json:"wait" yaml:"wait" mapstructure:"wait"`
	// Method is the probe transport.
	Method Method `json:"method" yaml:"method" mapstructure:"method"`
	// Numeric disables the reverse lookup of responder addresses.
	Numeric bool `json:"numeric" yaml:"numeric" mapstructure:"numeric"`
	// Resolve is the retry configuration for resolving the target host.
	Resolve helper.RetryConfig `json:"resolve" yaml:"resolve" mapstructure:"resolve"`
}

// NewOptions returns the options with the traceroute defaults.
func NewOptions() *Options {
	return &Options{
		FirstTTL: 1,
		MaxHops:  DefaultMaxHops,
		Queries:  DefaultQueries,
		Port:     DefaultPort,
		Wait:     DefaultWait,
		Method:   MethodUDP,
	}
}

// Validate checks that the options describe a walk whose probe ids all fit
// into the 16 bit port / sequence space.
func (o *Options) Validate() error {
	var err error
	if o.MaxHops < 1 || o.MaxHops > 255 {
		err = errors.Join(err, fmt.Errorf("max hops must be between 1 and 255, got %d", o.MaxHops))
	}
	if o.FirstTTL < 1 || o.FirstTTL > o.MaxHops {
		err = errors.Join(err, fmt.Errorf("first ttl must be between 1 and max hops (%d), got %d", o.MaxHops, o.FirstTTL))
	}
	if o.Queries < 1 || o.Queries > 10 {
		err = errors.Join(err, fmt.Errorf("queries per hop must be between 1 and 10, got %d", o.Queries))
	}
	if o.Wait <= 0 {
		err = errors.Join(err, fmt.Errorf("wait must be greater than 0, got %s", o.Wait))
	}
	if !o.Method.IsValid() {
		err = errors.Join(err, fmt.Errorf("invalid probe method: %q", string(o.Method)))
	}
	if o.Port < 1 {
		err = errors.Join(err, fmt.Errorf("port must be greater than 0, got %d", o.Port))
	} else if last := o.Port + o.MaxHops*o.Queries - 1; last > 65535 {
		err = errors.Join(err, fmt.Errorf("port range %d-%d exceeds 65535", o.Port, last))
	}
	return err
}

// Target is the resolved destination of a traceroute run.
type Target struct {
	// Host is the host as given by the user.
	Host string `json:"host" yaml:"host"`
	// Addr is the resolved IPv4 address of the host.
	Addr netip.Addr `json:"addr" yaml:"addr"`
}

func (t Target) String() string {
	if t.Addr.IsValid() && t.Host != t.Addr.String() {
		return fmt.Sprintf("%s (%s)", t.Host, t.Addr)
	}
	return t.Host
}

// ProbeID identifies one outbound probe within a run.
// Both fields travel in the transport header of the probe and come back
// quoted in ICMP errors or mirrored in direct replies.
type ProbeID struct {
	// Ident is the local source port (UDP/TCP) or the echo identifier (ICMP).
	Ident uint16
	// Seq is the destination port (UDP/TCP) or the echo sequence number (ICMP).
	Seq uint16
}

func (id ProbeID) String() string {
	return fmt.Sprintf("%d/%d", id.Ident, id.Seq)
}

// Probe is a single outbound packet, ready to be put on the wire.
type Probe struct {
	ID     ProbeID
	TTL    int
	Index  int
	Method Method
	// Dst is the address the wire bytes are written to.
	Dst net.Addr
	// Wire is the payload handed to the socket. For UDP this is the
	// datagram payload, for TCP and ICMP the full transport header.
	Wire []byte
}

// ReplyKind classifies an inbound response.
type ReplyKind int

const (
	// ReplyTimeExceeded is sent by routers when the TTL of a probe expires.
	ReplyTimeExceeded ReplyKind = iota + 1
	// ReplyUnreachable is a destination unreachable message.
	ReplyUnreachable
	// ReplyEcho is an ICMP echo reply from the target.
	ReplyEcho
	// ReplyTCP is a SYN-ACK or RST from the target.
	ReplyTCP
)

func (k ReplyKind) String() string {
	switch k {
	case ReplyTimeExceeded:
		return "time-exceeded"
	case ReplyUnreachable:
		return "unreachable"
	case ReplyEcho:
		return "echo-reply"
	case ReplyTCP:
		return "tcp-reply"
	default:
		return "unknown"
	}
}

// ProbeResponse is a decoded inbound packet that belongs to a probe.
type ProbeResponse struct {
	ID   ProbeID
	From netip.Addr
	Kind ReplyKind
	// Code is the ICMP code of the message, if any.
	Code uint8
	// ReceivedAt is the time the packet was read from the socket.
	ReceivedAt time.Time
}

// Outcome is the result of a single probe.
// It is either a [ProbeResult] or a [*ProbeError].
type Outcome interface {
	outcome()
	// ProbeIndex returns the query index of the probe within its hop.
	ProbeIndex() int
}

var (
	_ Outcome = ProbeResult{}
	_ Outcome = (*ProbeError)(nil)
)

// ProbeResult is a probe that got a response.
type ProbeResult struct {
	ID    ProbeID
	TTL   int
	Index int
	From  netip.Addr
	RTT   time.Duration
	Kind  ReplyKind
	Code  uint8
	// Hostname is set after the fact by the reverse lookup.
	Hostname string
}

func (ProbeResult) outcome() {}

func (r ProbeResult) ProbeIndex() int { return r.Index }

// Name returns the hostname of the responder, or its address if unknown.
func (r ProbeResult) Name() string {
	if r.Hostname != "" {
		return r.Hostname
	}
	return r.From.String()
}

// Annotation returns the traceroute marker for unreachable messages
// that were not caused by the destination port, e.g. "!H" for host unreachable.
func (r ProbeResult) Annotation() string {
	if r.Kind != ReplyUnreachable {
		return ""
	}
	switch r.Code {
	case icmpUnreachableNet:
		return "!N"
	case icmpUnreachableHost:
		return "!H"
	case icmpUnreachableProtocol:
		return "!P"
	case icmpUnreachablePort:
		return ""
	case icmpUnreachableFragNeeded:
		return "!F"
	case icmpUnreachableSourceRoute:
		return "!S"
	case icmpUnreachableAdminProhibited:
		return "!X"
	default:
		return fmt.Sprintf("!<%d>", r.Code)
	}
}

func (r ProbeResult) String() string {
	s := fmt.Sprintf("%s (%s)  %s", r.Name(), r.From, formatRTT(r.RTT))
	if a := r.Annotation(); a != "" {
		s += " " + a
	}
	return s
}

// formatRTT formats a round trip time in milliseconds with microsecond precision.
func formatRTT(d time.Duration) string {
	return fmt.Sprintf("%.3f ms", float64(d.Microseconds())/1000)
}

// ErrorKind tells why a probe did not produce a result.
type ErrorKind int

const (
	// ErrorTimeout means no response arrived before the deadline.
	ErrorTimeout ErrorKind = iota + 1
	// ErrorIO means the probe could not be sent or awaited.
	ErrorIO
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorTimeout:
		return "timeout"
	case ErrorIO:
		return "io"
	default:
		return "unknown"
	}
}

// ProbeError is the outcome of a probe that did not get a response.
type ProbeError struct {
	Kind  ErrorKind
	TTL   int
	Index int
	Cause error
}

func (*ProbeError) outcome() {}

func (e *ProbeError) ProbeIndex() int { return e.Index }

func (e *ProbeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("probe %d at ttl %d: %s: %v", e.Index, e.TTL, e.Kind, e.Cause)
	}
	return fmt.Sprintf("probe %d at ttl %d: %s", e.Index, e.TTL, e.Kind)
}

func (e *ProbeError) Unwrap() error {
	return e.Cause
}

// Hop holds the outcomes of all probes of one TTL, in query order.
type Hop struct {
	TTL      int
	Outcomes []Outcome
	// Reached is true if any probe of the hop was answered by the target.
	Reached bool
}

// probeView is the serialized form of an [Outcome].
type probeView struct {
	Index    int    `json:"index" yaml:"index"`
	Addr     string `json:"addr,omitempty" yaml:"addr,omitempty"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	RTT      string `json:"rtt,omitempty" yaml:"rtt,omitempty"`
	Reply    string `json:"reply,omitempty" yaml:"reply,omitempty"`
	Note     string `json:"note,omitempty" yaml:"note,omitempty"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
	ErrorMsg string `json:"errorMessage,omitempty" yaml:"errorMessage,omitempty"`
}

type hopView struct {
	TTL     int         `json:"ttl" yaml:"ttl"`
	Reached bool        `json:"reached" yaml:"reached"`
	Probes  []probeView `json:"probes" yaml:"probes"`
}

func newProbeView(o Outcome) probeView {
	switch v := o.(type) {
	case ProbeResult:
		return probeView{
			Index: v.Index,
			Addr:  v.From.String(),
			Name:  v.Hostname,
			RTT:   v.RTT.String(),
			Reply: v.Kind.String(),
			Note:  v.Annotation(),
		}
	case *ProbeError:
		pv := probeView{Index: v.Index, Error: v.Kind.String()}
		if v.Cause != nil {
			pv.ErrorMsg = v.Cause.Error()
		}
		return pv
	default:
		return probeView{Index: o.ProbeIndex()}
	}
}

func (h Hop) view() hopView {
	probes := make([]probeView, 0, len(h.Outcomes))
	for _, o := range h.Outcomes {
		probes = append(probes, newProbeView(o))
	}
	return hopView{TTL: h.TTL, Reached: h.Reached, Probes: probes}
}

func (h Hop) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.view())
}

func (h Hop) MarshalYAML() (any, error) {
	return h.view(), nil
}

// Responders returns the distinct responder addresses of the hop in query order.
func (h Hop) Responders() []netip.Addr {
	var addrs []netip.Addr
	for _, o := range h.Outcomes {
		if r, ok := o.(ProbeResult); ok && !slices.Contains(addrs, r.From) {
			addrs = append(addrs, r.From)
		}
	}
	return addrs
}

// Result is the path to one target.
type Result struct {
	Target  Target `json:"target" yaml:"target"`
	Method  Method `json:"method" yaml:"method"`
	Hops    []Hop  `json:"hops" yaml:"hops"`
	Reached bool   `json:"reached" yaml:"reached"`
}
