// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

package traceroute

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedCapture returns a capture mock that replays the reads in order
// and then reports the read deadline.
func scriptedCapture(reads ...func() (ProbeResponse, bool, error)) *captureMock {
	var mu sync.Mutex
	return &captureMock{
		ReadFunc: func() (ProbeResponse, bool, error) {
			mu.Lock()
			defer mu.Unlock()
			if len(reads) == 0 {
				return ProbeResponse{}, false, os.ErrDeadlineExceeded
			}
			next := reads[0]
			reads = reads[1:]
			return next()
		},
		SetReadDeadlineFunc: func(time.Time) error { return nil },
	}
}

func respond(resp ProbeResponse) func() (ProbeResponse, bool, error) {
	return func() (ProbeResponse, bool, error) { return resp, true, nil }
}

func ignore() (ProbeResponse, bool, error) { return ProbeResponse{}, false, nil }

func TestSniffer_Run(t *testing.T) {
	matching := ProbeResponse{ID: ProbeID{Ident: testIdent, Seq: DefaultPort}, From: testRouter}
	unknown := ProbeResponse{ID: ProbeID{Ident: testIdent, Seq: 1}, From: testRouter}
	errRead := errors.New("recvfrom: bad file descriptor")

	tests := []struct {
		name        string
		captures    func() []capture
		wantErr     error
		wantSink    int
		wantMatched float64
		wantIgnored float64
	}{
		{
			name: "matches and ignores until the deadline",
			captures: func() []capture {
				return []capture{scriptedCapture(respond(matching), ignore, respond(unknown))}
			},
			wantSink:    2,
			wantMatched: 1,
			wantIgnored: 2,
		},
		{
			name: "reads from every capture",
			captures: func() []capture {
				return []capture{
					scriptedCapture(respond(matching)),
					scriptedCapture(respond(matching), ignore),
				}
			},
			wantSink:    2,
			wantMatched: 2,
			wantIgnored: 1,
		},
		{
			name: "read failure",
			captures: func() []capture {
				return []capture{scriptedCapture(respond(matching), func() (ProbeResponse, bool, error) {
					return ProbeResponse{}, false, errRead
				})}
			},
			wantErr:     errRead,
			wantSink:    1,
			wantMatched: 1,
		},
		{
			name: "deadline cannot be set",
			captures: func() []capture {
				c := scriptedCapture()
				c.SetReadDeadlineFunc = func(time.Time) error { return errRead }
				return []capture{c}
			},
			wantErr: errRead,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMetrics()
			var mu sync.Mutex
			var sunk []ProbeResponse
			sink := func(resp ProbeResponse) (ProbeResult, bool) {
				mu.Lock()
				defer mu.Unlock()
				sunk = append(sunk, resp)
				return ProbeResult{}, resp.ID == matching.ID
			}

			ctx, cancel := context.WithTimeout(t.Context(), time.Second)
			defer cancel()

			err := newSniffer(tt.captures(), sink, m).Run(ctx)
			if tt.wantErr != nil {
				var cerr *CaptureError
				require.ErrorAs(t, err, &cerr)
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			assert.Len(t, sunk, tt.wantSink)
			assert.Equal(t, tt.wantMatched, testutil.ToFloat64(m.packets.WithLabelValues("matched")))
			assert.Equal(t, tt.wantIgnored, testutil.ToFloat64(m.packets.WithLabelValues("ignored")))
		})
	}
}

func TestSniffer_Run_DeadlineFromContext(t *testing.T) {
	c := scriptedCapture()
	ctx, cancel := context.WithTimeout(t.Context(), time.Minute)
	defer cancel()
	deadline, _ := ctx.Deadline()

	require.NoError(t, newSniffer([]capture{c}, nil, newMetrics()).Run(ctx))

	calls := c.SetReadDeadlineCalls()
	require.NotEmpty(t, calls)
	assert.Equal(t, deadline, calls[0].T)
}

func TestSniffer_Run_CancelUnblocksRead(t *testing.T) {
	network := newFakeNetwork(nil)
	ctx, cancel := context.WithCancel(t.Context())

	done := make(chan error, 1)
	go func() {
		done <- newSniffer([]capture{network}, nil, newMetrics()).Run(ctx)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sniffer did not stop after cancellation")
	}

	// The next window must be able to set a fresh deadline.
	require.NoError(t, network.SetReadDeadline(time.Time{}))
	network.responses <- ProbeResponse{From: testRouter}
	resp, ok, err := network.Read()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, testRouter, resp.From)
}
