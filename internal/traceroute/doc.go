// SPDX-FileCopyrightText: 2025 Deutsche Telekom IT GmbH
//
// SPDX-License-Identifier: Apache-2.0

// Package traceroute discovers the network path to a single IPv4 host by
// sending probes with increasing TTLs and matching the ICMP time-exceeded,
// destination-unreachable and direct replies they provoke.
//
// A run walks the path hop by hop. For every TTL a [Generator] builds and
// sends the configured number of probes, a [Sniffer] reads raw responses
// for the duration of the hop window, a [Parser] recovers the [ProbeID]
// quoted in each response and the correlator pairs it with the probe it
// answers, computing the round trip time. The walk stops as soon as the
// target answers or the maximum TTL has been probed.
//
// Probes can be sent as UDP datagrams, TCP SYN segments or ICMP echo
// requests. Raw sockets need the NET_RAW capability; without it UDP probes
// fall back to reading ICMP errors from the socket error queue (IP_RECVERR).
//
// Typical usage:
//
//	client, err := traceroute.NewClient(reporter)
//	if err != nil {
//		return err
//	}
//	res, err := client.Run(ctx, "example.com", traceroute.NewOptions())
//
// The [Reporter] receives every hop as soon as it is complete. Run returns a
// [*ResolutionError] if the host cannot be resolved, before any probe is sent.
package traceroute
