// Package util provides small shared helpers: entity ID handling, slug
// generation and the wire timestamp format used by the HTTP API.
package util

import (
	"net"
	"regexp"
	"strings"
	"time"
)

// TimestampLayout is the wire format for state and event timestamps,
// e.g. "19:10:05 02-01-2026". It carries no zone; both ends of a link are
// expected to run UTC.
const TimestampLayout = "15:04:05 02-01-2006"

var slugStrip = regexp.MustCompile(`[^a-z0-9_]+`)

// Slugify converts text into a lowercase identifier safe for use as an
// entity object ID: spaces become underscores, everything outside
// [a-z0-9_] is dropped.
//
//	Slugify("Living Room Café") == "living_room_caf"
func Slugify(text string) string {
	slug := strings.TrimSpace(text)
	slug = strings.ReplaceAll(slug, " ", "_")
	slug = strings.ToLower(slug)
	return slugStrip.ReplaceAllString(slug, "")
}

// SplitEntityID splits "domain.object_id" into its two halves. The object ID
// may itself contain dots; only the first separates. ok is false when there
// is no dot at all.
func SplitEntityID(entityID string) (domain, objectID string, ok bool) {
	domain, objectID, ok = strings.Cut(entityID, ".")
	if !ok || domain == "" || objectID == "" {
		return "", "", false
	}
	return domain, objectID, true
}

// FormatTimestamp renders t in the wire format, in UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses a wire-format timestamp. The result is in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampLayout, s)
}

// LocalIP guesses the address peers can reach this machine on: dialling a
// UDP socket towards a public address selects the outbound interface without
// sending a packet. Machines with no route out report the loopback address.
func LocalIP() string {
	conn, err := net.Dial("udp4", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer func() { _ = conn.Close() }()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "127.0.0.1"
	}
	return addr.IP.String()
}
