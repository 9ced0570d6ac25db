// Package device turns user-agent strings into the device facts stored on a session.
package device

import (
	"strings"

	"sessionguard/internal/device/domain"
)

// Agent is the parser output the fingerprinter consumes.
type Agent struct {
	Browser        string
	BrowserVersion string
	OS             string
	OSVersion      string
	Mobile         bool
	Tablet         bool
}

// UserAgentParser parses raw user-agent strings. Implementations must be safe for concurrent use
// and must not perform I/O.
type UserAgentParser interface {
	Parse(userAgent string) Agent
}

// Fingerprinter builds domain.Info values from user-agent strings.
type Fingerprinter struct {
	parser UserAgentParser
}

// NewFingerprinter returns a Fingerprinter backed by parser. A nil parser uses the mssola/useragent adapter.
func NewFingerprinter(parser UserAgentParser) *Fingerprinter {
	if parser == nil {
		parser = MssolaParser{}
	}
	return &Fingerprinter{parser: parser}
}

// ParseDeviceInfo returns the device facts for userAgent. DeviceType is "desktop" unless the parser
// reports a tablet or mobile signal.
func (f *Fingerprinter) ParseDeviceInfo(userAgent string) domain.Info {
	a := f.parser.Parse(userAgent)
	info := domain.Info{
		DeviceType:     domain.TypeDesktop,
		Browser:        orUnknown(a.Browser),
		BrowserVersion: majorMinor(a.BrowserVersion),
		OS:             orUnknown(a.OS),
		OSVersion:      a.OSVersion,
		UserAgent:      userAgent,
	}
	switch {
	case a.Tablet:
		info.DeviceType = domain.TypeTablet
	case a.Mobile:
		info.DeviceType = domain.TypeMobile
	}
	return info
}

func orUnknown(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return domain.Unknown
	}
	return s
}

// majorMinor trims "91.0.4472.124" to "91.0"; shorter versions are returned as-is.
func majorMinor(v string) string {
	v = strings.TrimSpace(v)
	parts := strings.SplitN(v, ".", 3)
	if len(parts) < 3 {
		return v
	}
	return parts[0] + "." + parts[1]
}
