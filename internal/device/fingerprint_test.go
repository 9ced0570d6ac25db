package device

import (
	"testing"

	"sessionguard/internal/device/domain"
)

const (
	windowsChromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	iPhoneSafariUA  = "Mozilla/5.0 (iPhone; CPU iPhone OS 14_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/14.1.1 Mobile/15E148 Safari/604.1"
	androidTabletUA = "Mozilla/5.0 (Linux; Android 11; SM-T870) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.120 Safari/537.36"
)

type stubParser struct {
	agent Agent
	calls []string
}

func (s *stubParser) Parse(userAgent string) Agent {
	s.calls = append(s.calls, userAgent)
	return s.agent
}

func TestParseDeviceInfo_WindowsChrome(t *testing.T) {
	f := NewFingerprinter(nil)
	got := f.ParseDeviceInfo(windowsChromeUA)
	want := domain.Info{
		DeviceType:     "desktop",
		Browser:        "Chrome",
		BrowserVersion: "91.0",
		OS:             "Windows",
		OSVersion:      "10",
		UserAgent:      windowsChromeUA,
	}
	if got != want {
		t.Errorf("ParseDeviceInfo = %+v, want %+v", got, want)
	}
}

func TestParseDeviceInfo_Mobile(t *testing.T) {
	f := NewFingerprinter(nil)
	got := f.ParseDeviceInfo(iPhoneSafariUA)
	if got.DeviceType != domain.TypeMobile {
		t.Errorf("DeviceType = %q, want mobile", got.DeviceType)
	}
	if got.Browser != "Safari" {
		t.Errorf("Browser = %q, want Safari", got.Browser)
	}
}

func TestParseDeviceInfo_AndroidTablet(t *testing.T) {
	f := NewFingerprinter(nil)
	got := f.ParseDeviceInfo(androidTabletUA)
	if got.DeviceType != domain.TypeTablet {
		t.Errorf("DeviceType = %q, want tablet", got.DeviceType)
	}
}

func TestParseDeviceInfo_Empty(t *testing.T) {
	f := NewFingerprinter(nil)
	got := f.ParseDeviceInfo("")
	if got.DeviceType != domain.TypeDesktop {
		t.Errorf("DeviceType = %q, want desktop", got.DeviceType)
	}
	if got.Browser != domain.Unknown || got.OS != domain.Unknown {
		t.Errorf("Browser/OS = %q/%q, want Unknown/Unknown", got.Browser, got.OS)
	}
}

func TestParseDeviceInfo_StubbedParser(t *testing.T) {
	testCases := []struct {
		name     string
		agent    Agent
		wantType string
		wantVer  string
	}{
		{"desktop default", Agent{Browser: "Firefox", BrowserVersion: "89.0"}, domain.TypeDesktop, "89.0"},
		{"mobile signal", Agent{Browser: "Chrome", BrowserVersion: "91.0.4472.77", Mobile: true}, domain.TypeMobile, "91.0"},
		{"tablet beats mobile", Agent{Browser: "Safari", BrowserVersion: "14", Mobile: true, Tablet: true}, domain.TypeTablet, "14"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := &stubParser{agent: tc.agent}
			got := NewFingerprinter(p).ParseDeviceInfo("ua")
			if got.DeviceType != tc.wantType {
				t.Errorf("DeviceType = %q, want %q", got.DeviceType, tc.wantType)
			}
			if got.BrowserVersion != tc.wantVer {
				t.Errorf("BrowserVersion = %q, want %q", got.BrowserVersion, tc.wantVer)
			}
			if len(p.calls) != 1 || p.calls[0] != "ua" {
				t.Errorf("parser calls = %v, want [ua]", p.calls)
			}
		})
	}
}
