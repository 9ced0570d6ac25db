package device

import (
	"strings"

	"github.com/mssola/useragent"
)

// MssolaParser implements UserAgentParser with github.com/mssola/useragent.
type MssolaParser struct{}

// Parse extracts browser and OS names and versions. Tablets are detected from iPad, "Tablet" tokens,
// and Android user agents that do not advertise "Mobile".
func (MssolaParser) Parse(userAgent string) Agent {
	if strings.TrimSpace(userAgent) == "" {
		return Agent{}
	}
	ua := useragent.New(userAgent)
	name, version := ua.Browser()
	osInfo := ua.OSInfo()

	tablet := strings.Contains(userAgent, "iPad") ||
		strings.Contains(userAgent, "Tablet") ||
		(strings.Contains(userAgent, "Android") && !strings.Contains(userAgent, "Mobile"))

	return Agent{
		Browser:        name,
		BrowserVersion: version,
		OS:             osInfo.Name,
		OSVersion:      osInfo.Version,
		Mobile:         ua.Mobile(),
		Tablet:         tablet,
	}
}
