package domain

// Device types reported for a session.
const (
	TypeDesktop = "desktop"
	TypeMobile  = "mobile"
	TypeTablet  = "tablet"
)

// Unknown is used when the user agent yields no browser or OS name.
const Unknown = "Unknown"

// Info is the structured device description derived from a user-agent string.
type Info struct {
	DeviceType     string
	Browser        string
	BrowserVersion string
	OS             string
	OSVersion      string
	UserAgent      string
}
