package notification

type RegisterDeviceRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

var platforms = map[string]bool{"android": true, "ios": true, "web": true}

// ValidPlatform reports whether p is a supported device platform.
func ValidPlatform(p string) bool {
	return platforms[p]
}
