package entities

// Cookie is carried between runs as-is. Nothing reads its attributes.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires"`
	HttpOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
	SameSite string  `json:"sameSite,omitempty"`
}

// NameValue is one localStorage entry of an origin
type NameValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Origin holds the localStorage captured for a single origin
type Origin struct {
	Origin       string      `json:"origin"`
	LocalStorage []NameValue `json:"localStorage"`
}

// StorageState is the browser context state: cookie jar plus per-origin storage
type StorageState struct {
	Cookies []Cookie `json:"cookies"`
	Origins []Origin `json:"origins"`
}

// SessionSnapshot is everything needed to resume an authenticated context
type SessionSnapshot struct {
	SessionStorage map[string]string // window.sessionStorage of the target origin
	State          StorageState
}

// IsEmpty reports whether the snapshot carries nothing worth restoring
func (s SessionSnapshot) IsEmpty() bool {
	return len(s.SessionStorage) == 0 && len(s.State.Cookies) == 0 && len(s.State.Origins) == 0
}
