package config

// Store is where persisted config keys live. Keys are dotted
// ("backend.base_url"); each platform decides how to lay them out.
type Store interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
	// Location names the store for display, e.g. a file path or defaults domain.
	Location() string
}

// Location reports where persisted config is read from on this platform.
func Location() string {
	return newPlatformStore().Location()
}
