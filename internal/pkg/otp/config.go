package otp

const (
	// DefaultPeriod is the step duration in seconds used by authenticator apps.
	DefaultPeriod uint = 30
	// DefaultDigits is the length of generated codes.
	DefaultDigits = 6
	// DefaultWindow is the number of adjacent steps accepted on each side.
	DefaultWindow = 1
	// DefaultSecretSize is the secret entropy in bytes (160 bits).
	DefaultSecretSize = 20
	// CurrentStepOnly disables drift tolerance when set as Config.Window.
	CurrentStepOnly = -1

	maxDigits = 10
)

// Config carries the TOTP parameters for one deployment or tenant.
//
// The zero value is usable: non-positive fields fall back to the defaults.
// A negative Window (see CurrentStepOnly) accepts the current step only.
type Config struct {
	Issuer     string
	Period     uint
	Digits     int
	Window     int
	SecretSize int
}

// DefaultConfig returns the parameters shared with standard authenticator apps.
func DefaultConfig() Config {
	return Config{
		Period:     DefaultPeriod,
		Digits:     DefaultDigits,
		Window:     DefaultWindow,
		SecretSize: DefaultSecretSize,
	}
}

func (c Config) normalize() Config {
	if c.Period == 0 {
		c.Period = DefaultPeriod
	}
	if c.Digits <= 0 || c.Digits > maxDigits {
		c.Digits = DefaultDigits
	}
	if c.Window == 0 {
		c.Window = DefaultWindow
	}
	if c.SecretSize <= 0 {
		c.SecretSize = DefaultSecretSize
	}

	return c
}

func (c Config) window() int {
	return max(c.Window, 0)
}
