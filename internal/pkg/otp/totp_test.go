package otp

import (
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixtureSecret = "JBSWY3DPEHPK3PXP"

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy pool closed")
}

func TestComputeCode_RFC6238Vectors(t *testing.T) {
	// "12345678901234567890" in base32, SHA-1 vectors from RFC 6238 appendix B.
	secret := "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

	tests := []struct {
		unix int64
		want string
	}{
		{unix: 59, want: "94287082"},
		{unix: 1111111109, want: "07081804"},
		{unix: 1111111111, want: "14050471"},
		{unix: 1234567890, want: "89005924"},
		{unix: 2000000000, want: "69279037"},
		{unix: 20000000000, want: "65353130"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeCode(secret, tt.unix*1000, 30, 8))
		})
	}
}

func TestComputeCode_KnownSecret(t *testing.T) {
	tests := []struct {
		name string
		atMs int64
		want string
	}{
		{name: "first step", atMs: 0, want: "282760"},
		{name: "end of first step", atMs: 29_999, want: "282760"},
		{name: "second step start", atMs: 30_000, want: "996554"},
		{name: "second step", atMs: 59_000, want: "996554"},
		{name: "third step", atMs: 60_000, want: "602287"},
		{name: "before epoch clamps to counter zero", atMs: -1, want: "282760"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeCode(fixtureSecret, tt.atMs, 30, 6))
		})
	}
}

func TestComputeCode_Properties(t *testing.T) {
	t.Run("deterministic", func(t *testing.T) {
		at := time.Now().UnixMilli()
		assert.Equal(t, ComputeCode(fixtureSecret, at, 30, 6), ComputeCode(fixtureSecret, at, 30, 6))
	})

	t.Run("digit width", func(t *testing.T) {
		for _, digits := range []int{6, 7, 8} {
			pattern := regexp.MustCompile(fmt.Sprintf(`^[0-9]{%d}$`, digits))
			for range 50 {
				secret, err := GenerateSecret(20)
				require.NoError(t, err)
				assert.Regexp(t, pattern, ComputeCode(secret, time.Now().UnixMilli(), 30, digits))
			}
		}
	})

	t.Run("step quantization", func(t *testing.T) {
		assert.Equal(t, ComputeCode(fixtureSecret, 30_000, 30, 6), ComputeCode(fixtureSecret, 59_999, 30, 6))
		assert.NotEqual(t, ComputeCode(fixtureSecret, 30_000, 30, 6), ComputeCode(fixtureSecret, 60_000, 30, 6))
	})

	t.Run("zero parameters fall back to defaults", func(t *testing.T) {
		assert.Equal(t, "996554", ComputeCode(fixtureSecret, 59_000, 0, 0))
	})

	t.Run("matches pquerna implementation", func(t *testing.T) {
		at := time.Unix(1_700_000_000, 0)
		for range 20 {
			secret, err := GenerateSecret(20)
			require.NoError(t, err)

			want, err := totp.GenerateCodeCustom(secret, at, totp.ValidateOpts{
				Period:    30,
				Digits:    otp.DigitsSix,
				Algorithm: otp.AlgorithmSHA1,
			})
			require.NoError(t, err)
			assert.Equal(t, want, ComputeCode(secret, at.UnixMilli(), 30, 6))
		}
	})
}

func TestConfig_Verify(t *testing.T) {
	at := time.UnixMilli(1_700_000_000_000)
	cfg := DefaultConfig()

	tests := []struct {
		name   string
		window int
		code   string
		want   bool
	}{
		{name: "current step", window: 1, code: "324550", want: true},
		{name: "previous step", window: 1, code: "822542", want: true},
		{name: "next step", window: 1, code: "367665", want: true},
		{name: "two steps back outside window", window: 1, code: "968785", want: false},
		{name: "two steps ahead outside window", window: 1, code: "870960", want: false},
		{name: "two steps back with wider window", window: 2, code: "968785", want: true},
		{name: "zero window falls back to default", window: 0, code: "822542", want: true},
		{name: "zero window still bounded", window: 0, code: "968785", want: false},
		{name: "previous step with current step only", window: CurrentStepOnly, code: "822542", want: false},
		{name: "current step with current step only", window: CurrentStepOnly, code: "324550", want: true},
		{name: "any negative window is current step only", window: -3, code: "822542", want: false},
		{name: "whitespace stripped", window: 1, code: " 324 550\t", want: true},
		{name: "wrong code", window: 1, code: "000000", want: false},
		{name: "letter", window: 1, code: "32a550", want: false},
		{name: "too short", window: 1, code: "32455", want: false},
		{name: "too long", window: 1, code: "3245500", want: false},
		{name: "empty", window: 1, code: "", want: false},
		{name: "signed", window: 1, code: "+32455", want: false},
		{name: "separator", window: 1, code: "324-550", want: false},
		{name: "non ascii digits", window: 1, code: "３２４５５０", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cfg
			c.Window = tt.window
			assert.Equal(t, tt.want, c.Verify(fixtureSecret, tt.code, at))
		})
	}
}

func TestConfig_VerifyMalformedSecret(t *testing.T) {
	at := time.UnixMilli(59_000)
	assert.False(t, DefaultConfig().Verify("!!!!", "996554", at))
	assert.False(t, DefaultConfig().Verify("", "123456", at))
}

func TestVerifyCode(t *testing.T) {
	secret, err := GenerateSecret(20)
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		assert.True(t, VerifyCode(secret, ComputeCode(secret, time.Now().UnixMilli(), 30, 6), 1))
	})

	t.Run("window tolerance", func(t *testing.T) {
		past := ComputeCode(fixtureSecret, time.Now().UnixMilli()-30_000, 30, 6)
		assert.True(t, VerifyCode(fixtureSecret, past, 1))
		assert.False(t, VerifyCode(fixtureSecret, past, 0))
	})

	t.Run("malformed input", func(t *testing.T) {
		for _, code := range []string{"12a456", "12345", "1234567", ""} {
			assert.False(t, VerifyCode(secret, code, 1), code)
		}
	})
}

func TestGenerateSecret(t *testing.T) {
	t.Run("shape", func(t *testing.T) {
		secret, err := GenerateSecret(20)
		require.NoError(t, err)
		assert.Len(t, secret, 32)
		assert.Regexp(t, `^[A-Z2-7]+$`, secret)
		assert.Len(t, DecodeBase32(secret), 20)
	})

	t.Run("length follows byte count", func(t *testing.T) {
		for size, want := range map[int]int{1: 2, 5: 8, 10: 16, 16: 26, 32: 52} {
			secret, err := GenerateSecret(size)
			require.NoError(t, err)
			assert.Len(t, secret, want)
		}
	})

	t.Run("non positive size uses default", func(t *testing.T) {
		secret, err := GenerateSecret(0)
		require.NoError(t, err)
		assert.Len(t, secret, 32)
	})

	t.Run("unique", func(t *testing.T) {
		a, err := GenerateSecret(20)
		require.NoError(t, err)
		b, err := GenerateSecret(20)
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("randomness unavailable", func(t *testing.T) {
		secret, err := generateSecret(failingReader{}, 20)
		assert.Empty(t, secret)
		assert.ErrorIs(t, err, ErrRandomnessUnavailable)
	})
}
