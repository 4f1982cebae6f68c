package core

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestNewConfig_Defaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	conf := newConfig(v, "DEV")

	assert.Equal(t, DefaultVapidPublicKey, conf.Vapid.PublicKey)
	assert.Equal(t, "mailto:admin@example.com", conf.Vapid.Subject)
	assert.Equal(t, 12*time.Hour, conf.Vapid.TokenExpiry)
	assert.Equal(t, 86400, conf.Push.TTL)
	assert.Equal(t, 10*time.Second, conf.Push.RequestTimeout)
	assert.Equal(t, 4, conf.Push.Concurrency)
	assert.Equal(t, "notification_inserted", conf.Trigger.Channel)
	assert.Equal(t, "localhost:5432", conf.Database.Address())
	assert.True(t, conf.Debug)
}

func TestNewConfig_Env(t *testing.T) {
	t.Setenv("VAPID_PRIVATE_KEY", "priv")
	t.Setenv("VAPID_TOKEN_EXPIRY", "48h")
	t.Setenv("PUSH_CONCURRENCY", "0")
	t.Setenv("JOBS_UTC_OFFSET_HOURS", "-3")

	v := viper.New()
	setDefaults(v)
	for key, envVar := range envBindings {
		_ = v.BindEnv(key, envVar)
	}
	conf := newConfig(v, "TEST")

	assert.Equal(t, "priv", conf.Vapid.PrivateKey)
	assert.Equal(t, 12*time.Hour, conf.Vapid.TokenExpiry, "expiry above 24h falls back to the default")
	assert.Equal(t, 1, conf.Push.Concurrency)

	_, offset := time.Date(2026, 1, 1, 0, 0, 0, 0, conf.Jobs.Location()).Zone()
	assert.Equal(t, -3*3600, offset)
}

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Toán", CleanString("  Toán\n"))
	assert.Equal(t, "toán", CleanString(" Toán ", true))
}
