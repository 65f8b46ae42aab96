package config

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomValidators(t *testing.T) {
	v := validator.New()
	require.NoError(t, RegisterCustomValidators(v))

	t.Run("Should accept IANA zone names", func(t *testing.T) {
		for _, zone := range []string{"UTC", "Europe/Vienna", "America/Los_Angeles"} {
			assert.NoError(t, v.Var(zone, "iana_zone"), zone)
		}
	})

	t.Run("Should reject unknown or implicit zones", func(t *testing.T) {
		for _, zone := range []string{"", "Local", "Europe/Atlantis", "+02:00"} {
			assert.Error(t, v.Var(zone, "iana_zone"), zone)
		}
	})

	t.Run("Should accept plain SQL identifiers", func(t *testing.T) {
		for _, ident := range []string{"public", "test_data", "_t1", "Data$2"} {
			assert.NoError(t, v.Var(ident, "sql_identifier"), ident)
		}
	})

	t.Run("Should reject identifiers needing quotes", func(t *testing.T) {
		for _, ident := range []string{"", "1table", "test-data", "a b", `x"y`} {
			assert.Error(t, v.Var(ident, "sql_identifier"), ident)
		}
	})

	t.Run("Should accept ISO wall clocks with optional fractions", func(t *testing.T) {
		for _, ref := range []string{"2013-09-13T09:00:00", "2024-02-29T23:59:59.123456"} {
			assert.NoError(t, v.Var(ref, "civil_datetime"), ref)
		}
	})

	t.Run("Should reject malformed wall clocks", func(t *testing.T) {
		for _, ref := range []string{"", "2013-09-13", "2013-09-13 09:00:00", "2013-02-30T09:00:00", "2013-09-13T09:00:00.0000005"} {
			assert.Error(t, v.Var(ref, "civil_datetime"), ref)
		}
	})
}
