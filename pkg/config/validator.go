package config

import (
	"regexp"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-playground/validator/v10"
)

// sqlIdentifierPattern accepts unquoted PostgreSQL identifiers up to NAMEDATALEN-1.
var sqlIdentifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]{0,62}$`)

// RegisterCustomValidators registers custom validation functions
func RegisterCustomValidators(v *validator.Validate) error {
	validators := map[string]validator.Func{
		"iana_zone":      validateIANAZone,
		"sql_identifier": validateSQLIdentifier,
		"civil_datetime": validateCivilDateTime,
	}
	for tag, fn := range validators {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}
	return nil
}

// validateIANAZone accepts names the tz database can resolve. "Local" is
// rejected because it would read the host zone implicitly.
func validateIANAZone(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" || name == "Local" {
		return false
	}
	_, err := time.LoadLocation(name)
	return err == nil
}

func validateSQLIdentifier(fl validator.FieldLevel) bool {
	return sqlIdentifierPattern.MatchString(fl.Field().String())
}

// validateCivilDateTime accepts ISO wall clocks with at most microsecond
// digits, the resolution of a PostgreSQL timestamp.
func validateCivilDateTime(fl validator.FieldLevel) bool {
	dt, err := civil.ParseDateTime(fl.Field().String())
	return err == nil && dt.IsValid() && dt.Time.Nanosecond%int(time.Microsecond) == 0
}
