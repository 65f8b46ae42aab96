package config

import "encoding/json"

const redacted = "[REDACTED]"

// SensitiveString holds a secret that must never be printed or serialized in clear.
type SensitiveString string

// String implements fmt.Stringer.
func (s SensitiveString) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

// Value returns the raw secret.
func (s SensitiveString) Value() string {
	return string(s)
}

// MarshalJSON implements json.Marshaler.
func (s SensitiveString) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *SensitiveString) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = SensitiveString(raw)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (s SensitiveString) MarshalYAML() (any, error) {
	return s.String(), nil
}
