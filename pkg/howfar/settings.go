package howfar

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ssargent/howfar/pkg/codec"
)

// SettingsVersion identifies the settings blob layout understood by firmware
const SettingsVersion uint32 = 2024091701

// IdentifierKey is the only character array setting
const IdentifierKey = "examinationIdentifier"

// SettingsLayout mirrors struct Settings from the firmware's settings.h
var SettingsLayout = codec.MustLayout("settings",
	codec.Uint32("settingsVersion"),
	codec.BitGroup(codec.KindUint16,
		codec.Bit("featureALS", 1),
		codec.Bit("featureTOF", 1),
		codec.Bit("featureDCDCSleep", 1),
		codec.Bit("featureStorage", 1),
		codec.Bit("_featurePadding", 12),
	),
	codec.BitGroup(codec.KindUint16,
		codec.Bit("flagEraseDatabase", 1),
		codec.Bit("_flagPadding", 15),
	),
	codec.Uint32("timestamp"),
	codec.Uint32("tofDistanceMode"),
	codec.Uint32("tofTimingBudget"),
	codec.Uint32("measurementInterval"),
	codec.Bytes(IdentifierKey, 8),
)

// Settings is the device configuration uploaded through configure
type Settings struct {
	rec *codec.Record
}

// DefaultSettings returns the factory configuration stamped with now
func DefaultSettings(now time.Time) *Settings {
	s := &Settings{rec: codec.NewRecord(SettingsLayout)}
	defaults := []struct {
		key   string
		value uint64
	}{
		{"settingsVersion", uint64(SettingsVersion)},
		{"featureALS", 1},
		{"featureTOF", 1},
		{"featureDCDCSleep", 0},
		{"featureStorage", 1},
		{"flagEraseDatabase", 0},
		{"timestamp", uint64(uint32(now.Unix()))},
		{"tofDistanceMode", 1},
		{"tofTimingBudget", 20},
		{"measurementInterval", 10},
	}
	for _, d := range defaults {
		if err := s.rec.SetUint(d.key, d.value); err != nil {
			panic(err)
		}
	}
	if err := s.rec.SetBytes(IdentifierKey, []byte("OPTODATA")); err != nil {
		panic(err)
	}
	return s
}

// ParseSettings decodes a settings blob
func ParseSettings(blob []byte) (*Settings, error) {
	rec, err := SettingsLayout.Decode(blob)
	if err != nil {
		return nil, err
	}
	return &Settings{rec: rec}, nil
}

// Keys lists the user visible settings in layout order
func (s *Settings) Keys() []string {
	var keys []string
	for _, name := range SettingsLayout.Names() {
		if strings.HasPrefix(name, "_") {
			continue
		}
		keys = append(keys, name)
	}
	return keys
}

func (s *Settings) field(key string) (codec.Field, error) {
	f, ok := SettingsLayout.Field(key)
	if !ok || strings.HasPrefix(key, "_") {
		return codec.Field{}, &SettingError{Key: key, Err: ErrUnknownSetting}
	}
	return f, nil
}

// Get returns a setting as uint64, or as string for the identifier with
// trailing spaces removed
func (s *Settings) Get(key string) (any, error) {
	f, err := s.field(key)
	if err != nil {
		return nil, err
	}
	if f.Kind == codec.KindBytes {
		raw, err := s.rec.Bytes(key)
		if err != nil {
			return nil, err
		}
		return strings.TrimRight(string(bytes.TrimRight(raw, "\x00")), " "), nil
	}
	return s.rec.Uint(key)
}

// GetString formats a setting for display
func (s *Settings) GetString(key string) (string, error) {
	v, err := s.Get(key)
	if err != nil {
		return "", err
	}
	return fmt.Sprint(v), nil
}

// Set parses value for key. Integers are decimal, or hex with a 0x prefix,
// and must fit the field. The identifier is space padded to 8 ASCII characters.
func (s *Settings) Set(key, value string) error {
	f, err := s.field(key)
	if err != nil {
		return err
	}

	if f.Kind == codec.KindBytes {
		for _, r := range value {
			if r > 0x7F {
				return &SettingError{Key: key, Value: value, Err: fmt.Errorf("%w: not ASCII", ErrInvalidSetting)}
			}
		}
		if len(value) > f.Size {
			return &SettingError{Key: key, Value: value,
				Err: fmt.Errorf("%w: longer than %d characters", ErrInvalidSetting, f.Size)}
		}
		padded := value + strings.Repeat(" ", f.Size-len(value))
		return s.rec.SetBytes(key, []byte(padded))
	}

	n, err := parseSettingUint(strings.TrimSpace(value))
	if err != nil {
		return &SettingError{Key: key, Value: value, Err: fmt.Errorf("%w: %v", ErrInvalidSetting, err)}
	}
	if err := s.rec.SetUint(key, n); err != nil {
		return &SettingError{Key: key, Value: value, Err: fmt.Errorf("%w: %v", ErrInvalidSetting, err)}
	}
	return nil
}

// parseSettingUint reads decimal, so a leading zero is not octal, or 0x hex
func parseSettingUint(s string) (uint64, error) {
	if hex, ok := strings.CutPrefix(s, "0x"); ok {
		return strconv.ParseUint(hex, 16, 64)
	}
	if hex, ok := strings.CutPrefix(s, "0X"); ok {
		return strconv.ParseUint(hex, 16, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}

// Apply sets every key=value argument in order
func (s *Settings) Apply(args ...string) error {
	assignments, err := ParseAssignments(args)
	if err != nil {
		return err
	}
	for _, a := range assignments {
		if err := s.Set(a.Key, a.Value); err != nil {
			return err
		}
	}
	return nil
}

// Pack returns the 32 byte blob the firmware reads
func (s *Settings) Pack() []byte {
	return s.rec.Encode()
}

// Assignment is one key=value command line argument
type Assignment struct {
	Key   string
	Value string
}

// ParseAssignments splits key=value arguments at the first '='
func ParseAssignments(args []string) ([]Assignment, error) {
	out := make([]Assignment, 0, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: %q", ErrMalformedArgument, arg)
		}
		out = append(out, Assignment{Key: key, Value: value})
	}
	return out, nil
}
