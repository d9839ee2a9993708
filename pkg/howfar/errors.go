package howfar

import (
	"errors"
	"fmt"
)

var (
	ErrImageSizeMismatch = errors.New("container and flash image sizes disagree")
	ErrUnknownSetting    = errors.New("unknown setting")
	ErrInvalidSetting    = errors.New("invalid setting value")
	ErrMalformedArgument = errors.New("expected key=value")
)

// SettingError reports a rejected settings assignment
type SettingError struct {
	Key   string
	Value string
	Err   error
}

func (e *SettingError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("setting %q: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("setting %q=%q: %v", e.Key, e.Value, e.Err)
}

func (e *SettingError) Unwrap() error { return e.Err }
