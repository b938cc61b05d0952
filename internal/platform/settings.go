package platform

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DozeKey is the settings entry holding the doze policy.
const DozeKey = "DOZE_ENABLED"

// Settings reads the doze policy from an env-format file. The file is read
// on every query so edits apply at the next screen-off transition.
type Settings struct {
	Path string
}

// DozeEnabled returns the DOZE_ENABLED value. A missing file or key means
// enabled. An unparsable value is an error.
func (s Settings) DozeEnabled() (bool, error) {
	if s.Path == "" {
		return true, nil
	}
	env, err := godotenv.Read(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("read settings %s: %w", s.Path, err)
	}

	raw, ok := env[DozeKey]
	if !ok {
		return true, nil
	}
	v, err := parseSwitch(raw)
	if err != nil {
		return false, fmt.Errorf("settings %s: %s: %w", s.Path, DozeKey, err)
	}
	return v, nil
}

func parseSwitch(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(raw))
}
