package arr

import (
	"encoding/xml"
	"errors"
	"os"
	"strings"
)

// minKeyLength rejects placeholder keys.
const minKeyLength = 11

// ErrNoAPIKey is returned when no config.xml yields a usable key.
var ErrNoAPIKey = errors.New("no API key found")

// DefaultKeyPaths are the config.xml locations searched for a service key.
// Placeholders: {service}, {user}, {home}, {settings}.
var DefaultKeyPaths = []string{
	"{settings}/docker/{user}/{service}/config/config.xml",
	"/opt/seedbox/docker/{user}/{service}/config/config.xml",
	"{home}/.config/{service}/config.xml",
	"/docker/{user}/{service}/config/config.xml",
	"/home/{user}/seedbox-compose/includes/config/{service}/config.xml",
}

// KeyPathVars fills the placeholders of a key path pattern.
type KeyPathVars struct {
	User     string
	Home     string
	Settings string // Seedbox settings root; patterns using it are skipped when empty.
}

// KeyPathVarsFromEnv reads USER, HOME and SETTINGS_SOURCE.
func KeyPathVarsFromEnv() KeyPathVars {
	user := os.Getenv("USER")
	if user == "" {
		user = os.Getenv("USERNAME")
	}
	if user == "" {
		user = "user"
	}
	home := os.Getenv("HOME")
	if home == "" {
		home = "/home/" + user
	}
	settings := os.Getenv("SETTINGS_SOURCE")
	if settings == "" {
		settings = "/home/" + user + "/seedbox-compose"
	}
	return KeyPathVars{User: user, Home: home, Settings: settings}
}

func (v KeyPathVars) expand(pattern, service string) (string, bool) {
	if strings.Contains(pattern, "{settings}") && v.Settings == "" {
		return "", false
	}
	r := strings.NewReplacer(
		"{service}", service,
		"{user}", v.User,
		"{home}", v.Home,
		"{settings}", v.Settings,
	)
	return r.Replace(pattern), true
}

type serviceConfigXML struct {
	APIKey string `xml:"ApiKey"`
}

// DetectAPIKey searches patterns in order for a config.xml carrying an
// <ApiKey> longer than ten characters. It returns the key and the file it
// came from. Unreadable or malformed files are skipped.
func DetectAPIKey(service string, patterns []string, vars KeyPathVars) (key, path string, err error) {
	for _, p := range patterns {
		candidate, ok := vars.expand(p, service)
		if !ok {
			continue
		}
		data, err := os.ReadFile(candidate)
		if err != nil {
			continue
		}
		var doc serviceConfigXML
		if err := xml.Unmarshal(data, &doc); err != nil {
			continue
		}
		if k := strings.TrimSpace(doc.APIKey); len(k) >= minKeyLength {
			return k, candidate, nil
		}
	}
	return "", "", ErrNoAPIKey
}
