package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError 单个字段的校验失败
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors 所有校验失败
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// ValidLogLevels 支持的日志级别
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate 返回所有不合法的配置项
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError

	if c.Server.Enabled && c.Server.Addr == "" {
		errs = append(errs, ValidationError{Field: "server.addr", Value: c.Server.Addr, Message: "must be set when the server is enabled"})
	}
	if c.Discord.Enabled && c.Discord.Token == "" {
		errs = append(errs, ValidationError{Field: "discord.token", Value: "", Message: "must be set when discord is enabled"})
	}
	if !c.Server.Enabled && !c.Discord.Enabled {
		errs = append(errs, ValidationError{Field: "server.enabled", Value: false, Message: "at least one of server or discord must be enabled"})
	}

	channels := map[string]string{
		"games.fake_artist_channel": c.Games.FakeArtistChannel,
		"games.political_channel":   c.Games.PoliticalChannel,
		"games.one_night_channel":   c.Games.OneNightChannel,
	}
	seen := make(map[string]string)
	for _, field := range []string{"games.fake_artist_channel", "games.political_channel", "games.one_night_channel"} {
		name := channels[field]
		if name == "" {
			errs = append(errs, ValidationError{Field: field, Value: name, Message: "must not be empty"})
			continue
		}
		if other, ok := seen[name]; ok {
			errs = append(errs, ValidationError{Field: field, Value: name, Message: "duplicates " + other})
			continue
		}
		seen[name] = field
	}

	if !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: "must be one of: " + strings.Join(ValidLogLevels(), ", "),
		})
	}
	return errs
}
