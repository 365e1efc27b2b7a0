package logging

// Style selects the zap core construction NewLogger uses. These were
// originally generated by oapi-codegen from an OpenAPI schema shared
// with the rest of the Antfly services; that generator step has no home
// in this module, so the four styles it produced are hand-declared here
// instead.
type Style string

const (
	StyleTerminal Style = "terminal"
	StyleJson     Style = "json"
	StyleLogfmt   Style = "logfmt"
	StyleNoop     Style = "noop"
)

// Level is the zap level name NewLogger parses via zapcore.ParseLevel.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Config selects NewLogger's style and level.
type Config struct {
	Style Style
	Level Level
}
