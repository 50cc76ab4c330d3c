package pipeline

import "strings"

// base returns the FFmpeg invocation prefix shared by every pipeline.
// -loglevel level+info prefixes each line with its level so
// ParseFFmpegLevel can lift it into structured logging.
func base() string {
	return "ffmpeg -hide_banner -nostdin -loglevel level+info"
}

// ParseFFmpegLevel extracts the log level from ffmpeg output.
// FFmpeg with -loglevel level+info outputs lines like "[info] message"
// or "[component @ 0x...] [level] message" for component-specific logs.
// Returns the level and the message with level stripped but component
// preserved.
func ParseFFmpegLevel(line string) (level, msg string) {
	if len(line) < 3 || line[0] != '[' {
		return "info", line
	}

	end := strings.Index(line, "] ")
	if end == -1 {
		return "info", line
	}

	bracket := line[1:end]

	if isFFmpegLevel(bracket) {
		return bracket, line[end+2:]
	}

	// Component prefix: [component @ 0x...] [level] message.
	// Keep the component, strip only the [level].
	component := line[:end+2]
	rest := line[end+2:]
	if len(rest) > 2 && rest[0] == '[' {
		if nextEnd := strings.Index(rest, "] "); nextEnd != -1 {
			nextBracket := rest[1:nextEnd]
			if isFFmpegLevel(nextBracket) {
				return nextBracket, component + rest[nextEnd+2:]
			}
		}
	}

	return "info", line
}

func isFFmpegLevel(s string) bool {
	switch s {
	case "quiet", "panic", "fatal", "error", "warning", "info", "verbose", "debug", "trace":
		return true
	}
	return false
}
