// Package log parses the log lines a transaction receipt carries.
//
// Each program invocation is bracketed by an invoke line and a success or
// failed line. The parser tracks that nesting so every "Program data:" and
// "Program log:" line is attributed to the program that wrote it.
//
//	parser := log.NewParser()
//	for _, d := range parser.ExtractProgramData(receipt.Logs) {
//	    if d.ProgramID == programID {
//	        // decode d.Data
//	    }
//	}
package log

import (
	"encoding/base64"
	"regexp"
	"strconv"
)

// LogType represents the type of a log message.
type LogType int

const (
	// LogTypeUnknown represents an unrecognized log message.
	LogTypeUnknown LogType = iota
	// LogTypeInvoke represents a "Program X invoke [N]" message.
	LogTypeInvoke
	// LogTypeSuccess represents a "Program X success" message.
	LogTypeSuccess
	// LogTypeFailed represents a "Program X failed: reason" message.
	LogTypeFailed
	// LogTypeData represents a "Program data: BASE64" message.
	LogTypeData
	// LogTypeLog represents a "Program log: MESSAGE" message.
	LogTypeLog
)

// String returns the string representation of LogType.
func (lt LogType) String() string {
	switch lt {
	case LogTypeInvoke:
		return "Invoke"
	case LogTypeSuccess:
		return "Success"
	case LogTypeFailed:
		return "Failed"
	case LogTypeData:
		return "Data"
	case LogTypeLog:
		return "Log"
	default:
		return "Unknown"
	}
}

// ParsedLog is one log line broken into its parts.
type ParsedLog struct {
	Type LogType

	// Depth is the invocation depth, 1 for a top-level instruction.
	// Set on invoke lines only.
	Depth int

	// ProgramID is the program named by invoke, success and failed lines.
	ProgramID string

	// Data holds the decoded payload of a data line. Nil when the payload
	// is not valid base64.
	Data []byte

	// Message is the text of a log line, or the reason of a failed line.
	Message string

	RawLog string
}

// ProgramData is a decoded "Program data:" payload and the program that
// emitted it.
type ProgramData struct {
	ProgramID string
	Depth     int
	Data      []byte
}

// ProgramLog is a "Program log:" message and the program that wrote it.
type ProgramLog struct {
	ProgramID string
	Depth     int
	Message   string
}

// LogParser parses transaction logs.
type LogParser struct {
	invoke  *regexp.Regexp
	success *regexp.Regexp
	failed  *regexp.Regexp
	data    *regexp.Regexp
	log     *regexp.Regexp
}

// NewParser creates a new LogParser.
func NewParser() *LogParser {
	return &LogParser{
		invoke:  regexp.MustCompile(`^Program (\S+) invoke \[(\d+)\]$`),
		success: regexp.MustCompile(`^Program (\S+) success$`),
		failed:  regexp.MustCompile(`^Program (\S+) failed: (.*)$`),
		data:    regexp.MustCompile(`^Program data: (.+)$`),
		log:     regexp.MustCompile(`^Program log: (.*)$`),
	}
}

// Parse parses a single log line.
func (p *LogParser) Parse(line string) *ParsedLog {
	result := &ParsedLog{Type: LogTypeUnknown, RawLog: line}

	if m := p.invoke.FindStringSubmatch(line); m != nil {
		depth, err := strconv.Atoi(m[2])
		if err != nil {
			return result
		}
		result.Type = LogTypeInvoke
		result.ProgramID = m[1]
		result.Depth = depth
		return result
	}

	if m := p.success.FindStringSubmatch(line); m != nil {
		result.Type = LogTypeSuccess
		result.ProgramID = m[1]
		return result
	}

	if m := p.failed.FindStringSubmatch(line); m != nil {
		result.Type = LogTypeFailed
		result.ProgramID = m[1]
		result.Message = m[2]
		return result
	}

	if m := p.data.FindStringSubmatch(line); m != nil {
		result.Type = LogTypeData
		if decoded, err := base64.StdEncoding.DecodeString(m[1]); err == nil {
			result.Data = decoded
		}
		return result
	}

	if m := p.log.FindStringSubmatch(line); m != nil {
		result.Type = LogTypeLog
		result.Message = m[1]
		return result
	}

	return result
}

// ParseAll parses every line.
func (p *LogParser) ParseAll(lines []string) []*ParsedLog {
	results := make([]*ParsedLog, 0, len(lines))
	for _, line := range lines {
		results = append(results, p.Parse(line))
	}
	return results
}

// walk calls fn for every parsed line together with the program whose
// invocation frame the line belongs to.
func (p *LogParser) walk(lines []string, fn func(parsed *ParsedLog, program string, depth int)) {
	var stack []string
	for _, line := range lines {
		parsed := p.Parse(line)

		switch parsed.Type {
		case LogTypeInvoke:
			// A depth that skips levels means lines were lost. Trust the
			// reported depth.
			if parsed.Depth-1 < len(stack) {
				stack = stack[:max(parsed.Depth-1, 0)]
			}
			stack = append(stack, parsed.ProgramID)
			fn(parsed, parsed.ProgramID, len(stack))
			continue
		case LogTypeSuccess, LogTypeFailed:
			fn(parsed, parsed.ProgramID, len(stack))
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			continue
		}

		var current string
		if len(stack) > 0 {
			current = stack[len(stack)-1]
		}
		fn(parsed, current, len(stack))
	}
}

// ExtractProgramData returns every decodable "Program data:" payload in
// order, attributed to the emitting program.
func (p *LogParser) ExtractProgramData(lines []string) []ProgramData {
	var out []ProgramData
	p.walk(lines, func(parsed *ParsedLog, program string, depth int) {
		if parsed.Type == LogTypeData && len(parsed.Data) > 0 {
			out = append(out, ProgramData{ProgramID: program, Depth: depth, Data: parsed.Data})
		}
	})
	return out
}

// ExtractProgramLogs returns every "Program log:" message in order,
// attributed to the writing program.
func (p *LogParser) ExtractProgramLogs(lines []string) []ProgramLog {
	var out []ProgramLog
	p.walk(lines, func(parsed *ParsedLog, program string, depth int) {
		if parsed.Type == LogTypeLog {
			out = append(out, ProgramLog{ProgramID: program, Depth: depth, Message: parsed.Message})
		}
	})
	return out
}

// FilterByProgram returns the data and log lines written by programID
// itself, excluding lines from programs it invoked.
func (p *LogParser) FilterByProgram(lines []string, programID string) []string {
	var filtered []string
	p.walk(lines, func(parsed *ParsedLog, program string, _ int) {
		if program != programID {
			return
		}
		if parsed.Type == LogTypeData || parsed.Type == LogTypeLog {
			filtered = append(filtered, parsed.RawLog)
		}
	})
	return filtered
}

// Failure returns the program and reason of the innermost failed line, and
// false when the logs record no failure.
func (p *LogParser) Failure(lines []string) (program string, reason string, ok bool) {
	for _, line := range lines {
		parsed := p.Parse(line)
		if parsed.Type == LogTypeFailed {
			return parsed.ProgramID, parsed.Message, true
		}
	}
	return "", "", false
}
