package sinks

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"strconv"
	"strings"

	"minigolf/server/logging"
)

var severityNames = map[logging.Severity]string{
	logging.SeverityDebug: "debug",
	logging.SeverityInfo:  "info",
	logging.SeverityWarn:  "warn",
	logging.SeverityError: "error",
}

var severityColors = map[logging.Severity]string{
	logging.SeverityWarn:  "\x1b[33m",
	logging.SeverityError: "\x1b[31m",
}

// ConsoleSink renders events as single log lines.
type ConsoleSink struct {
	logger *log.Logger
	color  bool
}

func NewConsoleSink(w io.Writer, cfg logging.ConsoleConfig) *ConsoleSink {
	return &ConsoleSink{
		logger: log.New(w, "", log.LstdFlags),
		color:  cfg.UseColor,
	}
}

func (s *ConsoleSink) Write(event logging.Event) error {
	if s.logger == nil {
		return nil
	}
	var line strings.Builder
	line.WriteString("[")
	line.WriteString(string(event.Type))
	line.WriteString("] ")
	s.writeField(&line, "tick", strconv.FormatUint(event.Tick, 10))
	s.writeField(&line, "actor", entityString(event.Actor))
	s.writeSeverity(&line, event.Severity)
	if len(event.Targets) > 0 {
		refs := make([]string, len(event.Targets))
		for i, target := range event.Targets {
			refs[i] = entityString(target)
		}
		s.writeField(&line, "targets", strings.Join(refs, ","))
	}
	if event.Payload != nil {
		s.writeField(&line, "payload", jsonString(event.Payload))
	}
	for key, value := range event.Extra {
		s.writeField(&line, key, jsonString(value))
	}
	s.logger.Print(strings.TrimRight(line.String(), " "))
	return nil
}

func (s *ConsoleSink) Close(context.Context) error {
	return nil
}

func (s *ConsoleSink) writeField(line *strings.Builder, key, value string) {
	line.WriteString(key)
	line.WriteString("=")
	line.WriteString(value)
	line.WriteString(" ")
}

func (s *ConsoleSink) writeSeverity(line *strings.Builder, sev logging.Severity) {
	name, ok := severityNames[sev]
	if !ok {
		name = "unknown"
	}
	if s.color {
		if code, ok := severityColors[sev]; ok {
			name = code + name + "\x1b[0m"
		}
	}
	s.writeField(line, "severity", name)
}


func entityString(ref logging.EntityRef) string {
	switch {
	case ref.ID == "":
		return string(ref.Kind)
	case ref.Kind == "":
		return ref.ID
	default:
		return string(ref.Kind) + ":" + ref.ID
	}
}

func jsonString(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return "<unencodable>"
	}
	return string(data)
}
