package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// FormatForCLI formats an error for terminal display: message, optional
// hint, then the code.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	var se *SiloError
	if !errors.As(err, &se) {
		se = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	sb.WriteString("Error: ")
	sb.WriteString(se.Message)
	if se.Cause != nil && se.Cause.Error() != se.Message {
		sb.WriteString(": ")
		sb.WriteString(se.Cause.Error())
	}
	sb.WriteString("\n")

	if se.Suggestion != "" {
		fmt.Fprintf(&sb, "  Hint: %s\n", se.Suggestion)
	}

	keys := make([]string, 0, len(se.Details))
	for k := range se.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&sb, "  %s: %s\n", k, se.Details[k])
	}

	fmt.Fprintf(&sb, "  Code: %s\n", se.Code)
	return sb.String()
}

// Describe returns a single-line description of err suitable for
// summaries and tool results. The code prefix is dropped.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var se *SiloError
	if !errors.As(err, &se) {
		return err.Error()
	}

	msg := se.Message
	if se.Cause != nil && se.Cause.Error() != se.Message {
		msg += ": " + se.Cause.Error()
	}
	if se.Suggestion != "" {
		msg += " (" + se.Suggestion + ")"
	}
	return msg
}

// LogAttrs flattens an error into slog-friendly key/value pairs.
func LogAttrs(err error) []any {
	if err == nil {
		return nil
	}

	var se *SiloError
	if !errors.As(err, &se) {
		return []any{"error", err.Error()}
	}

	attrs := []any{
		"error", Describe(se),
		"error_code", se.Code,
		"category", string(se.Category),
	}
	if se.Retryable {
		attrs = append(attrs, "retryable", true)
	}
	return attrs
}
