package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/uamlab/uam/internal/ledger"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Verification failure (broken chain, unstable replay, etc.)
	ExitCommandError = 2 // Command error (invalid paths, database not found, etc.)
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string      `json:"status"` // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`
	Error  *CLIError   `json:"error,omitempty"`
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format  string
	Writer  io.Writer
	Verbose bool
}

// JSON outputs a successful payload as a JSON response envelope.
func (f *OutputFormatter) JSON(data interface{}) error {
	return json.NewEncoder(f.Writer).Encode(CLIResponse{
		Status: "ok",
		Data:   data,
	})
}

// VerboseLog outputs a message only if verbose mode is enabled.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.Writer, format+"\n", args...)
}

// recordView is the JSON shape of a ledger record in CLI output.
type recordView struct {
	Position      int64          `json:"position"`
	Kind          string         `json:"kind"`
	Name          string         `json:"name"`
	Payload       map[string]any `json:"payload"`
	Timestamp     string         `json:"timestamp"`
	PreviousHash  string         `json:"previous_hash"`
	Signature     string         `json:"signature"`
	SchemaVersion int            `json:"schema_version"`
}

func viewOf(rec ledger.Record) recordView {
	payload := map[string]any{}
	var raw map[string]json.RawMessage
	if data, err := rec.MarshalPayload(); err == nil {
		if json.Unmarshal([]byte(data), &raw) == nil {
			for k, v := range raw {
				var val any
				dec := json.NewDecoder(strings.NewReader(string(v)))
				dec.UseNumber()
				if dec.Decode(&val) == nil {
					payload[k] = val
				}
			}
		}
	}
	return recordView{
		Position:      rec.Position,
		Kind:          string(rec.Kind),
		Name:          rec.Name,
		Payload:       payload,
		Timestamp:     rec.Timestamp.UTC().Format(time.RFC3339),
		PreviousHash:  rec.PreviousHash,
		Signature:     rec.Signature,
		SchemaVersion: rec.SchemaVersion,
	}
}

// printRecord renders a record as indented text.
func printRecord(w io.Writer, rec ledger.Record) {
	fmt.Fprintf(w, "%s %q (record %d, %s)\n", rec.Kind, rec.Name, rec.Position, rec.Timestamp.UTC().Format(time.RFC3339))

	switch p := rec.Payload.(type) {
	case ledger.ConstantPayload:
		fmt.Fprintf(w, "  value:       %v\n", ledger.ToGo(p.Value))
		fmt.Fprintf(w, "  scale:       %s\n", p.Scale)
		if p.DerivationNote != "" {
			fmt.Fprintf(w, "  derived:     %s\n", p.DerivationNote)
		}
		if p.Source != "" {
			fmt.Fprintf(w, "  source:      %s\n", p.Source)
		}
		if p.Explanation != "" {
			fmt.Fprintf(w, "  explanation: %s\n", p.Explanation)
		}
	case ledger.DerivationPayload:
		fmt.Fprintf(w, "  formula:      %s\n", p.Formula)
		fmt.Fprintf(w, "  scale:        %s\n", p.Scale)
		fmt.Fprintf(w, "  reproducible: %t\n", p.Reproducible)
		if p.Description != "" {
			fmt.Fprintf(w, "  description:  %s\n", p.Description)
		}
	case ledger.DatasetPayload:
		fmt.Fprintf(w, "  source:      %s\n", p.Source)
		fmt.Fprintf(w, "  validated:   %t\n", p.Validated)
		if p.Description != "" {
			fmt.Fprintf(w, "  description: %s\n", p.Description)
		}
	case ledger.FailurePayload:
		fmt.Fprintf(w, "  context: %s\n", p.Context)
		fmt.Fprintf(w, "  reason:  %s\n", p.Reason)
	}

	fmt.Fprintf(w, "  signature: %s\n", rec.Signature)
}
