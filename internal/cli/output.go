package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/unilove/ridersync/internal/fault"
	"github.com/unilove/ridersync/internal/model"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Operation failure (rejected login, invalid OTP, etc.)
	ExitCommandError = 2 // Command error (bad flags, unreadable config, etc.)
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
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

// printer formats counts and amounts with locale-aware separators.
var printer = message.NewPrinter(language.English)

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string      `json:"status"`          // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`  // success payload
	Error  *CLIError   `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`    // fault code, e.g. "TIMEOUT"
	Message string `json:"message"` // human-readable message
}

// Success outputs a successful result in the configured format. In text
// mode data is printed as-is unless it implements fmt.Stringer.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Fault outputs a classified failure in the configured format. The
// SAVED_OFFLINE code renders as a soft notice in text mode, not an
// error line.
func (f *OutputFormatter) Fault(err error) error {
	code := string(fault.CodeOf(err))
	msg := fault.MessageOf(err)
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: msg},
		})
	}
	if fault.IsRecoverable(err) {
		fmt.Fprintln(f.Writer, msg)
		return nil
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, msg)
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// renderOrders writes the queue as an aligned text table.
func renderOrders(w io.Writer, orders []model.Order) {
	if len(orders) == 0 {
		fmt.Fprintln(w, "Queue is empty.")
		return
	}
	fmt.Fprintf(w, "%-12s %-10s %-18s %-16s %-20s %s\n",
		"ORDER", "STATUS", "CUSTOMER", "PHONE", "ADDRESS", "DUE")
	for _, o := range orders {
		due := "-"
		if o.RequiresCollection && o.AmountDueCedis > 0 {
			due = printer.Sprintf("GHS %.2f", o.AmountDueCedis)
			if o.PaymentStatus == model.PaymentPaid {
				due += " (paid)"
			}
		}
		fmt.Fprintf(w, "%-12s %-10s %-18s %-16s %-20s %s\n",
			o.OrderNumber,
			shortStatus(o.Status),
			truncate(o.CustomerName, 18),
			o.CustomerPhoneMasked,
			truncate(o.Address, 20),
			due)
	}
	fmt.Fprintln(w, printer.Sprintf("%d order(s) cached.", len(orders)))
}

// renderMetrics writes today's performance summary.
func renderMetrics(w io.Writer, m model.Metrics) {
	fmt.Fprintln(w, printer.Sprintf("Deliveries today:  %d", m.DeliveriesToday))
	fmt.Fprintln(w, printer.Sprintf("On-time rate:      %d%%", m.OnTimeRatePercent))
	fmt.Fprintln(w, printer.Sprintf("Average minutes:   %d", m.AverageMinutes))
	marks := make([]string, 0, len(m.WeeklyTrend))
	for _, n := range m.WeeklyTrend {
		marks = append(marks, fmt.Sprintf("%d", n))
	}
	fmt.Fprintf(w, "Last 7 days:       %s\n", strings.Join(marks, " "))
}

// renderIncidents writes the incident audit log.
func renderIncidents(w io.Writer, recs []model.IncidentRecord) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "No incidents recorded.")
		return
	}
	fmt.Fprintf(w, "%-22s %-20s %-8s %-8s %s\n",
		"WHEN", "CATEGORY", "SYNC", "ORDER", "NOTE")
	for _, r := range recs {
		orderID := r.OrderID
		if orderID == "" {
			orderID = "-"
		}
		fmt.Fprintf(w, "%-22s %-20s %-8s %-8s %s\n",
			r.CreatedAt.Format("2006-01-02 15:04:05"),
			r.Category,
			r.SyncStatus,
			orderID,
			truncate(r.Note, 40))
	}
}

func shortStatus(s model.DeliveryStatus) string {
	switch s {
	case model.StatusReadyForPickup:
		return "READY"
	case model.StatusOutForDelivery:
		return "OUT"
	case model.StatusDelivered:
		return "DONE"
	default:
		return "OTHER"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
