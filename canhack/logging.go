package canhack

// A lightweight reimplementation of the colored status logging this
// package's predecessor used, backed by charmbracelet/log instead of
// hand-rolled ANSI escapes, plus an optional CSV audit trail of attack
// outcomes in the same spirit as that predecessor's per-packet log file.

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
)

// Severity mirrors the five-way color split the predecessor used to
// classify a status line (info/error/received/transmitted/debug), mapped
// onto charmbracelet/log's levels rather than a terminal color code.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityError
	SeverityRecv
	SeverityXmit
	SeverityDebug
)

var defaultLogger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	TimeFormat:      time.RFC3339,
})

// SetLogOutput redirects status logging to w; passing nil restores
// os.Stderr. Intended for tests that want to assert on logged output
// without it landing on the test binary's stderr.
func SetLogOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	defaultLogger.SetOutput(w)
}

// Logf writes one status line at the given severity, matching the
// predecessor's text_color_set+dw_printf pairing collapsed into a single
// call.
func Logf(sev Severity, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	switch sev {
	case SeverityError:
		defaultLogger.Error(msg)
	case SeverityDebug:
		defaultLogger.Debug(msg)
	case SeverityRecv:
		defaultLogger.With("dir", "rx").Info(msg)
	case SeverityXmit:
		defaultLogger.With("dir", "tx").Info(msg)
	default:
		defaultLogger.Info(msg)
	}
}

// attackLogTimeFormat renders a strftime pattern once per write rather
// than precompiling, since attack log writes are rare (bus-rate events,
// not bit-rate events) and the predecessor's own log_write took the same
// format-every-time approach.
const attackLogTimeFormat = "%Y-%m-%dT%H:%M:%S%z"

// AttackLog is a CSV audit trail of attack attempts, one row per call to
// Record: timestamp, the frame slot and identifier involved, and whether
// the attempt reported success. It plays the same role the predecessor's
// log_write did for received APRS packets, adapted to record outcomes of
// SendFrame/SpoofFrame/ErrorAttack calls instead.
type AttackLog struct {
	f *os.File
	w *csv.Writer
}

// OpenAttackLog opens (creating if necessary, appending otherwise) a CSV
// log file at path and writes a header row if the file is new.
func OpenAttackLog(path string) (*AttackLog, error) {
	_, statErr := os.Stat(path)
	alreadyThere := statErr == nil

	f, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND|os.O_CREATE, 0644)
	if err != nil {
		Logf(SeverityError, "can't open attack log %q: %s", path, err)
		return nil, err
	}

	al := &AttackLog{f: f, w: csv.NewWriter(f)}
	if !alreadyThere {
		al.w.Write([]string{"utime", "isotime", "kind", "slot", "id_a", "id_b", "fd", "brs", "ok"})
		al.w.Flush()
	}
	return al, nil
}

// Record appends one row describing an attempt. kind is a short label
// ("send", "spoof", "janus", "error-attack"); slot identifies which frame
// buffer was involved.
func (al *AttackLog) Record(kind string, slot FrameSlot, f Frame, idA, idB uint32, ok bool) {
	if al == nil || al.f == nil {
		return
	}
	now := time.Now()
	isotime, err := strftime.Format(attackLogTimeFormat, now)
	if err != nil {
		isotime = now.Format(time.RFC3339)
	}
	al.w.Write([]string{
		fmt.Sprintf("%d", now.Unix()),
		isotime,
		kind,
		fmt.Sprintf("%d", slot),
		fmt.Sprintf("%#x", idA),
		fmt.Sprintf("%#x", idB),
		fmt.Sprintf("%v", f.FD),
		fmt.Sprintf("%v", f.BRS),
		fmt.Sprintf("%v", ok),
	})
	al.w.Flush()
}

// Close flushes and closes the underlying file.
func (al *AttackLog) Close() error {
	if al == nil || al.f == nil {
		return nil
	}
	al.w.Flush()
	return al.f.Close()
}
