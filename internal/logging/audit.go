package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AuditEventType defines the type of audit event (maps to a Mangle predicate name)
type AuditEventType string

const (
	AuditPatientIntake      AuditEventType = "patient_intake"
	AuditPatientUpdate      AuditEventType = "patient_update"
	AuditTestSubmitted      AuditEventType = "test_submitted"
	AuditLocationRegistered AuditEventType = "location_registered"
	AuditRecordSkipped      AuditEventType = "record_skipped"
	AuditRecordsDropped     AuditEventType = "records_dropped"
)

// AuditEvent is one line of the audit trail.
type AuditEvent struct {
	EventType AuditEventType
	PatientID int // -1 when the event is not about a single patient
	Target    string
	Success   bool
	Message   string
	Fields    map[string]interface{}
}

var (
	auditMu     sync.Mutex
	auditFile   *os.File
	auditLogger *AuditLogger
	sessionID   = newSessionID()
)

func newSessionID() string {
	return uuid.New().String()[:8]
}

// AuditLogger writes audit events as JSON lines, each carrying a Mangle fact.
type AuditLogger struct {
	log *zap.Logger
}

// SessionID returns the identifier attached to every audit event of this process.
func SessionID() string {
	auditMu.Lock()
	defer auditMu.Unlock()
	return sessionID
}

// InitAudit opens the audit trail in the logs directory.
func InitAudit() error {
	optionsMu.RLock()
	dir := options.LogsDir
	optionsMu.RUnlock()

	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		return nil
	}

	path := filepath.Join(dir, "audit.jsonl")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	auditFile = file

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.EpochMillisTimeEncoder
	encCfg.LevelKey = ""
	encCfg.CallerKey = ""
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(file), zapcore.InfoLevel)
	auditLogger = &AuditLogger{log: zap.New(core).With(zap.String("session", sessionID))}

	return nil
}

// CloseAudit closes the audit log file
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditLogger != nil {
		_ = auditLogger.log.Sync()
		auditLogger = nil
	}
	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
	sessionID = newSessionID()
}

// Audit returns the global audit logger; a no-op logger when auditing is off.
func Audit() *AuditLogger {
	auditMu.Lock()
	defer auditMu.Unlock()
	if auditLogger == nil {
		return &AuditLogger{log: zap.NewNop()}
	}
	return auditLogger
}

// Log writes an audit event
func (a *AuditLogger) Log(event AuditEvent) {
	fields := []zap.Field{
		zap.String("event", string(event.EventType)),
		zap.Int("patient", event.PatientID),
		zap.String("target", event.Target),
		zap.Bool("success", event.Success),
		zap.String("mangle", mangleFact(time.Now().UnixMilli(), event)),
	}
	if len(event.Fields) > 0 {
		fields = append(fields, zap.Any("fields", event.Fields))
	}
	a.log.Info(event.Message, fields...)
}

// mangleFact renders the event as patient_event(Ts, /type, PatientID, "target", success).
func mangleFact(ts int64, e AuditEvent) string {
	success := "/false"
	if e.Success {
		success = "/true"
	}
	return fmt.Sprintf("patient_event(%d, /%s, %d, \"%s\", %s).",
		ts, e.EventType, e.PatientID, escapeString(e.Target), success)
}

func escapeString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + len(s)/10)

	for _, c := range s {
		switch c {
		case '"':
			b.WriteString("\\\"")
		case '\\':
			b.WriteString("\\\\")
		case '\n':
			b.WriteString("\\n")
		case '\r':
			b.WriteString("\\r")
		case '\t':
			b.WriteString("\\t")
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}

// =============================================================================
// CONVENIENCE METHODS FOR COMMON EVENTS
// =============================================================================

// PatientIntake logs a newly registered patient
func (a *AuditLogger) PatientIntake(id int, name string) {
	a.Log(AuditEvent{
		EventType: AuditPatientIntake,
		PatientID: id,
		Target:    name,
		Success:   true,
		Message:   fmt.Sprintf("Patient registered with id %d", id),
	})
}

// PatientUpdate logs a field update; changed is false for selectors that do not mutate
func (a *AuditLogger) PatientUpdate(id int, field string, changed bool) {
	a.Log(AuditEvent{
		EventType: AuditPatientUpdate,
		PatientID: id,
		Target:    field,
		Success:   changed,
		Message:   fmt.Sprintf("Patient %d field %s updated (changed=%v)", id, field, changed),
	})
}

// TestSubmitted logs a recorded test result
func (a *AuditLogger) TestSubmitted(id int, result string) {
	a.Log(AuditEvent{
		EventType: AuditTestSubmitted,
		PatientID: id,
		Target:    result,
		Success:   true,
		Message:   fmt.Sprintf("Test result %s recorded for patient %d", result, id),
	})
}

// LocationRegistered logs a location added to the high-risk registry
func (a *AuditLogger) LocationRegistered(id int, location string) {
	a.Log(AuditEvent{
		EventType: AuditLocationRegistered,
		PatientID: id,
		Target:    location,
		Success:   true,
		Message:   fmt.Sprintf("High-risk location registered: %s", location),
	})
}

// RecordSkipped logs a stored line that could not be decoded
func (a *AuditLogger) RecordSkipped(path string, line int, reason string) {
	a.Log(AuditEvent{
		EventType: AuditRecordSkipped,
		PatientID: -1,
		Target:    path,
		Success:   false,
		Message:   fmt.Sprintf("Skipped malformed record at %s:%d", path, line),
		Fields:    map[string]interface{}{"line": line, "reason": reason},
	})
}

// RecordsDropped logs malformed lines removed from a file by a full rewrite
func (a *AuditLogger) RecordsDropped(path string, count int) {
	a.Log(AuditEvent{
		EventType: AuditRecordsDropped,
		PatientID: -1,
		Target:    path,
		Success:   false,
		Message:   fmt.Sprintf("Rewrite of %s dropped %d malformed lines", path, count),
		Fields:    map[string]interface{}{"count": count},
	})
}
