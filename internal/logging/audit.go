package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// =============================================================================
// AUDIT EVENT TYPES
// =============================================================================

// AuditEventType names a patient-data access or session event.
type AuditEventType string

const (
	// Session events
	AuditLogin         AuditEventType = "login"
	AuditLogout        AuditEventType = "logout"
	AuditRegister      AuditEventType = "register"
	AuditSessionExpire AuditEventType = "session_expire"

	// Record access
	AuditPatientList AuditEventType = "patient_list"
	AuditPatientView AuditEventType = "patient_view"

	// Clinical actions
	AuditPrognosis   AuditEventType = "prognosis_run"
	AuditNoteFormat  AuditEventType = "note_format"
	AuditNoteSave    AuditEventType = "note_save"
	AuditCarePlanAdd AuditEventType = "careplan_add"
	AuditChatAsk     AuditEventType = "chat_ask"

	// Input
	AuditVoiceCommand AuditEventType = "voice_command"
)

// AuditEvent is one JSON line in the audit log. Free text (notes, questions)
// is never recorded, only its length.
type AuditEvent struct {
	EventType  AuditEventType
	User       string
	PatientID  string
	RequestID  string
	Success    bool
	Duration   time.Duration
	Error      string
	TextLength int
	Command    string
}

// =============================================================================
// AUDIT LOGGER
// =============================================================================

var (
	auditFile   *os.File
	auditZap    *zap.Logger
	auditMu     sync.Mutex
	auditLogger = &AuditLogger{}
)

// AuditLogger writes audit events, optionally scoped to a user.
type AuditLogger struct {
	user string
}

// InitAudit opens <logs dir>/<date>_audit.log. It is a no-op unless debug
// mode is on.
func InitAudit() error {
	if !IsDebugMode() {
		return nil
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		return nil
	}

	configMu.RLock()
	dir := logsDir
	configMu.RUnlock()

	path := filepath.Join(dir, fmt.Sprintf("%s_audit.log", time.Now().Format("2006-01-02")))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.MessageKey = "event"
	encCfg.EncodeTime = zapcore.EpochMillisTimeEncoder
	encCfg.LevelKey = ""
	encCfg.CallerKey = ""

	auditFile = file
	auditZap = zap.New(zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(file), zapcore.InfoLevel))
	return nil
}

// CloseAudit flushes and closes the audit log.
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditZap != nil {
		_ = auditZap.Sync()
		auditZap = nil
	}
	if auditFile != nil {
		_ = auditFile.Close()
		auditFile = nil
	}
}

// Audit returns the global audit logger.
func Audit() *AuditLogger {
	return auditLogger
}

// AuditAs returns an audit logger that stamps events with username.
func AuditAs(username string) *AuditLogger {
	return &AuditLogger{user: username}
}

// Log writes one event.
func (a *AuditLogger) Log(event AuditEvent) {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditZap == nil {
		return
	}
	if event.User == "" {
		event.User = a.user
	}

	fields := []zap.Field{
		zap.Bool("success", event.Success),
	}
	if event.User != "" {
		fields = append(fields, zap.String("user", event.User))
	}
	if event.PatientID != "" {
		fields = append(fields, zap.String("patient", event.PatientID))
	}
	if event.RequestID != "" {
		fields = append(fields, zap.String("req", event.RequestID))
	}
	if event.Duration > 0 {
		fields = append(fields, zap.Int64("dur_ms", event.Duration.Milliseconds()))
	}
	if event.Error != "" {
		fields = append(fields, zap.String("error", event.Error))
	}
	if event.TextLength > 0 {
		fields = append(fields, zap.Int("text_len", event.TextLength))
	}
	if event.Command != "" {
		fields = append(fields, zap.String("command", event.Command))
	}
	auditZap.Info(string(event.EventType), fields...)
}

// PatientAction records a clinical action against a patient record.
func (a *AuditLogger) PatientAction(eventType AuditEventType, patientID string, start time.Time, err error) {
	e := AuditEvent{
		EventType: eventType,
		PatientID: patientID,
		Success:   err == nil,
		Duration:  time.Since(start),
	}
	if err != nil {
		e.Error = err.Error()
	}
	a.Log(e)
}

// SessionEvent records login, logout, or expiry.
func (a *AuditLogger) SessionEvent(eventType AuditEventType, username string, success bool) {
	a.Log(AuditEvent{EventType: eventType, User: username, Success: success})
}

// VoiceCommand records a routed utterance by command name.
func (a *AuditLogger) VoiceCommand(command string, matched bool) {
	a.Log(AuditEvent{EventType: AuditVoiceCommand, Command: command, Success: matched})
}
