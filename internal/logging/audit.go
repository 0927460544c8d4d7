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

// AuditEventType names one kind of audit record.
type AuditEventType string

const (
	// Analysis lifecycle
	AuditAnalysisSubmit   AuditEventType = "analysis_submit"
	AuditAnalysisComplete AuditEventType = "analysis_complete"
	AuditAnalysisError    AuditEventType = "analysis_error"

	// Tab capability
	AuditTabQuery AuditEventType = "tab_query"
	AuditTabError AuditEventType = "tab_error"

	// Configuration
	AuditConfigReload AuditEventType = "config_reload"
)

// AuditEvent is one JSON line in the audit log.
type AuditEvent struct {
	EventType AuditEventType
	Seq       uint64 // request generation, 0 when not tied to a request
	Kind      string // "url" or "text"
	Target    string // URL analysed or queried, empty for text
	Success   bool
	Duration  time.Duration
	Error     string
	Fields    map[string]interface{}
}

var (
	auditMu     sync.Mutex
	auditFile   *os.File
	auditLogger *zap.Logger
)

// InitAudit opens <logs>/<date>_audit.jsonl. It does nothing unless debug
// mode is on and Initialize has created the logs directory.
func InitAudit() error {
	if !IsDebugMode() {
		return nil
	}

	loggersMu.RLock()
	dir := logsDir
	loggersMu.RUnlock()
	if dir == "" {
		return nil
	}

	auditMu.Lock()
	defer auditMu.Unlock()
	if auditFile != nil {
		return nil
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_audit.jsonl", time.Now().Format("2006-01-02")))
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

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(file), zapcore.InfoLevel)
	auditFile = file
	auditLogger = zap.New(core)
	return nil
}

// CloseAudit flushes and closes the audit log.
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditLogger != nil {
		_ = auditLogger.Sync()
		auditLogger = nil
	}
	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// Audit writes an event to the audit log, if one is open.
func Audit(e AuditEvent) {
	auditMu.Lock()
	defer auditMu.Unlock()
	if auditLogger == nil {
		return
	}

	fields := []zap.Field{zap.Bool("success", e.Success)}
	if e.Seq != 0 {
		fields = append(fields, zap.Uint64("seq", e.Seq))
	}
	if e.Kind != "" {
		fields = append(fields, zap.String("kind", e.Kind))
	}
	if e.Target != "" {
		fields = append(fields, zap.String("target", e.Target))
	}
	if e.Duration > 0 {
		fields = append(fields, zap.Int64("dur_ms", e.Duration.Milliseconds()))
	}
	if e.Error != "" {
		fields = append(fields, zap.String("error", e.Error))
	}
	for k, v := range e.Fields {
		fields = append(fields, zap.Any(k, v))
	}
	auditLogger.Info(string(e.EventType), fields...)
}
