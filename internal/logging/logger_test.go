package logging

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func resetLogging(t *testing.T) {
	t.Helper()
	CloseAll()
	CloseAudit()
	configMu.Lock()
	logsDir = ""
	config = Config{}
	configMu.Unlock()
	t.Cleanup(func() {
		CloseAll()
		CloseAudit()
		configMu.Lock()
		config = Config{}
		configMu.Unlock()
	})
}

func allCategories() []Category {
	return []Category{
		CategoryBoot,
		CategorySession,
		CategoryAPI,
		CategoryRouting,
		CategoryVoice,
		CategoryUI,
		CategoryWorkspace,
	}
}

// TestAllCategoriesLog tests that all categories create log files when debug_mode is true
func TestAllCategoriesLog(t *testing.T) {
	resetLogging(t)
	tempDir := t.TempDir()

	if err := Initialize(tempDir, Config{DebugMode: true, Level: "debug"}); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	if !IsDebugMode() {
		t.Error("Expected debug mode to be enabled")
	}

	for _, cat := range allCategories() {
		if !IsCategoryEnabled(cat) {
			t.Errorf("Category %s should be enabled", cat)
		}
		logger := Get(cat)
		logger.Info("Test info message for %s", cat)
		logger.Debug("Test debug message for %s", cat)
		logger.Warn("Test warn message for %s", cat)
		logger.Error("Test error message for %s", cat)
	}
	CloseAll()

	date := time.Now().Format("2006-01-02")
	for _, cat := range allCategories() {
		path := filepath.Join(tempDir, date+"_"+string(cat)+".log")
		data, err := os.ReadFile(path)
		if err != nil {
			t.Errorf("Expected log file for %s: %v", cat, err)
			continue
		}
		content := string(data)
		for _, want := range []string{"Test info message", "Test debug message", "Test warn message", "Test error message"} {
			if !strings.Contains(content, want) {
				t.Errorf("%s log missing %q", cat, want)
			}
		}
	}
}

func TestDebugModeOffIsSilent(t *testing.T) {
	resetLogging(t)
	tempDir := t.TempDir()

	if err := Initialize(tempDir, Config{DebugMode: false}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	Boot("should not appear")
	Routing("nor this")
	CloseAll()

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no log files, got %d", len(entries))
	}
}

func TestCategoryFilter(t *testing.T) {
	resetLogging(t)
	tempDir := t.TempDir()

	cfg := Config{DebugMode: true, Categories: map[string]bool{"voice": false}}
	if err := Initialize(tempDir, cfg); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if IsCategoryEnabled(CategoryVoice) {
		t.Error("voice should be disabled")
	}
	if !IsCategoryEnabled(CategoryAPI) {
		t.Error("categories missing from the filter default to enabled")
	}

	Voice("dropped")
	CloseAll()

	date := time.Now().Format("2006-01-02")
	if _, err := os.Stat(filepath.Join(tempDir, date+"_voice.log")); !os.IsNotExist(err) {
		t.Errorf("voice log should not exist, stat err=%v", err)
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	resetLogging(t)
	tempDir := t.TempDir()

	if err := Initialize(tempDir, Config{DebugMode: true, Level: "warn"}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	APIDebug("quiet debug")
	API("quiet info")
	Get(CategoryAPI).Warn("loud warning")
	CloseAll()

	data, err := os.ReadFile(filepath.Join(tempDir, time.Now().Format("2006-01-02")+"_api.log"))
	if err != nil {
		t.Fatalf("read api log: %v", err)
	}
	content := string(data)
	if strings.Contains(content, "quiet") {
		t.Errorf("debug/info lines leaked at warn level: %s", content)
	}
	if !strings.Contains(content, "loud warning") {
		t.Error("warning missing")
	}
}

func TestInitializeRequiresDir(t *testing.T) {
	resetLogging(t)
	if err := Initialize("", Config{DebugMode: true}); err == nil {
		t.Error("expected error for empty logs dir")
	}
}

func TestConcurrentGet(t *testing.T) {
	resetLogging(t)
	if err := Initialize(t.TempDir(), Config{DebugMode: true}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			Workspace("worker %d", i)
			Session("worker %d", i)
		}(i)
	}
	wg.Wait()

	if Get(CategoryWorkspace) != Get(CategoryWorkspace) {
		t.Error("Get should return the cached logger")
	}
}

func TestAuditLog(t *testing.T) {
	resetLogging(t)
	tempDir := t.TempDir()

	if err := Initialize(tempDir, Config{DebugMode: true}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := InitAudit(); err != nil {
		t.Fatalf("InitAudit: %v", err)
	}

	AuditAs("jdoe").PatientAction(AuditNoteSave, "p-7", time.Now(), nil)
	Audit().PatientAction(AuditPrognosis, "p-7", time.Now(), errors.New("502"))
	Audit().SessionEvent(AuditLogout, "jdoe", true)
	Audit().VoiceCommand("run-prognosis", true)
	CloseAudit()

	data, err := os.ReadFile(filepath.Join(tempDir, time.Now().Format("2006-01-02")+"_audit.log"))
	if err != nil {
		t.Fatalf("read audit log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 audit lines, got %d: %s", len(lines), data)
	}
	if !strings.Contains(lines[0], `"event":"note_save"`) || !strings.Contains(lines[0], `"user":"jdoe"`) {
		t.Errorf("unexpected first line: %s", lines[0])
	}
	if !strings.Contains(lines[1], `"error":"502"`) || !strings.Contains(lines[1], `"success":false`) {
		t.Errorf("unexpected failure line: %s", lines[1])
	}
	if !strings.Contains(lines[3], `"command":"run-prognosis"`) {
		t.Errorf("unexpected voice line: %s", lines[3])
	}
}

func TestAuditDisabledWithoutDebug(t *testing.T) {
	resetLogging(t)
	tempDir := t.TempDir()
	if err := Initialize(tempDir, Config{}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := InitAudit(); err != nil {
		t.Fatalf("InitAudit: %v", err)
	}
	Audit().SessionEvent(AuditLogin, "x", true)

	entries, _ := os.ReadDir(tempDir)
	if len(entries) != 0 {
		t.Errorf("expected no files, got %d", len(entries))
	}
}
