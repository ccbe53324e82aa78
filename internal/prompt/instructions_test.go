package prompt

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/fiche/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadInstructions(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "mathematiques.txt"), []byte("  Encadrer les formules.\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ins, err := LoadInstructions(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got := ins.For(models.SubjectMath); got != "Encadrer les formules." {
		t.Errorf("For(math) = %q", got)
	}
	if got := ins.For(models.SubjectFrench); got != "" {
		t.Errorf("For(french) = %q, want empty", got)
	}
}

func TestLoadInstructionsMissingDir(t *testing.T) {
	ins, err := LoadInstructions(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("missing dir should not fail: %v", err)
	}
	if got := ins.For(models.SubjectMath); got != "" {
		t.Errorf("For = %q, want empty", got)
	}
}

func TestLoadInstructionsEmptyDirDisabled(t *testing.T) {
	ins, err := LoadInstructions("")
	if err != nil {
		t.Fatal(err)
	}
	if got := ins.For(models.SubjectOther); got != "" {
		t.Errorf("For = %q, want empty", got)
	}
}

func TestFallbackCoversSubjectsWithoutFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "mathematiques.txt"), []byte("Encadrer les formules."), 0o644); err != nil {
		t.Fatal(err)
	}

	ins, err := LoadInstructions(dir)
	if err != nil {
		t.Fatal(err)
	}
	ins.SetFallback(func(s models.Subject) string {
		if s == models.SubjectFrench {
			return "Citer les textes étudiés."
		}
		return ""
	})

	// The file wins over the fallback.
	if got := ins.For(models.SubjectMath); got != "Encadrer les formules." {
		t.Errorf("For(math) = %q", got)
	}
	if got := ins.For(models.SubjectFrench); got != "Citer les textes étudiés." {
		t.Errorf("For(french) = %q", got)
	}
	if got := ins.For(models.SubjectBiology); got != "" {
		t.Errorf("For(svt) = %q, want empty", got)
	}
}

func TestWatchReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	ins, err := LoadInstructions(dir)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = ins.Watch(ctx, discardLogger())
		close(done)
	}()
	// Give the watcher time to register.
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "svt.txt"), []byte("Schémas obligatoires."), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if ins.For(models.SubjectBiology) == "Schémas obligatoires." {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if got := ins.For(models.SubjectBiology); got != "Schémas obligatoires." {
		t.Errorf("For(svt) = %q after reload", got)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
