package prompt

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/fiche/internal/models"
)

// instructionFiles maps each subject to its instruction file name inside
// the instructions directory. Missing files simply mean no custom
// instructions for that subject.
var instructionFiles = map[models.Subject]string{
	models.SubjectPhysics:    "physique-chimie.txt",
	models.SubjectMath:       "mathematiques.txt",
	models.SubjectBiology:    "svt.txt",
	models.SubjectHistory:    "histoire-geo.txt",
	models.SubjectFrench:     "francais.txt",
	models.SubjectPhilosophy: "philosophie.txt",
	models.SubjectLanguages:  "langues.txt",
	models.SubjectEconomics:  "economie.txt",
	models.SubjectOther:      "autre.txt",
}

// Instructions holds per-subject custom instruction text, loaded from a
// directory of plain-text files and hot-reloaded while the app runs.
// Subjects without a file fall back to the optional fallback source,
// typically the instructions stored in the user settings.
type Instructions struct {
	dir string

	mu        sync.RWMutex
	bySubject map[models.Subject]string
	fallback  func(models.Subject) string
}

// LoadInstructions reads the instruction directory. A missing or empty
// directory is not an error; it means no subject carries extra
// instructions.
func LoadInstructions(dir string) (*Instructions, error) {
	ins := &Instructions{dir: dir, bySubject: map[models.Subject]string{}}
	if dir == "" {
		return ins, nil
	}
	if err := ins.reload(); err != nil {
		return nil, err
	}
	return ins, nil
}

// SetFallback installs a secondary instruction source consulted when no
// file covers a subject.
func (ins *Instructions) SetFallback(f func(models.Subject) string) {
	ins.mu.Lock()
	ins.fallback = f
	ins.mu.Unlock()
}

// For returns the custom instructions for a subject, or "".
func (ins *Instructions) For(s models.Subject) string {
	ins.mu.RLock()
	text := ins.bySubject[s]
	fallback := ins.fallback
	ins.mu.RUnlock()
	if text == "" && fallback != nil {
		return fallback(s)
	}
	return text
}

func (ins *Instructions) reload() error {
	loaded := map[models.Subject]string{}
	for subject, name := range instructionFiles {
		data, err := os.ReadFile(filepath.Join(ins.dir, name))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		if text := strings.TrimSpace(string(data)); text != "" {
			loaded[subject] = text
		}
	}
	ins.mu.Lock()
	ins.bySubject = loaded
	ins.mu.Unlock()
	return nil
}

// Watch starts an fsnotify watcher on the instructions directory and
// reloads the whole set after each change, debounced, until ctx is
// cancelled. Edits take effect on the next generation without a restart.
func (ins *Instructions) Watch(ctx context.Context, logger *slog.Logger) error {
	if ins.dir == "" {
		<-ctx.Done()
		return nil
	}
	if _, err := os.Stat(ins.dir); err != nil {
		logger.Info("instructions: directory missing, watcher disabled", slog.String("dir", ins.dir))
		<-ctx.Done()
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(ins.dir); err != nil {
		return err
	}
	logger.Info("instructions: watching", slog.String("dir", ins.dir))

	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(200 * time.Millisecond)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("instructions: watcher stopped")
			return nil

		case <-reloadCh:
			if err := ins.reload(); err != nil {
				logger.Warn("instructions: reload failed", slog.String("error", err.Error()))
			} else {
				logger.Debug("instructions: reloaded")
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, ".txt") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				scheduleReload()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("instructions: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}
