package janitor

import (
	"os"
	"path/filepath"

	"github.com/robfig/cron/v3"

	"jtxboard/internal/utils"
	"jtxboard/store"
)

// Janitor runs the periodic housekeeping jobs: purging synced tombstones and
// sweeping attachment files that lost their backing row. Both jobs are
// idempotent and best-effort; a re-run after a partial sweep finds less to do,
// never errors on work already done.
type Janitor struct {
	db            *store.Database
	attachmentDir string
	cron          *cron.Cron
}

func New(db *store.Database, attachmentDir string) *Janitor {
	return &Janitor{
		db:            db,
		attachmentDir: attachmentDir,
		cron:          cron.New(),
	}
}

// Start schedules the cleanup run with the given cron expression and begins
// executing in the background.
func (j *Janitor) Start(schedule string) error {
	_, err := j.cron.AddFunc(schedule, func() {
		if err := j.RunOnce(); err != nil {
			utils.Errorf("cleanup run failed: %v", err)
		}
	})
	if err != nil {
		return err
	}
	j.cron.Start()
	utils.Debugf("cleanup scheduled: %s", schedule)
	return nil
}

// Stop halts the schedule; a job in flight finishes.
func (j *Janitor) Stop() {
	j.cron.Stop()
}

// RunOnce executes all housekeeping jobs immediately.
func (j *Janitor) RunOnce() error {
	return utils.LogOperation("cleanup", func() error {
		purged, err := j.db.PurgeSyncedTombstones()
		if err != nil {
			return err
		}
		if purged > 0 {
			utils.Infof("purged %d synced tombstones", purged)
			if err := j.db.Vacuum(); err != nil {
				utils.Warnf("vacuum after purge failed: %v", err)
			}
		}

		swept, err := j.SweepAttachmentFiles()
		if err != nil {
			return err
		}
		if swept > 0 {
			utils.Infof("removed %d orphaned attachment files", swept)
		}
		return nil
	})
}

// SweepAttachmentFiles removes files in the attachment directory that no
// attachment row references anymore. Files already gone are not errors.
func (j *Janitor) SweepAttachmentFiles() (int, error) {
	if j.attachmentDir == "" {
		return 0, nil
	}

	entries, err := os.ReadDir(j.attachmentDir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	paths, err := j.db.ListLocalAttachmentPaths()
	if err != nil {
		return 0, err
	}
	referenced := make(map[string]bool, len(paths))
	for _, p := range paths {
		referenced[filepath.Clean(p)] = true
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(j.attachmentDir, entry.Name())
		if referenced[filepath.Clean(path)] {
			continue
		}
		if err := os.Remove(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			utils.Warnf("failed to remove orphaned attachment file %s: %v", path, err)
			continue
		}
		utils.Debugf("removed orphaned attachment file %s", path)
		removed++
	}
	return removed, nil
}
