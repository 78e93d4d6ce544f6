package skills

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/crewkit/crewkit/pkg/logger"
)

// Discovery scans configured directories for skill definitions in a
// fixed priority order: project, then user, then each custom path.
// Names already registered are skipped, so discovery never overwrites
// an explicit registration and repeated calls return nothing new.
type Discovery struct {
	projectDir string
	userDir    string
	customDirs []string
}

// Option is a function that configures a Discovery
type Option func(*Discovery) error

// WithProjectDir sets the project-scope skill directory
func WithProjectDir(dir string) Option {
	return func(d *Discovery) error {
		d.projectDir = dir
		return nil
	}
}

// WithUserDir sets the user-scope skill directory
func WithUserDir(dir string) Option {
	return func(d *Discovery) error {
		d.userDir = dir
		return nil
	}
}

// WithCustomDirs sets additional custom-scope skill directories
func WithCustomDirs(dirs ...string) Option {
	return func(d *Discovery) error {
		d.customDirs = dirs
		return nil
	}
}

// WithDefaultDirs initializes project and user directories to the
// crewkit conventions
func WithDefaultDirs() Option {
	return func(d *Discovery) error {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return errors.Wrap(err, "failed to get user home directory")
		}
		d.projectDir = filepath.Join(".crewkit", "skills")
		d.userDir = filepath.Join(homeDir, ".crewkit", "skills")
		return nil
	}
}

// NewDiscovery creates a discovery instance. With no options the default
// crewkit directories are used.
func NewDiscovery(opts ...Option) (*Discovery, error) {
	d := &Discovery{}

	if len(opts) == 0 {
		opts = []Option{WithDefaultDirs()}
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// tier pairs a directory with the scope its skills are discovered under
type tier struct {
	dir   string
	scope Scope
}

func (d *Discovery) tiers() []tier {
	out := []tier{}
	if d.projectDir != "" {
		out = append(out, tier{d.projectDir, ScopeProject})
	}
	if d.userDir != "" {
		out = append(out, tier{d.userDir, ScopeUser})
	}
	for _, dir := range d.customDirs {
		out = append(out, tier{dir, ScopeCustom})
	}
	return out
}

// Discover scans all tiers and returns only descriptors whose names are
// neither registered nor already seen earlier in this call. Definition
// files that fail to load are aggregated into the returned error while
// the rest of the scan proceeds.
func (d *Discovery) Discover(ctx context.Context, registered func(name string) bool, validator *Validator) ([]*Descriptor, error) {
	var found []*Descriptor
	var merr *multierror.Error
	seen := make(map[string]bool)

	for _, t := range d.tiers() {
		entries, err := os.ReadDir(t.dir)
		if err != nil {
			logger.G(ctx).WithField("dir", t.dir).Debug("Skill directory not readable, skipping")
			continue
		}

		for _, entry := range entries {
			entryPath := filepath.Join(t.dir, entry.Name())
			info, err := os.Stat(entryPath)
			if err != nil || !info.IsDir() {
				continue
			}

			skillPath := filepath.Join(entryPath, SkillFileName)
			desc, err := LoadDescriptor(skillPath)
			if err != nil {
				if le, ok := err.(*LoadError); ok && le.NotFound() {
					continue // not a skill directory
				}
				merr = multierror.Append(merr, err)
				continue
			}

			if seen[desc.Name] || (registered != nil && registered(desc.Name)) {
				continue
			}

			desc.Scope = t.scope
			if validator != nil {
				desc.Trust = validator.ResolveTrust(t.scope, entryPath)
			} else {
				desc.Trust = t.scope.DefaultTrust()
			}

			seen[desc.Name] = true
			found = append(found, desc)
		}
	}

	return found, merr.ErrorOrNil()
}

// Watch re-runs discovery whenever a definition file under any
// configured directory changes, invoking onFound with the newly found
// descriptors. It blocks until ctx is done.
func (d *Discovery) Watch(ctx context.Context, registered func(name string) bool, validator *Validator, onFound func([]*Descriptor)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create filesystem watcher")
	}
	defer watcher.Close()

	watching := false
	for _, t := range d.tiers() {
		if err := watcher.Add(t.dir); err != nil {
			logger.G(ctx).WithField("dir", t.dir).WithError(err).Debug("Cannot watch skill directory")
			continue
		}
		watching = true
	}
	if !watching {
		return errors.New("no skill directories available to watch")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			found, derr := d.Discover(ctx, registered, validator)
			if derr != nil {
				logger.G(ctx).WithError(derr).Warn("Discovery after filesystem change reported errors")
			}
			if len(found) > 0 && onFound != nil {
				onFound(found)
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.G(ctx).WithError(werr).Warn("Filesystem watcher error")
		}
	}
}
