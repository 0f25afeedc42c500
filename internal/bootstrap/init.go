// Package bootstrap prepares the user folder on first run.
package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"tradebot-config/config"
	"tradebot-config/internal/logging"
)

// ErrInitFailed wraps any failure of InitConfig
var ErrInitFailed = errors.New("can't init config file")

// Options lists what InitConfig copies and where
type Options struct {
	UserFolder          string
	UserConfigFile      string
	DefaultConfigFile   string
	ProfilesFolder      string
	DefaultProfile      string
	DefaultProfileFile  string
	DefaultProfileImage string
}

// OptionsFromConfig maps the paths section of the process configuration
func OptionsFromConfig(cfg config.PathsConfig) Options {
	return Options{
		UserFolder:          cfg.UserFolder,
		UserConfigFile:      cfg.UserConfigFile,
		DefaultConfigFile:   cfg.DefaultConfigFile,
		ProfilesFolder:      cfg.ProfilesFolder,
		DefaultProfile:      cfg.DefaultProfile,
		DefaultProfileFile:  cfg.DefaultProfileFile,
		DefaultProfileImage: cfg.DefaultProfileImage,
	}
}

// ProfileFolder is the folder the default profile is copied to
func (o Options) ProfileFolder() string {
	return filepath.Join(o.ProfilesFolder, o.DefaultProfile)
}

// NeedsInit reports whether the user configuration file is missing
func NeedsInit(opts Options) bool {
	_, err := os.Stat(opts.UserConfigFile)
	return errors.Is(err, fs.ErrNotExist)
}

// InitConfig copies the default configuration into the user folder and
// creates the default profile with its avatar. Existing user files are
// overwritten.
func InitConfig(opts Options, logger *logging.Logger) error {
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.WithComponent("Bootstrap")

	if err := initConfig(opts); err != nil {
		return fmt.Errorf("%w: %v", ErrInitFailed, err)
	}

	logger.Info("User configuration initialized",
		"config", opts.UserConfigFile,
		"profile", opts.ProfileFolder())
	return nil
}

func initConfig(opts Options) error {
	if err := os.MkdirAll(opts.UserFolder, 0755); err != nil {
		return err
	}
	if err := copyFile(opts.DefaultConfigFile, opts.UserConfigFile, 0600); err != nil {
		return err
	}

	profileFolder := opts.ProfileFolder()
	if err := os.MkdirAll(profileFolder, 0755); err != nil {
		return err
	}
	if err := copyFile(opts.DefaultProfileFile, filepath.Join(profileFolder, config.ProfileFileName), 0644); err != nil {
		return err
	}
	return copyFile(opts.DefaultProfileImage, filepath.Join(profileFolder, config.ProfileImageName), 0644)
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
