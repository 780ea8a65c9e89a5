// Package cmdutil holds the pieces shared by every plow subcommand: flag
// parsing and assembly of the components a command needs (UI, logger,
// registry client). No subcommands live here; this is the seam an external
// CLI wires into.
package cmdutil

import (
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"sync"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/cli"
	"github.com/plow-dev/plow/internal/client"
	"github.com/plow-dev/plow/internal/fs"
	"github.com/plow-dev/plow/internal/plowconfig"
	"github.com/plow-dev/plow/internal/turbopath"
	"github.com/plow-dev/plow/internal/ui"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
)

// _envLogLevel is the environment variable used to set the log level when
// no --verbosity flag is given.
const _envLogLevel = "PLOW_LOG_LEVEL"

// Helper holds configuration values passed via flag, env var or config file.
// It drives the creation of CmdBase, which is what commands actually use.
type Helper struct {
	// Version is the version of plow that is currently executing.
	Version string

	forceColor bool
	noColor    bool
	verbosity  int

	// ConfigPath is the path to the config file, public to allow overrides
	// in tests.
	ConfigPath turbopath.AbsoluteSystemPath

	cleanupsMu sync.Mutex
	cleanups   []io.Closer
}

// NewHelper returns a Helper configured with plow's default config path.
func NewHelper(version string) *Helper {
	return &Helper{
		Version:    version,
		ConfigPath: plowconfig.DefaultConfigPath(fs.GetDefaultPlowHome()),
	}
}

// RegisterCleanup saves a function to run after command execution, even if
// the command returns an error.
func (h *Helper) RegisterCleanup(cleanup io.Closer) {
	h.cleanupsMu.Lock()
	defer h.cleanupsMu.Unlock()
	h.cleanups = append(h.cleanups, cleanup)
}

// Cleanup runs the registered cleanup handlers.
func (h *Helper) Cleanup(flags *pflag.FlagSet) {
	h.cleanupsMu.Lock()
	defer h.cleanupsMu.Unlock()
	var term cli.Ui
	for _, cleanup := range h.cleanups {
		if err := cleanup.Close(); err != nil {
			if term == nil {
				term = h.getUI(flags)
			}
			term.Warn(fmt.Sprintf("failed cleanup: %v", err))
		}
	}
}

func (h *Helper) getUI(flags *pflag.FlagSet) cli.Ui {
	colorMode := ui.GetColorModeFromEnv()
	if flags.Changed("no-color") && h.noColor {
		colorMode = ui.ColorModeSuppressed
	}
	if flags.Changed("color") && h.forceColor {
		colorMode = ui.ColorModeForced
	}
	return ui.BuildColoredUi(colorMode)
}

func (h *Helper) getLogger() (hclog.Logger, error) {
	var level hclog.Level
	switch h.verbosity {
	case 0:
		if v := os.Getenv(_envLogLevel); v != "" {
			level = hclog.LevelFromString(v)
			if level == hclog.NoLevel {
				return nil, fmt.Errorf("%s value %q is not a valid log level", _envLogLevel, v)
			}
		} else {
			level = hclog.NoLevel
		}
	case 1:
		level = hclog.Info
	case 2:
		level = hclog.Debug
	default:
		level = hclog.Trace
	}

	output := ioutil.Discard
	color := hclog.ColorOff
	if level != hclog.NoLevel {
		output = os.Stderr
		color = hclog.AutoColor
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:   "plow",
		Level:  level,
		Color:  color,
		Output: output,
	}), nil
}

// AddFlags adds the flags common to every plow command to flags, binding
// them to this Helper.
func (h *Helper) AddFlags(flags *pflag.FlagSet) {
	flags.BoolVar(&h.forceColor, "color", false, "Force color usage in the terminal")
	flags.BoolVar(&h.noColor, "no-color", false, "Suppress color usage in the terminal")
	flags.CountVarP(&h.verbosity, "verbosity", "v", "verbosity")
}

// GetCmdBase assembles a CmdBase from this Helper's configuration.
func (h *Helper) GetCmdBase(flags *pflag.FlagSet) (*CmdBase, error) {
	terminal := h.getUI(flags)

	logger, err := h.getLogger()
	if err != nil {
		return nil, err
	}

	fsys := afero.NewOsFs()
	config, err := plowconfig.ReadConfigFile(fsys, h.ConfigPath)
	if err != nil {
		return nil, err
	}
	plowconfig.AddConfigFlags(config, flags)

	plowHome := fs.GetDefaultPlowHome()
	if config.PlowHome != "" {
		plowHome = turbopath.AbsoluteSystemPathFromUpstream(config.PlowHome)
	}

	registryClient := client.New(client.RemoteConfig{
		Token:  config.Token,
		APIURL: config.RegistryURL,
	}, logger, client.Opts{})

	return &CmdBase{
		UI:       terminal,
		Logger:   logger,
		PlowHome: plowHome,
		Config:   config,
		Client:   registryClient,
		Version:  h.Version,
	}, nil
}

// CmdBase encompasses the configured components common to all plow commands.
type CmdBase struct {
	UI       cli.Ui
	Logger   hclog.Logger
	PlowHome turbopath.AbsoluteSystemPath
	Config   *plowconfig.Config
	Client   *client.Client
	Version  string
}

// LogError prints an error to the UI and the logger.
func (b *CmdBase) LogError(format string, args ...interface{}) {
	err := fmt.Errorf(format, args...)
	b.Logger.Error("error", "err", err)
	b.UI.Error(fmt.Sprintf("%s %v", ui.ERROR_PREFIX, err))
}

// LogWarning logs a warning and outputs it to the UI.
func (b *CmdBase) LogWarning(prefix string, err error) {
	b.Logger.Warn(prefix, "warning", err)
	if prefix != "" {
		prefix = " " + prefix + ":"
	}
	b.UI.Warn(fmt.Sprintf("%s%s %v", ui.WARNING_PREFIX, prefix, err))
}

// LogInfo logs a message and outputs it to the UI.
func (b *CmdBase) LogInfo(msg string) {
	b.Logger.Info(msg)
	b.UI.Info(fmt.Sprintf("%s %s", ui.InfoPrefix, msg))
}
