package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/podunit/internal/appconfig"
	"github.com/example/podunit/internal/execx"
	"github.com/example/podunit/internal/logging"
	"github.com/example/podunit/internal/systemd"
	"github.com/example/podunit/internal/version"
	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// rootState is shared by every subcommand once flags are resolved.
type rootState struct {
	opts     appconfig.Options
	logLevel string
	log      logr.Logger
	runner   execx.Runner
}

func newRootCommand() *cobra.Command {
	return newRootCommandWithRunner(nil)
}

func newRootCommandWithRunner(runner execx.Runner) *cobra.Command {
	st := &rootState{opts: appconfig.Defaults(), logLevel: "info", runner: runner}
	cmd := &cobra.Command{
		Use:           "podunit",
		Short:         "Run compose projects under podman with injected secrets and generated systemd units",
		Long:          "podunit discovers compose projects, injects secrets and parameters from a remote store, recreates the containers and writes quadlet units so they survive reboots.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Get().String(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return st.init(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringVar(&st.opts.BaseDir, "base-dir", st.opts.BaseDir, "Directory holding one sub-directory per compose project")
	pf.StringVar(&st.opts.ProjectID, "project-id", st.opts.ProjectID, "Cloud project that owns the secrets")
	pf.StringVar(&st.opts.ServiceAccountKey, "service-account-key", st.opts.ServiceAccountKey, "Service account key file used to authenticate gcloud")
	pf.StringVar(&st.opts.Backend, "backend", st.opts.Backend, "Secret backend or provider name from the config file (gcloud, vault, file)")
	pf.StringVar(&st.opts.SecretsRoot, "secrets-root", st.opts.SecretsRoot, "RAM-backed directory for runtime secret files")
	pf.StringVar(&st.opts.SecretsPrefix, "secrets-prefix", st.opts.SecretsPrefix, "Name prefix of per-project secret directories")
	pf.StringVar(&st.opts.UnitDir, "unit-dir", st.opts.UnitDir, "Directory for generated .container units")
	pf.StringVar(&st.opts.UserUnitDir, "user-unit-dir", st.opts.UserUnitDir, "Directory for the secrets loader service unit")
	pf.StringVar(&st.opts.LoaderUnit, "loader-unit", st.opts.LoaderUnit, "Name of the secrets loader service unit")
	pf.StringVar(&st.opts.HistoryPath, "history", st.opts.HistoryPath, "SQLite database recording managed runs")
	pf.StringVar(&st.opts.ComposeCommand, "compose-command", st.opts.ComposeCommand, "Compose CLI invocation")
	pf.StringVar(&st.opts.ContainerCommand, "container-command", st.opts.ContainerCommand, "Container runtime CLI")
	pf.StringVar(&st.opts.UnitGenerator, "unit-generator", st.opts.UnitGenerator, "Unit generator CLI")
	pf.StringVar(&st.opts.ServiceManager, "service-manager", st.opts.ServiceManager, "Service manager CLI")
	pf.StringVar(&st.logLevel, "log-level", st.logLevel, "Log level (debug, info, warn, error)")
	pf.StringVar(&st.opts.ConfigPath, "config", "", "Config file (default ~/.config/podunit/config.yaml)")
	hideFlags(pf, []string{"secrets-prefix", "loader-unit", "compose-command", "container-command", "unit-generator", "service-manager"})

	cmd.AddCommand(
		newListCommand(st),
		newUpCommand(st),
		newFetchSecretsCommand(st),
		newCleanupCommand(st),
		newCheckCommand(st),
		newHistoryCommand(st),
		newEnvCommand(),
		newVersionCommand(),
	)
	cmd.Example = `  # Show every project under ~/podman_compose
  podunit list

  # Start all enabled projects
  podunit up --all

  # Preview the rewritten manifests with masked secrets
  podunit up kener --dry-run --show-secrets`
	return cmd
}

// init resolves flags against PODUNIT_* variables and the config file, then
// prepares the logger and the secrets loader unit.
func (st *rootState) init(cmd *cobra.Command) error {
	if err := bindViper(st.opts.ConfigPath, cmd); err != nil {
		return err
	}
	if err := st.opts.Normalize(); err != nil {
		return err
	}
	log, err := logging.NewTo(cmd.ErrOrStderr(), st.logLevel)
	if err != nil {
		return err
	}
	st.log = log
	if st.runner == nil {
		st.runner = execx.NewRunner()
	}
	return st.ensureLoaderUnit(cmd)
}

func (st *rootState) ensureLoaderUnit(cmd *cobra.Command) error {
	path := filepath.Join(st.opts.UserUnitDir, st.opts.LoaderUnit)
	exe, err := os.Executable()
	if err != nil {
		exe = "podunit"
	}
	created, err := systemd.EnsureLoaderUnit(path, exe+" fetch-secrets")
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(cmd.ErrOrStderr(), "Created secrets loader unit at %s\n", path)
	} else {
		st.log.V(1).Info("secrets loader unit present", "path", path)
	}
	return nil
}

func bindViper(explicitPath string, commands ...*cobra.Command) error {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetEnvPrefix("PODUNIT")
	v.AutomaticEnv()
	if explicitPath == "" {
		explicitPath = os.Getenv("PODUNIT_CONFIG")
	}
	configureConfigFile(v, explicitPath)

	for _, cmd := range commands {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return err
		}
	}
	if err := readConfigFile(v, explicitPath != ""); err != nil {
		return err
	}
	for _, cmd := range commands {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if f.Changed || !v.IsSet(f.Name) {
				return
			}
			val := fmt.Sprintf("%v", v.Get(f.Name))
			if val != "" {
				_ = f.Value.Set(val)
			}
		})
	}
	return nil
}

func configureConfigFile(v *viper.Viper, explicitPath string) {
	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
		return
	}
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, dir := range configSearchDirs() {
		v.AddConfigPath(dir)
	}
}

func readConfigFile(v *viper.Viper, strict bool) error {
	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if errors.As(err, &cfgErr) && !strict {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func hideFlags(fs *pflag.FlagSet, names []string) {
	for _, name := range names {
		_ = fs.MarkHidden(name)
	}
}

func configSearchDirs() []string {
	added := make(map[string]struct{})
	var dirs []string
	add := func(path string) {
		if path == "" {
			return
		}
		if _, ok := added[path]; ok {
			return
		}
		added[path] = struct{}{}
		dirs = append(dirs, path)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		add(filepath.Join(xdg, "podunit"))
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		add(filepath.Join(home, ".config", "podunit"))
	}
	return dirs
}
