package main

import (
	"context"
	"os"
	"os/user"
	"strings"

	"github.com/example/podunit/internal/appconfig"
	"github.com/example/podunit/internal/history"
	"github.com/example/podunit/internal/manager"
	"github.com/example/podunit/internal/podman"
	"github.com/example/podunit/internal/secretstore"
	"github.com/example/podunit/internal/systemd"
	"github.com/example/podunit/internal/unitgen"
	"github.com/example/podunit/pkg/compose"
	"github.com/spf13/cobra"
)

// newManager assembles a manager from the resolved options. The returned
// func closes the history database.
func (st *rootState) newManager(cmd *cobra.Command) (*manager.Manager, func(), error) {
	composeArgv, err := appconfig.SplitCommand(st.opts.ComposeCommand)
	if err != nil {
		return nil, nil, err
	}
	containerArgv, err := appconfig.SplitCommand(st.opts.ContainerCommand)
	if err != nil {
		return nil, nil, err
	}
	generatorArgv, err := appconfig.SplitCommand(st.opts.UnitGenerator)
	if err != nil {
		return nil, nil, err
	}
	serviceArgv, err := appconfig.SplitCommand(st.opts.ServiceManager)
	if err != nil {
		return nil, nil, err
	}

	m := &manager.Manager{
		Options:  st.opts,
		Sources:  st.sourceFunc(),
		Compose:  podman.NewCompose(st.runner, composeArgv, containerArgv),
		Services: systemd.NewManager(st.runner, serviceArgv),
		Units:    unitgen.NewGenerator(st.runner, generatorArgv),
		Validate: validateManifest,
		User:     currentUser(),
		Out:      cmd.OutOrStdout(),
		Log:      st.log,
	}
	closeFn := func() {}
	if store, err := history.Open(st.opts.HistoryPath); err != nil {
		st.log.Error(err, "run history disabled", "path", st.opts.HistoryPath)
	} else {
		m.History = store
		closeFn = func() { _ = store.Close() }
	}
	return m, closeFn, nil
}

func (st *rootState) sourceFunc() manager.SourceFunc {
	return func(ctx context.Context) (secretstore.Source, error) {
		cfg, baseDir, err := secretstore.LoadConfigFromApp(ctx, st.opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		return secretstore.NewSource(cfg, secretstore.Options{
			Provider:  st.opts.Backend,
			ProjectID: st.opts.ProjectID,
			KeyFile:   st.opts.ServiceAccountKey,
			BaseDir:   baseDir,
			Runner:    st.runner,
		})
	}
}

func validateManifest(ctx context.Context, projectName, path string, content []byte) error {
	_, err := compose.Validate(ctx, projectName, path, content)
	return err
}

func currentUser() string {
	if name := strings.TrimSpace(os.Getenv("USER")); name != "" {
		return name
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return ""
}
