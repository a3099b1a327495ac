package server

import (
	"context"
	"fmt"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"cdv/fetch"
	"cdv/session"
	"cdv/state"
)

// Run serves the deck viewer for the corpus given as the command argument.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)

	if cmd.Args().Len() == 0 {
		return fmt.Errorf("no corpus source specified")
	}
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many sources", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}
	source := cmd.Args().Get(0)

	src, err := fetch.New(source, env.Log)
	if err != nil {
		return err
	}
	if c, ok := src.(*fetch.Archive); ok {
		defer func() {
			err = multierr.Append(err, c.Close())
		}()
	}

	ctrl := session.NewController(fetch.NewCache(src, env.Log), env.Mode, env.Log)

	root, err := ctrl.LoadManifest(ctx, env.Cfg.Corpus.ManifestName)
	if err != nil {
		return err
	}
	if err := ctrl.LoadRootModels(ctx, env.Cfg.Corpus.RootModelsName); err != nil {
		return err
	}

	env.Log.Info("Opened corpus",
		zap.String("source", source),
		zap.String("root", root.Name),
		zap.Stringer("mode", env.Mode))

	srv, err := NewServer(env.Cfg, ctrl, root, env.Log)
	if err != nil {
		return err
	}
	return srv.Serve(ctx)
}
