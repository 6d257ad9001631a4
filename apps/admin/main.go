package main

import (
	"context"
	"os"

	"github.com/trezcool/ead/core"
	"github.com/trezcool/ead/core/media"
	"github.com/trezcool/ead/core/user"
	logsvc "github.com/trezcool/ead/services/logger"
	"github.com/trezcool/ead/storage/database"
	sqlxrepos "github.com/trezcool/ead/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewLocalLogger(conf)

	cli := &commandLine{
		out: os.Stdout,
		resolver: media.NewResolver(media.Options{
			DriveFallbackEmbed: conf.Media.DriveFallbackEmbed,
			DocumentViewerURL:  conf.Media.DocumentViewerURL,
			PDFViewerHosts:     conf.Media.PDFViewerHosts,
		}),
	}

	var closeDB func()
	cli.setUpDB = func() error {
		ctx := context.Background()
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return err
		}
		db, err := database.Open(ctx, conf)
		if err != nil {
			return err
		}
		closeDB = func() { _ = db.Close() }
		cli.db = db.DB
		cli.usrSvc = user.NewService(sqlxrepos.NewUserRepository(db))
		return nil
	}

	err := cli.run(os.Args)
	if closeDB != nil {
		closeDB()
	}
	if err != nil {
		if err != errHelp {
			logger.WithError(err).Error("admin command failed")
		}
		os.Exit(1)
	}
}
