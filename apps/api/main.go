package main

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	_ "net/http/pprof" // register the /debug/pprof handlers
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"

	echoapi "github.com/trezcool/ead/apps/api/echo"
	"github.com/trezcool/ead/core"
	"github.com/trezcool/ead/core/discipline"
	"github.com/trezcool/ead/core/media"
	"github.com/trezcool/ead/core/user"
	emailsvc "github.com/trezcool/ead/services/email"
	logsvc "github.com/trezcool/ead/services/logger"
	"github.com/trezcool/ead/services/vimeo"
	"github.com/trezcool/ead/storage/database"
	dummydb "github.com/trezcool/ead/storage/database/dummy"
	sqlxrepos "github.com/trezcool/ead/storage/database/sqlx"
)

// memoryEngine keeps everything in memory; data is lost on restart.
const memoryEngine = "memory"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(logsvc.NewLocalLogger(conf), conf)
	logger.Enable(!conf.Debug)

	repos, closeDB, err := setUpRepositories(conf)
	if err != nil {
		logger.Error("setting up database", err)
		return err
	}
	defer closeDB()

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	resolver := media.NewResolver(media.Options{
		DriveFallbackEmbed: conf.Media.DriveFallbackEmbed,
		DocumentViewerURL:  conf.Media.DocumentViewerURL,
		PDFViewerHosts:     conf.Media.PDFViewerHosts,
	})
	thumbs := vimeo.NewClient(conf.Media.VimeoOEmbedURL, conf.Media.ThumbnailTimeout, nil)

	usrSvc := user.NewService(repos.users)
	dscSvc := discipline.NewService(
		repos.disciplines,
		mailSvc,
		logger,
		discipline.WithResolver(resolver),
		discipline.WithThumbnailFetcher(thumbs),
	)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	user.InitValidators(validate, translator)
	discipline.InitValidators(validate, translator)

	if err = core.ParseEmailTemplates(); err != nil {
		return errors.Wrap(err, "parsing email templates")
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	server := echoapi.NewServer(&echoapi.Options{
		Conf:          conf,
		Logger:        logger,
		Validate:      validate,
		Translator:    translator,
		UserSvc:       usrSvc,
		DisciplineSvc: dscSvc,
		Resolver:      resolver,
		Shutdown:      signalShutdown(shutdown),
	})

	return serve(server, shutdown, conf.Server.ShutdownTimeout, logger, conf.Server.Address)
}

// signalShutdown lets the API ask for the same graceful shutdown as SIGTERM.
func signalShutdown(shutdown chan<- os.Signal) func() {
	return func() {
		select {
		case shutdown <- syscall.SIGTERM:
		default: // a shutdown is already pending
		}
	}
}

// serve runs server until it fails or a signal arrives on shutdown,
// then gives outstanding requests up to timeout to complete.
func serve(server echoapi.Server, shutdown <-chan os.Signal, timeout time.Duration, logger core.Logger, addr string) error {
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("API listening on " + addr)
		serverErrors <- server.Start()
	}()

	select {
	case err := <-serverErrors:
		if errors.Cause(err) != http.ErrServerClosed {
			return errors.Wrap(err, "server error")
		}
		return nil

	case sig := <-shutdown:
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := server.Stop(ctx); err != nil {
			return errors.Wrap(err, "could not stop server gracefully")
		}
	}
	return nil
}

type repositories struct {
	users       user.Repository
	disciplines discipline.Repository
}

func setUpRepositories(conf *core.Config) (repositories, func(), error) {
	if conf.Database.Engine == memoryEngine {
		db := dummydb.Open()
		return repositories{
			users:       dummydb.NewUserRepository(db),
			disciplines: dummydb.NewDisciplineRepository(db),
		}, func() {}, nil
	}

	db, err := database.Setup(context.Background(), conf)
	if err != nil {
		return repositories{}, nil, err
	}
	return repositories{
		users:       sqlxrepos.NewUserRepository(db),
		disciplines: sqlxrepos.NewDisciplineRepository(db),
	}, func() { _ = db.Close() }, nil
}
