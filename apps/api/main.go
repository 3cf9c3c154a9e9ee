package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // register the /debug/pprof handlers
	"os"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"

	echoapi "github.com/huyld1504/SchoolMedicalCareSystem-sub005/apps/api/echo"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/student"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/user"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/core/vaccination"
	appfs "github.com/huyld1504/SchoolMedicalCareSystem-sub005/fs"
	emailsvc "github.com/huyld1504/SchoolMedicalCareSystem-sub005/services/email"
	logsvc "github.com/huyld1504/SchoolMedicalCareSystem-sub005/services/logger"
	metricsvc "github.com/huyld1504/SchoolMedicalCareSystem-sub005/services/metrics"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/storage/database"
	inmemdb "github.com/huyld1504/SchoolMedicalCareSystem-sub005/storage/database/inmem"
	sqlxrepos "github.com/huyld1504/SchoolMedicalCareSystem-sub005/storage/database/sqlx"
	"github.com/huyld1504/SchoolMedicalCareSystem-sub005/storage/document"
	mongorepos "github.com/huyld1504/SchoolMedicalCareSystem-sub005/storage/document/mongo"
)

type repositories struct {
	users          user.Repository
	students       student.Repository
	campaigns      vaccination.CampaignRepository
	participations vaccination.ParticipationRepository
	close          func() error
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up storage
	repos, err := setUpStorage(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up storage: %v", err), err)
	}
	defer func() {
		if err = repos.close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	metrics := metricsvc.New()

	usrSvc := user.NewService(repos.users)
	studentSvc := student.NewService(repos.students, usrSvc)
	vaccSvc := vaccination.NewService(
		repos.campaigns,
		repos.participations,
		studentSvc,
		vaccination.WithNotifier(vaccination.NewEmailNotifier(mailSvc, studentSvc, usrSvc, logger)),
		vaccination.WithMetrics(metrics),
		vaccination.WithLogger(logger),
		vaccination.WithPagination(conf.Pagination),
	)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := core.NewValidator()
	user.RegisterValidators(validate, translator)

	core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, logger, true /* strict */)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("storage").Set(conf.Storage)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:           conf,
			Logger:         logger,
			UserSvc:        usrSvc,
			StudentSvc:     studentSvc,
			VaccinationSvc: vaccSvc,
			Validate:       validate,
			Translator:     translator,
			Metrics:        metrics.Handler(),
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpStorage keeps users and students in postgres and the vaccination workflow in mongo,
// or everything in memory when conf.Storage is "memory".
func setUpStorage(conf *core.Config) (*repositories, error) {
	if conf.Storage == "memory" {
		db := inmemdb.NewDB()
		return &repositories{
			users:          inmemdb.NewUserRepository(db),
			students:       inmemdb.NewStudentRepository(db),
			campaigns:      inmemdb.NewCampaignRepository(db),
			participations: inmemdb.NewParticipationRepository(db),
			close:          func() error { return nil },
		}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), conf.DocumentStore.OpTimeout)
	defer cancel()

	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, errors.Wrap(err, "creating database")
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = database.Migrate(db.DB, "up"); err != nil {
		_ = db.Close()
		return nil, err
	}

	client, docDB, err := document.Open(ctx, conf)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err = document.EnsureIndexes(ctx, docDB); err != nil {
		_ = db.Close()
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return &repositories{
		users:          sqlxrepos.NewUserRepository(db),
		students:       sqlxrepos.NewStudentRepository(db),
		campaigns:      mongorepos.NewCampaignRepository(docDB),
		participations: mongorepos.NewParticipationRepository(docDB),
		close: func() error {
			if err := disconnect(client, conf); err != nil {
				_ = db.Close()
				return err
			}
			return db.Close()
		},
	}, nil
}

func disconnect(client *mongo.Client, conf *core.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), conf.DocumentStore.OpTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}
