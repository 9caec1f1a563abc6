package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/academic"
	"github.com/trezcool/academia/core/account"
	"github.com/trezcool/academia/core/session"
	captchasvc "github.com/trezcool/academia/services/captcha"
	emailsvc "github.com/trezcool/academia/services/email"
	logsvc "github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/storage/database"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
	boiledrepos "github.com/trezcool/academia/storage/database/sqlboiler"
	sqlxrepos "github.com/trezcool/academia/storage/database/sqlx"
	inmemstore "github.com/trezcool/academia/storage/session/inmem"
	redisstore "github.com/trezcool/academia/storage/session/redis"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Storage is the database along with the repositories living in it. DB is nil for the memory engine.
type Storage struct {
	dig.Out
	DB       *sqlx.DB
	Accounts account.Repository
	Academic academic.Repository
}

type depsParams struct {
	dig.In
	Validate    *validator.Validate
	Translator  ut.Translator
	AccountSvc  account.Service
	Resolver    *account.Resolver
	AcademicSvc academic.Service
	Sessions    session.Store
	Captcha     core.CaptchaVerifier
	Metrics     *echoapi.Metrics
}

func newRollbarLogger(conf *core.Config, prefix string, flags int) *logsvc.RollbarLogger {
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, prefix, flags), conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newLogger(conf *core.Config) core.Logger {
	return newRollbarLogger(conf, "API : ", log.LstdFlags)
}

func newDBLogger(conf *core.Config) core.Logger {
	return newRollbarLogger(conf, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
}

func newStorage(conf *core.Config, loggerParam DBLoggerParam) Storage {
	if conf.Database.Engine == database.Memory {
		loggerParam.Logger.Warn("using the memory database engine: data is lost on exit")
		db := inmemdb.Open()
		return Storage{
			Accounts: inmemdb.NewAccountRepository(db),
			Academic: inmemdb.NewAcademicRepository(db),
		}
	}

	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}
		if err = database.Ping(db.DB); err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return Storage{
		DB:       db,
		Accounts: boiledrepos.NewAccountRepository(db),
		Academic: sqlxrepos.NewAcademicRepository(db),
	}
}

// newSessionStore keeps the sessions in redis when an address is configured, in memory otherwise.
func newSessionStore(conf *core.Config, logger core.Logger) session.Store {
	if conf.Redis.Address == "" {
		return inmemstore.NewStore()
	}

	client := redisstore.NewClient(conf)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatal(fmt.Sprintf("connecting to redis: %v", err), err)
	}
	return redisstore.NewStore(client)
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newCatalog(repo academic.Repository) account.Catalog { return repo }

func newStaffDirectory(svc account.Service) academic.StaffDirectory { return svc }

func newDeps(p depsParams) *echoapi.Deps {
	return &echoapi.Deps{
		Validate:    p.Validate,
		Translator:  p.Translator,
		AccountSvc:  p.AccountSvc,
		Resolver:    p.Resolver,
		AcademicSvc: p.AcademicSvc,
		Sessions:    p.Sessions,
		Captcha:     p.Captcha,
		Metrics:     p.Metrics,
	}
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newStorage))
	must(c.Provide(newSessionStore))
	must(c.Provide(newEmailService))
	must(c.Provide(newCatalog))
	must(c.Provide(newStaffDirectory))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(captchasvc.NewVerifier))
	must(c.Provide(account.NewService))
	must(c.Provide(account.NewResolver))
	must(c.Provide(academic.NewService))
	must(c.Provide(echoapi.NewMetrics))
	must(c.Provide(newDeps))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
