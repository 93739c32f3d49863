package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/bitacora/apps/api/echo"
	"github.com/trezcool/bitacora/core"
	"github.com/trezcool/bitacora/core/compliance"
	emailsvc "github.com/trezcool/bitacora/services/email"
	logsvc "github.com/trezcool/bitacora/services/logger"
	"github.com/trezcool/bitacora/storage"
	firestoredb "github.com/trezcool/bitacora/storage/firestore"
)

type StoreLoggerParam struct {
	dig.In
	Logger core.Logger `name:"storeLogger"`
}

// StoreResult is the opened Record Store and the func releasing it.
type StoreResult struct {
	dig.Out
	Repo  compliance.Repository
	Close storage.CloseFunc
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newStoreLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "STORE : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newStore(conf *core.Config, loggerParam StoreLoggerParam) StoreResult {
	repo, closeFn, err := storage.Open(context.Background(), conf, loggerParam.Logger)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("opening %s store: %v", conf.Store.Driver, err), err)
	}
	return StoreResult{Repo: repo, Close: closeFn}
}

func newValidator(conf *core.Config) (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	compliance.InitValidators(validate, translator, compliance.NewCatalog(conf))
	return validate, translator
}

// newVerifier returns the ID token verifier of the firebase auth mode (nil in any other mode).
func newVerifier(conf *core.Config) (echoapi.IDTokenVerifier, error) {
	if conf.Auth.Mode != core.AuthFirebase {
		return nil, nil
	}
	ctx := context.Background()
	app, err := firestoredb.NewApp(ctx, conf)
	if err != nil {
		return nil, err
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "initializing firebase auth")
	}
	return client, nil
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newServer(
	conf *core.Config,
	logger core.Logger,
	validate *validator.Validate,
	translator ut.Translator,
	svc *compliance.Service,
	mailer core.EmailService,
	verifier echoapi.IDTokenVerifier,
) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		Validate:   validate,
		Translator: translator,
		Service:    svc,
		Mailer:     mailer,
		Verifier:   verifier,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newStoreLogger, dig.Name("storeLogger")))
	must(c.Provide(newStore))
	must(c.Provide(newValidator))
	must(c.Provide(newVerifier))
	must(c.Provide(newEmailService))
	must(c.Provide(compliance.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
