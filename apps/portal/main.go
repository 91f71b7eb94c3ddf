package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/bbpbat/portal/core"
	"github.com/bbpbat/portal/core/attendance"
	"github.com/bbpbat/portal/core/program"
	logsvc "github.com/bbpbat/portal/services/logger"
	notifysvc "github.com/bbpbat/portal/services/notify"
	"github.com/bbpbat/portal/services/portalapi"
	sessionstore "github.com/bbpbat/portal/storage/session"
)

func main() {
	defer os.Exit(0)

	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stderr, "PORTAL : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)
	program.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		conf:       conf,
		api:        portalapi.NewClient(conf, logger),
		store:      sessionstore.NewFileStore(conf.Session.Path),
		notifier:   notifysvc.NewConsoleNotifier(os.Stdout, !conf.Debug),
		out:        os.Stdout,
		validate:   validate,
		translator: translator,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			log.New(os.Stderr, "", 0).Printf("\nerror: %s\n", cli.userMessage(err))
		}
		os.Exit(1)
	}
}
