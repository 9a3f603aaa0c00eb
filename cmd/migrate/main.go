package main

import (
	"github.com/sirupsen/logrus"

	"github.com/ivanoskov/driver_bot/internal/config"
	"github.com/ivanoskov/driver_bot/internal/repository"
)

func main() {
	cfg, err := config.LoadDatabaseConfig()
	if err != nil {
		logrus.WithError(err).Fatal("LoadDatabaseConfig")
		return
	}

	result, err := repository.Migrate(cfg.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("repository.Migrate")
		return
	}

	logrus.WithFields(logrus.Fields{
		"preMigrationVersion":  result.From,
		"postMigrationVersion": result.To,
	}).Info("Migration status")
}
