package sqlitedb

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "sqlitedb")
