package record

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "record")
