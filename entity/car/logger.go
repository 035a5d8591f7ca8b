package car

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "car")
