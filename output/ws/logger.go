package ws

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "ws")
