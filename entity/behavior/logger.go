package behavior

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "behavior")
