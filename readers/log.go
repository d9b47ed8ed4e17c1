package readers

import (
	"github.com/sirupsen/logrus"

	"github.com/notargets/goensight/mesh"
)

func logger() logrus.FieldLogger { return mesh.Logger() }
