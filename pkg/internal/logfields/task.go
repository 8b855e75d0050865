package logfields

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/releasehound/releasehound/pkg/task"
)

// Task provides the standard log fields for a watched task.
func Task(t task.Task) logrus.Fields {
	return logrus.Fields{
		"task":   t.ComponentID,
		"target": t.MarkerKey(),
	}
}

// Attempt provides the standard log fields for a download attempt.
func Attempt(componentID string, currentTry, maxTries int) logrus.Fields {
	return logrus.Fields{
		"task": componentID,
		"try":  fmt.Sprintf("%d/%d", currentTry, maxTries),
	}
}
