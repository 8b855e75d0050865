// Package execinstall installs downloaded artifacts by handing them to a
// configured install command.
package execinstall

import (
	"bufio"
	"bytes"
	"os/exec"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/releasehound/releasehound/pkg/logging"
	"github.com/releasehound/releasehound/pkg/platform"
)

// Installer runs an external command with the artifact path appended as its
// final argument, e.g. `plugctl install /path/to/artifact`.
type Installer struct {
	log  logging.Logger
	bin  string
	args []string
}

var _ platform.Installer = (*Installer)(nil)

// New creates an Installer for the given command line. The first element is
// the binary, the rest are leading arguments.
func New(log logging.Logger, command []string) (*Installer, error) {
	if len(command) == 0 || command[0] == "" {
		return nil, errors.New("install command must be provided")
	}
	return &Installer{
		log:  log,
		bin:  command[0],
		args: command[1:],
	}, nil
}

// Install runs the install command against the artifact at path.
func (i *Installer) Install(path string) error {
	args := append(append([]string{}, i.args...), path)
	cmd := exec.Command(i.bin, args...)

	var buf bytes.Buffer
	writer := bufio.NewWriter(&buf)
	cmd.Stdout = writer
	cmd.Stderr = writer

	i.log.WithField("cmd", cmd.String()).Debug("executing install command")

	if err := cmd.Run(); err != nil {
		_ = writer.Flush()
		i.log.WithFields(logrus.Fields{
			"cmd":    cmd.String(),
			"output": buf.String(),
		}).WithError(err).Error("install command failed")
		return errors.Wrap(err, "install command failed")
	}

	_ = writer.Flush()
	if buf.Len() > 0 {
		i.log.WithField("output", buf.String()).Debug("install command output")
	}
	return nil
}
