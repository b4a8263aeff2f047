//go:build !unix

package process

import (
	"os"
	"os/exec"
)

func configure(c *exec.Cmd) {}

func (p *execProcess) signal(force bool) error {
	// no graceful signal outside unix, both end in a kill
	err := p.cmd.Process.Kill()
	if err == os.ErrProcessDone {
		return nil
	}
	return err
}

func (p *execProcess) sweep() {}

func signalName(state *os.ProcessState) string { return "" }
