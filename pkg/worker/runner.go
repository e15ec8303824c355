package worker

import (
	"context"
	"io"
	"os/exec"
)

// Runner runs a scoring container with the host directory dir mounted
// at mount.
type Runner interface {
	Run(ctx context.Context, spec RunSpec, stdout, stderr io.Writer) error
}

type RunSpec struct {
	Image string
	Args  []string
	Dir   string
	Mount string
}

// DockerRunner runs containers through the Docker CLI.
type DockerRunner struct {
	// Binary defaults to "docker".
	Binary string
	// Pull makes the runner pull the image before each run.
	Pull bool
}

var _ Runner = (*DockerRunner)(nil)

func (d *DockerRunner) Run(ctx context.Context, spec RunSpec, stdout, stderr io.Writer) error {
	bin := d.Binary
	if bin == "" {
		bin = "docker"
	}

	if d.Pull {
		pull := exec.CommandContext(ctx, bin, "pull", spec.Image)
		pull.Stdout = stderr
		pull.Stderr = stderr
		if err := pull.Run(); err != nil {
			return err
		}
	}

	args := []string{
		"run", "--rm",
		"--network", "none",
		"-v", spec.Dir + ":" + spec.Mount,
		spec.Image,
	}
	args = append(args, spec.Args...)

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}
