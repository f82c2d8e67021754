package purchaseorder

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
)

// Opener shows a directory to the user
type Opener interface {
	Open(ctx context.Context, dir string) error
}

// SystemOpener opens directories with the platform's file manager. GOOS
// defaults to the running platform.
type SystemOpener struct {
	GOOS string
}

// Command returns the program and arguments used to open dir
func (o SystemOpener) Command(dir string) (string, []string) {
	goos := o.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}
	switch goos {
	case "darwin":
		return "open", []string{dir}
	case "windows":
		return "explorer", []string{dir}
	default:
		return "xdg-open", []string{dir}
	}
}

// Open starts the file manager and does not wait for it to exit. The
// process outlives ctx, which only guards the start.
func (o SystemOpener) Open(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cmd := o.command(dir)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", cmd.Path, err)
	}
	go cmd.Wait()
	return nil
}

func (o SystemOpener) command(dir string) *exec.Cmd {
	name, args := o.Command(dir)
	return exec.Command(name, args...)
}
