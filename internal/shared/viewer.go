package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

var getRuntime = func() string { return runtime.GOOS }

// viewerCommand builds the command that opens path in the default system viewer.
func viewerCommand(path string) (*exec.Cmd, error) {
	switch rt := getRuntime(); rt {
	case "darwin":
		return exec.Command("open", path), nil
	case "linux":
		return exec.Command("xdg-open", path), nil
	case "windows":
		return exec.Command("cmd", "/c", "start", "", path), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", rt)
	}
}

// printCommand builds the command that hands path to the system print spooler.
//
// An empty printer uses the system default.
func printCommand(path, printer string) (*exec.Cmd, error) {
	switch rt := getRuntime(); rt {
	case "darwin", "linux":
		args := []string{}
		if printer != "" {
			args = append(args, "-d", printer)
		}
		return exec.Command("lp", append(args, path)...), nil
	case "windows":
		verb := "Print"
		if printer != "" {
			return exec.Command("powershell", "-NoProfile", "-Command",
				fmt.Sprintf("Start-Process -FilePath %q -Verb PrintTo -ArgumentList %q", path, printer)), nil
		}
		return exec.Command("powershell", "-NoProfile", "-Command",
			fmt.Sprintf("Start-Process -FilePath %q -Verb %s", path, verb)), nil
	default:
		return nil, fmt.Errorf("unsupported platform: %s", rt)
	}
}

// OpenDocument opens the file at path in the default system viewer without waiting for it to exit.
//
// Supports macOS, Linux, and Windows platforms.
func OpenDocument(path string) error {
	cmd, err := viewerCommand(path)
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open viewer: %w", err)
	}

	return nil
}

// PrintDocument sends the file at path to the system print spooler and waits for it to accept the job.
func PrintDocument(path, printer string) error {
	cmd, err := printCommand(path, printer)
	if err != nil {
		return err
	}

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %v: %s", ErrPrintFailed, err, out)
	}

	return nil
}
