package clipboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"

	"github.com/aymanbagabas/go-osc52/v2"
)

var ErrToolNotFound = errors.New("clipboard tool not found")

type Sink interface {
	Copy(ctx context.Context, text string) error
}

type Command struct {
	Path string
	Args []string
}

func SelectCommand(goos string, lookPath func(string) (string, error)) (Command, error) {
	switch goos {
	case "darwin":
		path, err := lookPath("pbcopy")
		if err != nil {
			return Command{}, ErrToolNotFound
		}
		return Command{Path: path}, nil
	case "linux", "freebsd", "openbsd":
		if path, err := lookPath("wl-copy"); err == nil {
			return Command{Path: path}, nil
		}
		if path, err := lookPath("xclip"); err == nil {
			return Command{Path: path, Args: []string{"-selection", "clipboard"}}, nil
		}
		if path, err := lookPath("xsel"); err == nil {
			return Command{Path: path, Args: []string{"--clipboard", "--input"}}, nil
		}
		return Command{}, ErrToolNotFound
	case "windows":
		path, err := lookPath("clip")
		if err != nil {
			return Command{}, ErrToolNotFound
		}
		return Command{Path: path}, nil
	default:
		return Command{}, ErrToolNotFound
	}
}

// System copies through the platform clipboard tool. Without one it writes an
// OSC 52 sequence to Fallback so the terminal sets the clipboard instead.
type System struct {
	GOOS     string
	LookPath func(string) (string, error)
	Getenv   func(string) string
	Fallback io.Writer
}

func NewSystem(fallback io.Writer) *System {
	return &System{
		GOOS:     runtime.GOOS,
		LookPath: exec.LookPath,
		Getenv:   os.Getenv,
		Fallback: fallback,
	}
}

func (s *System) Copy(ctx context.Context, text string) error {
	cmdDef, err := SelectCommand(s.GOOS, s.LookPath)
	if err != nil {
		if errors.Is(err, ErrToolNotFound) && s.Fallback != nil {
			return s.writeOSC52(text)
		}
		return err
	}
	return run(ctx, cmdDef, text)
}

func (s *System) writeOSC52(text string) error {
	seq := osc52.New(text)
	if s.Getenv != nil && s.Getenv("TMUX") != "" {
		seq = seq.Tmux()
	}
	if _, err := seq.WriteTo(s.Fallback); err != nil {
		return fmt.Errorf("write osc52 sequence: %w", err)
	}
	return nil
}

func run(ctx context.Context, cmdDef Command, text string) error {
	cmd := exec.CommandContext(ctx, cmdDef.Path, cmdDef.Args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("clipboard stdin: %w", err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start clipboard command: %w", err)
	}

	if _, err := io.WriteString(stdin, text); err != nil {
		_ = stdin.Close()
		_ = cmd.Wait()
		return fmt.Errorf("write clipboard data: %w", err)
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("clipboard command failed: %w", err)
	}
	return nil
}
