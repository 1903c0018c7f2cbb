// Package cli implements the offline admin tool: password generation,
// strength checking, and hashing compatible with the server's stored
// credential format.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/vkulagin/authgate/internal/server/hasher"
	"github.com/vkulagin/authgate/internal/server/validation"
	"github.com/vkulagin/authgate/internal/shared"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

type App struct {
	in  *bufio.Reader
	out io.Writer
}

func NewApp(in io.Reader, out io.Writer) *App {
	return &App{in: bufio.NewReader(in), out: out}
}

func (a *App) usage() {
	fmt.Fprintln(a.out, "Usage: authgate-cli <command> [flags]")
	fmt.Fprintln(a.out, "Commands:")
	fmt.Fprintln(a.out, "  genpassword  generate a random password (-l length)")
	fmt.Fprintln(a.out, "  check        check password strength")
	fmt.Fprintln(a.out, "  hash         hash a password for manual provisioning (-i iterations)")
}

func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) < 1 {
		a.usage()
		return errors.New("command required")
	}

	switch args[0] {
	case "genpassword":
		return a.genPassword(args[1:])
	case "check":
		return a.checkPassword()
	case "hash":
		return a.hashPassword(args[1:])
	default:
		a.usage()
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func (a *App) genPassword(args []string) error {
	fs := flag.NewFlagSet("genpassword", flag.ContinueOnError)
	fs.SetOutput(a.out)
	length := fs.Int("l", 16, "password length")
	if err := fs.Parse(args); err != nil {
		return err
	}

	password, err := hasher.GenerateRandomPassword(*length)
	if err != nil {
		return fmt.Errorf("error generating password: %w", err)
	}

	fmt.Fprintln(a.out, password)
	return nil
}

func (a *App) checkPassword() error {
	password, err := a.getPassword()
	if err != nil {
		return err
	}

	check := validation.CheckPassword(password)
	fmt.Fprintf(a.out, "Strength: %d/100\n", check.Strength)
	if check.Valid {
		fmt.Fprintln(a.out, "Password is acceptable")
		return nil
	}
	for _, p := range check.Problems {
		fmt.Fprintf(a.out, "- %s\n", p)
	}
	return errors.New("password rejected")
}

func (a *App) hashPassword(args []string) error {
	fs := flag.NewFlagSet("hash", flag.ContinueOnError)
	fs.SetOutput(a.out)
	iterations := fs.Int("i", hasher.DefaultIterations, "PBKDF2 iterations")
	if err := fs.Parse(args); err != nil {
		return err
	}

	password, err := a.getPassword()
	if err != nil {
		return err
	}

	hash, salt, err := hasher.New(*iterations).Hash(password)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	fmt.Fprintf(a.out, "hash: %s\nsalt: %s\n", hash, salt)
	return nil
}

// getPassword reads a password without echo when attached to a terminal and
// falls back to a plain line read otherwise, so the tool stays scriptable.
func (a *App) getPassword() (string, error) {
	if isTerminal(int(os.Stdin.Fd())) {
		fmt.Fprint(a.out, "Enter password: ")
		pw, err := readPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(a.out)
		if err != nil {
			return "", err
		}
		password := string(pw)
		shared.WipeByteArray(pw)
		return password, nil
	}

	line, err := a.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || len(line) == 0) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
