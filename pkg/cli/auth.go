package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mchmarny/riskview/pkg/auth"
	urfave "github.com/urfave/cli/v3"
	"golang.org/x/term"
)

var (
	errEmptySecret = errors.New("empty value")

	stageTokenFlag = &urfave.BoolFlag{
		Name:  "stage-token",
		Usage: "Also prompt for the bearer token used to read the model stage",
	}

	logoutFlag = &urfave.BoolFlag{
		Name:  "logout",
		Usage: "Remove saved secrets from the OS keychain",
	}

	authCmd = &urfave.Command{
		Name:            "auth",
		HideHelpCommand: true,
		Usage:           "Save the warehouse password (and stage token) to the OS keychain",
		Action:          cmdAuth,
		Flags: []urfave.Flag{
			stageTokenFlag,
			logoutFlag,
		},
	}
)

func cmdAuth(_ context.Context, cmd *urfave.Command) error {
	store := secretStore()
	out := writer(cmd)

	if cmd.Bool(logoutFlag.Name) {
		for _, k := range []string{auth.KeyPassword, auth.KeyStageToken} {
			if err := store.Delete(k); err != nil {
				return fmt.Errorf("removing %s: %w", k, err)
			}
		}
		fmt.Fprintln(out, "Secrets removed")
		return nil
	}

	var r io.Reader = os.Stdin
	if cmd.Root().Reader != nil {
		r = cmd.Root().Reader
	}
	in := newSecretReader(r)

	keys := []string{auth.KeyPassword}
	if cmd.Bool(stageTokenFlag.Name) {
		keys = append(keys, auth.KeyStageToken)
	}

	for _, k := range keys {
		v, err := in.read(out, k)
		if err != nil {
			return fmt.Errorf("reading %s: %w", k, err)
		}
		if err := store.Set(k, v); err != nil {
			return fmt.Errorf("saving %s: %w", k, err)
		}
	}

	fmt.Fprintln(out, "Secrets saved to OS keychain")
	return nil
}

// secretReader reads values without echo from a terminal and line by line
// from anything else.
type secretReader struct {
	in  *bufio.Reader
	fd  int
	tty bool
}

func newSecretReader(r io.Reader) *secretReader {
	s := &secretReader{in: bufio.NewReader(r)}
	if f, ok := r.(*os.File); ok {
		s.fd = int(f.Fd()) //nolint:gosec // fd fits in int
		s.tty = term.IsTerminal(s.fd)
	}
	return s
}

func (s *secretReader) read(out io.Writer, name string) (string, error) {
	fmt.Fprintf(out, "%s: ", strings.ReplaceAll(name, "_", " "))

	var v string
	if s.tty {
		b, err := term.ReadPassword(s.fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		v = string(b)
	} else {
		line, err := s.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		v = line
	}

	v = strings.TrimSpace(v)
	if v == "" {
		return "", errEmptySecret
	}
	return v, nil
}
