// Package term обеспечивает интерактивный запрос секретов в терминале.
package term

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
	"golang.org/x/xerrors"
)

// Terminal запрашивает у пользователя секреты, не отображая ввод на экране.
type Terminal struct {
	out     io.Writer
	stdinfd int
}

// NewTerminal создает новый экземпляр Terminal.
func NewTerminal() *Terminal {
	return &Terminal{
		out:     os.Stdout,
		stdinfd: int(os.Stdin.Fd()),
	}
}

// ReadAccessToken запрашивает токен доступа Beeper. В неинтерактивном режиме
// (stdin не терминал) запрос невозможен и возвращается ошибка с подсказкой.
func (t *Terminal) ReadAccessToken() (string, error) {
	if !term.IsTerminal(t.stdinfd) {
		return "", xerrors.New("stdin is not a terminal; set BEEPER_ACCESS_TOKEN instead")
	}

	fmt.Fprint(t.out, "Enter Beeper access token: ")
	byteToken, err := term.ReadPassword(t.stdinfd)
	if err != nil {
		return "", xerrors.Errorf("failed to read access token: %w", err)
	}
	fmt.Fprintln(t.out) // Новая строка после ввода

	token := strings.TrimSpace(string(byteToken))
	if token == "" {
		return "", xerrors.New("empty access token")
	}
	return token, nil
}
