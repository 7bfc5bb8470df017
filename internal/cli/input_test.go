package cli

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/amirk1998/stockkeeper/pkg/errors"
)

func TestText(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("  alice  \nlast"), &out)

	got, err := p.Text("Username")
	require.NoError(t, err)
	require.Equal(t, "alice", got)
	require.Equal(t, "Username: ", out.String())

	// EOF after partial input still yields the line
	got, err = p.Text("Again")
	require.NoError(t, err)
	require.Equal(t, "last", got)

	_, err = p.Text("More")
	require.ErrorIs(t, err, io.EOF)
}

func TestAsk_RepromptsUntilAccepted(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("x\ny\nok\n"), &out)

	calls := 0
	got, err := p.Ask("Value", func(s string) error {
		calls++
		if s != "ok" {
			return apperrors.Validation(apperrors.ErrInvalidInput, "value must be ok")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, "ok", got)
	require.Equal(t, 3, calls)
	require.Equal(t, 2, strings.Count(out.String(), "value must be ok"))
}

func TestAsk_StopsOnReadError(t *testing.T) {
	p := NewPrompter(strings.NewReader("bad\n"), io.Discard)

	_, err := p.Ask("Value", func(string) error { return apperrors.ErrInvalidInput })
	require.ErrorIs(t, err, io.EOF)
}

func TestPassword_FallsBackOffTerminal(t *testing.T) {
	p := NewPrompter(strings.NewReader("Secret12\n"), io.Discard)

	got, err := p.Password("Password")
	require.NoError(t, err)
	require.Equal(t, "Secret12", got)
}

func TestPassword_ReadsFromTerminal(t *testing.T) {
	origRead, origIsTerm := readPassword, isTerminal
	t.Cleanup(func() { readPassword, isTerminal = origRead, origIsTerm })

	isTerminal = func(int) bool { return true }
	readPassword = func(int) ([]byte, error) { return []byte("Hidden99"), nil }

	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("not used\n"), &out)
	p.fd = 0

	got, err := p.Password("Password")
	require.NoError(t, err)
	require.Equal(t, "Hidden99", got)
	require.Equal(t, "Password: \n", out.String())
}

func TestConfirm(t *testing.T) {
	p := NewPrompter(strings.NewReader("YES\nn\ny\nmaybe\n"), io.Discard)

	for _, want := range []bool{true, false, true, false} {
		got, err := p.Confirm("Sure?")
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestMessage(t *testing.T) {
	require.Equal(t, "name too short",
		Message(apperrors.Validation(apperrors.ErrInvalidProduct, "name too short")))
	require.Equal(t, apperrors.ErrRecordNotFound.Error(), Message(apperrors.ErrRecordNotFound))
}
