package session

import (
	"errors"
	"fmt"
	"io"
	"os"

	"screen-translate/src/clipboard"
	"screen-translate/src/singleinstance"
)

// ResultTarget receives the final translation of a run triggered from
// outside the window.
type ResultTarget interface {
	OnSuccess(text string) error
	OnFailure(err error) error
}

// Deliver hands an outcome to t.
func Deliver(t ResultTarget, o Outcome) error {
	if err := o.Failure(); err != nil {
		if o.Err == nil {
			return t.OnFailure(errors.New(o.Translated))
		}
		return t.OnFailure(err)
	}
	return t.OnSuccess(o.Translated)
}

type ClipboardTarget struct{}

func (ClipboardTarget) OnSuccess(text string) error {
	return clipboard.Write(text)
}

func (ClipboardTarget) OnFailure(err error) error {
	return nil
}

type StdoutTarget struct {
	Writer    io.Writer
	ErrWriter io.Writer
}

func (t StdoutTarget) OnSuccess(text string) error {
	w := t.Writer
	if w == nil {
		w = os.Stdout
	}
	_, err := fmt.Fprint(w, text)
	return err
}

func (t StdoutTarget) OnFailure(err error) error {
	w := t.ErrWriter
	if w == nil {
		w = os.Stderr
	}
	_, werr := fmt.Fprintln(w, err)
	return werr
}

// DelegatedTarget answers a --run-once client over its connection.
type DelegatedTarget struct {
	Conn           singleinstance.Conn
	OutputToStdout bool
}

func (t DelegatedTarget) OnSuccess(text string) error {
	if t.Conn == nil {
		return errors.New("delegated target missing connection")
	}
	if t.OutputToStdout {
		return t.Conn.RespondSuccess(text)
	}
	if err := clipboard.Write(text); err != nil {
		return fmt.Errorf("clipboard error: %w", err)
	}
	return t.Conn.RespondSuccess("")
}

func (t DelegatedTarget) OnFailure(err error) error {
	if t.Conn == nil {
		return nil
	}
	if err == nil {
		return t.Conn.RespondError("unknown session error")
	}
	return t.Conn.RespondError(err.Error())
}
