package eventloop

import (
	"context"
	"log"

	"screen-translate/src/session"
	"screen-translate/src/singleinstance"
)

// ResidentSource accepts --run-once clients and turns each one into a
// capture trigger whose result is answered over the connection.
type ResidentSource struct {
	Server singleinstance.Server
}

func (s ResidentSource) Start(ctx context.Context, post func(Trigger)) error {
	if err := s.Server.Start(ctx); err != nil {
		return err
	}
	log.Printf("eventloop: resident listening on 127.0.0.1:%d", s.Server.Port())
	go func() {
		for {
			conn, err := s.Server.Next(ctx)
			if err != nil {
				return
			}
			post(Trigger{
				Kind:   Capture,
				Origin: "run-once",
				Result: delegatedResult{DelegatedTarget: session.DelegatedTarget{
					Conn:           conn,
					OutputToStdout: conn.Request().OutputToStdout,
				}},
			})
		}
	}()
	return nil
}

// delegatedResult closes the client connection once it has been answered.
type delegatedResult struct {
	session.DelegatedTarget
}

func (d delegatedResult) OnSuccess(text string) error {
	defer d.close()
	if err := d.DelegatedTarget.OnSuccess(text); err != nil {
		_ = d.DelegatedTarget.OnFailure(err)
		return err
	}
	return nil
}

func (d delegatedResult) OnFailure(err error) error {
	defer d.close()
	return d.DelegatedTarget.OnFailure(err)
}

func (d delegatedResult) close() {
	if d.Conn != nil {
		_ = d.Conn.Close()
	}
}
