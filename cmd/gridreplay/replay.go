package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/danmuck/gridlink/internal/logs"
	"github.com/danmuck/gridlink/internal/render"
	"github.com/danmuck/gridlink/internal/rpc"
	"github.com/danmuck/gridlink/internal/session"
	"github.com/gdamore/tcell/v2"
)

// captureStream feeds a recorded peer stream to a Conn. Replies the client
// would send are discarded.
type captureStream struct {
	r io.ReadCloser
}

func (s captureStream) Read(p []byte) (int, error) { return s.r.Read(p) }

func (s captureStream) Write(p []byte) (int, error) { return len(p), nil }

func (s captureStream) Close() error { return s.r.Close() }

// replay runs a capture through a session and returns it once every message
// has been dispatched. A clean end of stream is not an error.
func replay(ctx context.Context, in io.ReadCloser, cfg replayConfig) (*session.Session, error) {
	connCfg := rpc.DefaultConfig()
	connCfg.Limits = cfg.Limits
	conn := rpc.New(captureStream{r: in}, connCfg)
	sess := session.New(conn, session.DefaultConfig())

	finished := make(chan error, 1)
	conn.OnDisconnect(func(err error) { finished <- err })
	if err := sess.Start(ctx); err != nil {
		return nil, err
	}

	select {
	case err := <-finished:
		if err != nil && !errors.Is(err, io.EOF) {
			return sess, err
		}
		logs.Infof("gridreplay.replay done session=%s flushes=%d", sess.ID, sess.Flushes())
		return sess, nil
	case <-ctx.Done():
		_ = sess.Close()
		return sess, ctx.Err()
	}
}

func writeGrids(w io.Writer, sess *session.Session) error {
	for _, id := range sess.GridIDs() {
		g, ok := sess.GridSnapshot(id)
		if !ok {
			continue
		}
		state := "unplaced"
		switch {
		case g.Hidden || g.Closed:
			state = "hidden"
		case g.Floating:
			state = fmt.Sprintf("float z=%d", g.Float.ZIndex)
		case g.Message:
			state = "message"
		case g.Placed:
			state = "placed"
		}
		if _, err := fmt.Fprintf(w, "grid %d %dx%d at %g,%g %s\n", g.ID, g.Width, g.Height, g.Row, g.Col, state); err != nil {
			return err
		}
		for row := 0; row < g.Height; row++ {
			if _, err := fmt.Fprintf(w, "|%s|\n", g.Text(row)); err != nil {
				return err
			}
		}
	}
	return nil
}

// composeFrame draws the session onto an in-memory terminal and returns its
// rows as text.
func composeFrame(sess *session.Session, width, height int) ([]string, error) {
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		return nil, err
	}
	defer screen.Fini()
	screen.SetSize(width, height)
	if err := render.Draw(render.TargetTerminal, screen, sess); err != nil {
		return nil, err
	}

	cells, w, h := screen.GetContents()
	rows := make([]string, h)
	for y := 0; y < h; y++ {
		var sb strings.Builder
		for x := 0; x < w; x++ {
			c := cells[y*w+x]
			if len(c.Runes) == 0 {
				sb.WriteByte(' ')
				continue
			}
			sb.WriteString(string(c.Runes))
		}
		rows[y] = sb.String()
	}
	return rows, nil
}
