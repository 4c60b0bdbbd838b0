package backend

import (
	"context"

	"git.sr.ht/~gioverse/skel/stream"
)

type WindowState struct {
	Bundle
	Controller *stream.Controller
}

// NewWindowState binds the bundle to a stream controller. invalidate is
// called whenever a stream produces a value, typically the window's
// Invalidate method.
func NewWindowState(ctx context.Context, bundle Bundle, invalidate func()) WindowState {
	return WindowState{
		Bundle:     bundle,
		Controller: stream.NewController(ctx, invalidate),
	}
}

type Bundle struct {
	Datasource *Datasource
}

func NewBundle(ds *Datasource) Bundle {
	return Bundle{
		Datasource: ds,
	}
}
