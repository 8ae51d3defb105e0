package authserver

import "context"

// Welcome implements GET /.ph/welcome: publishes the catalogue of
// attribute types and their sources. Available in any lifecycle state,
// like the discovery endpoints, since a client needs it before it can
// even begin a disclosure.
func (s *Server) Welcome(ctx context.Context) WelcomeResp {
	return WelcomeResp{Catalogue: s.Catalogue}
}
