package mcp

import (
	"context"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

type Server struct {
	engine Operations
	mcp    *sdk.Server
}

func NewServer(engine Operations, version string) *Server {
	s := &Server{
		engine: engine,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "lorekeeper",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
