// Package mcp provides an MCP (Model Context Protocol) server exposing the
// recall engine as agent tools.
package mcp

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/recall/pkg/coordinator"
	"github.com/papercomputeco/recall/pkg/utils"
)

type Config struct {
	// Coordinator runs every tool call
	Coordinator *coordinator.Coordinator

	// Noop for empty MCP server
	Noop bool

	// Logger is the configured logger
	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the memory tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "recall",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if c.Noop {
		// return the empty MCP server with no tools configured
		// if the noop flag is set (i.e., MCP capabilities are disabled)
		s.mcpServer = mcpServer
		return s, nil
	}

	if c.Coordinator == nil {
		return nil, errors.New("coordinator is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        searchToolName,
		Description: searchDescription,
	}, s.handleSearch)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        rememberToolName,
		Description: rememberDescription,
	}, s.handleRemember)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        forgetToolName,
		Description: forgetDescription,
	}, s.handleForget)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        listToolName,
		Description: listDescription,
	}, s.handleList)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        statsToolName,
		Description: statsDescription,
	}, s.handleStats)

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server, or nil for a noop
// server.
func (s *Server) Handler() http.Handler {
	if s.handler == nil {
		return nil
	}
	return s.handler
}
