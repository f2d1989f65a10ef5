package mcp

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Resource URIs.
const (
	ConfigResourceURI = "silo://config"
	StatusResourceURI = "silo://status"
)

// resourceView produces the value served as a resource's JSON body.
type resourceView func(ctx context.Context) any

func (s *Server) resourceViews() map[string]resourceView {
	return map[string]resourceView{
		ConfigResourceURI: func(context.Context) any { return s.state.ConfigSnapshot() },
		StatusResourceURI: func(ctx context.Context) any { return s.state.Status(ctx) },
	}
}

// registerResources registers the JSON views of the configuration and
// the index status.
func (s *Server) registerResources() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "config",
			URI:         ConfigResourceURI,
			Description: "Effective silo configuration",
			MIMEType:    "application/json",
		},
		s.makeResourceHandler(ConfigResourceURI),
	)
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "status",
			URI:         StatusResourceURI,
			Description: "Index health and indexing progress",
			MIMEType:    "application/json",
		},
		s.makeResourceHandler(StatusResourceURI),
	)
}

func (s *Server) makeResourceHandler(uri string) mcp.ResourceHandler {
	return func(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		content, err := s.ReadResource(ctx, uri)
		if err != nil {
			return nil, MapError(err)
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{
				{
					URI:      uri,
					MIMEType: "application/json",
					Text:     content,
				},
			},
		}, nil
	}
}

// ReadResource returns the JSON body of a silo:// resource.
func (s *Server) ReadResource(ctx context.Context, uri string) (string, error) {
	view, ok := s.resourceViews()[uri]
	if !ok {
		return "", NewInvalidParamsError("unknown resource: " + uri)
	}
	content, err := json.MarshalIndent(view(ctx), "", "  ")
	if err != nil {
		return "", err
	}
	return string(content), nil
}
