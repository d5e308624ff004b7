package remote

import (
	"context"

	"google.golang.org/grpc"

	"github.com/riptide-sec/riptide/pkg/scan"
)

// Method names of the detector service exposed by plugin server backends.
const (
	runMethod         = "/riptide.plugin.v1.DetectorService/Run"
	listPluginsMethod = "/riptide.plugin.v1.DetectorService/ListPlugins"
)

// RunRequest asks a backend to run all its detectors against a target.
type RunRequest struct {
	Target scan.Target `json:"target"`
}

// RunResponse carries the findings a backend reported for one run.
type RunResponse struct {
	Findings []scan.Finding `json:"findings"`
}

// ListPluginsRequest asks a backend to enumerate its detectors.
type ListPluginsRequest struct{}

// PluginDescriptor describes one detector hosted by a backend.
type PluginDescriptor struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
}

// ListPluginsResponse enumerates the detectors a backend hosts.
type ListPluginsResponse struct {
	Plugins []PluginDescriptor `json:"plugins"`
}

// serviceClient is the call surface the retry layer issues RPCs through.
// Narrow on purpose so tests can substitute a fake backend.
type serviceClient interface {
	Run(ctx context.Context, in *RunRequest) (*RunResponse, error)
	ListPlugins(ctx context.Context, in *ListPluginsRequest) (*ListPluginsResponse, error)
}

type detectorServiceClient struct {
	cc *grpc.ClientConn
}

func newDetectorServiceClient(cc *grpc.ClientConn) *detectorServiceClient {
	return &detectorServiceClient{cc: cc}
}

func (c *detectorServiceClient) Run(ctx context.Context, in *RunRequest) (*RunResponse, error) {
	out := new(RunResponse)
	if err := c.cc.Invoke(ctx, runMethod, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *detectorServiceClient) ListPlugins(ctx context.Context, in *ListPluginsRequest) (*ListPluginsResponse, error) {
	out := new(ListPluginsResponse)
	if err := c.cc.Invoke(ctx, listPluginsMethod, in, out); err != nil {
		return nil, err
	}
	return out, nil
}
