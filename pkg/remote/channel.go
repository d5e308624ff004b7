package remote

import (
	"encoding/json"

	"google.golang.org/grpc"
	grpcbackoff "google.golang.org/grpc/backoff"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
)

// MaxInboundMessageBytes caps a single RPC response at 10 MB. A response
// exceeding it fails the call with a non-retried protocol error.
const MaxInboundMessageBytes = 10 * 1000 * 1000

const jsonCodecName = "json"

// jsonCodec carries RPC payloads as JSON so the wire contract lives in
// plain Go structs instead of generated stubs.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return jsonCodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// NewChannel builds the RPC channel for a backend: loopback when the
// backend is locally spawned, the configured address otherwise. The
// channel connects lazily; reachability failures surface on first use and
// are absorbed by the retry layer. Negotiation is plaintext; the
// TrustAllCert override is reserved for TLS channel variants.
func NewChannel(command ServerCommand) (*grpc.ClientConn, error) {
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(MaxInboundMessageBytes),
			grpc.CallContentSubtype(jsonCodecName),
		),
	}
	if command.ConnectTimeout > 0 {
		opts = append(opts, grpc.WithConnectParams(grpc.ConnectParams{
			Backoff:           grpcbackoff.DefaultConfig,
			MinConnectTimeout: command.ConnectTimeout,
		}))
	}
	return grpc.NewClient(command.DialTarget(), opts...)
}
