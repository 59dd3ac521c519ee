package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/ironsheep/image-optimizer/internal/cdn"
	"github.com/ironsheep/image-optimizer/internal/imaging"
	"github.com/ironsheep/image-optimizer/internal/optimizer"
	"github.com/ironsheep/image-optimizer/internal/pool"
)

// newTestServer returns a server with a two-worker optimizer and fixed CDN base
// URLs.
func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()

	opt := optimizer.New(optimizer.Config{Pool: pool.Config{Size: 2}})
	t.Cleanup(opt.Dispose)

	cache, err := imaging.NewSourceCache(8)
	if err != nil {
		t.Fatalf("NewSourceCache: %v", err)
	}

	builder := cdn.NewBuilder(cdn.Config{
		Provider:          cdn.Cloudinary,
		CloudinaryBaseURL: "https://res.cloudinary.com/demo/image/upload",
		ImageKitBaseURL:   "https://ik.imagekit.io/demo",
		CloudflareBaseURL: "https://example.com",
		CustomBaseURL:     "https://img.example.com",
	})
	return New(opt, builder, cache, opts...)
}

func TestNew(t *testing.T) {
	s := newTestServer(t)
	if s == nil {
		t.Fatal("New() returned nil")
	}
	if s.cache == nil || s.optimizer == nil || s.cdn == nil {
		t.Fatal("New() did not keep its dependencies")
	}
	if s.logger == nil {
		t.Fatal("New() did not default the logger")
	}
	if s.version != "dev" {
		t.Errorf("version: got %q, want dev", s.version)
	}
}

func TestMCPRequest_Unmarshal(t *testing.T) {
	tests := []struct {
		name       string
		json       string
		wantID     interface{}
		wantMethod string
	}{
		{
			"string id",
			`{"jsonrpc":"2.0","id":"test-1","method":"tools/list"}`,
			"test-1",
			"tools/list",
		},
		{
			"number id",
			`{"jsonrpc":"2.0","id":42,"method":"ping"}`,
			float64(42), // JSON numbers decode as float64
			"ping",
		},
		{
			"null id",
			`{"jsonrpc":"2.0","id":null,"method":"initialize"}`,
			nil,
			"initialize",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req MCPRequest
			if err := json.Unmarshal([]byte(tt.json), &req); err != nil {
				t.Fatalf("Failed to unmarshal: %v", err)
			}

			if req.ID != tt.wantID {
				t.Errorf("ID: got %v (%T), want %v (%T)", req.ID, req.ID, tt.wantID, tt.wantID)
			}
			if req.Method != tt.wantMethod {
				t.Errorf("Method: got %s, want %s", req.Method, tt.wantMethod)
			}
			if req.JSONRPC != "2.0" {
				t.Errorf("JSONRPC: got %s, want 2.0", req.JSONRPC)
			}
		})
	}
}

func TestMCPResponse_OmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(MCPResponse{JSONRPC: "2.0", ID: 1, Result: map[string]interface{}{}})
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	if strings.Contains(string(data), `"error"`) {
		t.Errorf("successful response should omit error: %s", data)
	}

	data, err = json.Marshal(MCPResponse{JSONRPC: "2.0", ID: 1, Error: &MCPError{Code: -32601, Message: "Method not found"}})
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	if strings.Contains(string(data), `"result"`) {
		t.Errorf("error response should omit result: %s", data)
	}
}

func TestHandleRequest_Initialize(t *testing.T) {
	s := newTestServer(t, WithVersion("1.2.3"))

	resp := s.handleRequest(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 1, Method: "initialize"})
	if resp == nil || resp.Error != nil {
		t.Fatalf("initialize failed: %+v", resp)
	}

	result := resp.Result.(map[string]interface{})
	if result["protocolVersion"] != "2024-11-05" {
		t.Errorf("protocolVersion: got %v", result["protocolVersion"])
	}
	info := result["serverInfo"].(map[string]interface{})
	if info["name"] != Name {
		t.Errorf("name: got %v, want %s", info["name"], Name)
	}
	if info["version"] != "1.2.3" {
		t.Errorf("version: got %v, want 1.2.3", info["version"])
	}
}

func TestHandleRequest_Methods(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	if resp := s.handleRequest(ctx, &MCPRequest{Method: "notifications/initialized"}); resp != nil {
		t.Errorf("notification should not be answered, got %+v", resp)
	}

	resp := s.handleRequest(ctx, &MCPRequest{JSONRPC: "2.0", ID: 7, Method: "ping"})
	if resp == nil || resp.Error != nil || resp.ID != 7 {
		t.Errorf("ping: got %+v", resp)
	}

	resp = s.handleRequest(ctx, &MCPRequest{JSONRPC: "2.0", ID: 8, Method: "resources/list"})
	if resp == nil || resp.Error == nil {
		t.Fatalf("unknown method should fail, got %+v", resp)
	}
	if resp.Error.Code != -32601 {
		t.Errorf("code: got %d, want -32601", resp.Error.Code)
	}

	resp = s.handleRequest(ctx, &MCPRequest{JSONRPC: "2.0", ID: 9, Method: "tools/list"})
	if resp == nil || resp.Error != nil {
		t.Fatalf("tools/list failed: %+v", resp)
	}
	tools := resp.Result.(map[string]interface{})["tools"].([]Tool)
	if len(tools) != len(GetToolDefinitions()) {
		t.Errorf("tools/list returned %d tools, want %d", len(tools), len(GetToolDefinitions()))
	}
}

func TestServe(t *testing.T) {
	s := newTestServer(t)

	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		``,
		`not json`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"ping"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"cdn_build_url","arguments":{"path":"photo.jpg","width":300}}}`,
	}, "\n")

	var out bytes.Buffer
	if err := s.Serve(context.Background(), strings.NewReader(input), &out); err != nil {
		t.Fatalf("Serve: %v", err)
	}

	dec := json.NewDecoder(&out)
	for _, wantID := range []float64{1, 2, 3} {
		var resp MCPResponse
		if err := dec.Decode(&resp); err != nil {
			t.Fatalf("decode response %v: %v", wantID, err)
		}
		if resp.ID != wantID {
			t.Errorf("ID: got %v, want %v", resp.ID, wantID)
		}
		if resp.Error != nil {
			t.Errorf("response %v: unexpected error %+v", wantID, resp.Error)
		}
	}

	var extra MCPResponse
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		t.Errorf("expected exactly three responses, got extra %+v (%v)", extra, err)
	}
}

func TestServe_CancelledContext(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := s.Serve(ctx, strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`+"\n"), &out)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Serve: got %v, want context.Canceled", err)
	}
	if out.Len() != 0 {
		t.Errorf("no response expected after cancellation, got %s", out.String())
	}
}
