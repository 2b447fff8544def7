package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// ServiceName is the JSON-RPC receiver name registered by the server.
const ServiceName = "Kiosk"

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn, client: rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func call[Req, Resp any](c *Client, method string, req Req) (*Resp, error) {
	var resp Resp
	if err := c.client.Call(ServiceName+"."+method, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Start requests the daemon to start playback.
func (c *Client) Start() (*StartResponse, error) {
	return call[StartRequest, StartResponse](c, "Start", StartRequest{})
}

// Stop requests the daemon to stop playback.
func (c *Client) Stop() (*StopResponse, error) {
	return call[StopRequest, StopResponse](c, "Stop", StopRequest{})
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	return call[StatusRequest, StatusResponse](c, "Status", StatusRequest{})
}

// Player retrieves the current player state.
func (c *Client) Player() (*PlayerResponse, error) {
	return call[PlayerRequest, PlayerResponse](c, "Player", PlayerRequest{})
}

// Reload remounts the playlist as a new session.
func (c *Client) Reload() (*ReloadResponse, error) {
	return call[ReloadRequest, ReloadResponse](c, "Reload", ReloadRequest{})
}

// History fetches the play log.
func (c *Client) History(limit int) (*HistoryResponse, error) {
	return call[HistoryRequest, HistoryResponse](c, "History", HistoryRequest{Limit: limit})
}

// LogTail returns log lines from the daemon.
func (c *Client) LogTail(req LogTailRequest) (*LogTailResponse, error) {
	return call[LogTailRequest, LogTailResponse](c, "LogTail", req)
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	return call[TestNotificationRequest, TestNotificationResponse](c, "TestNotification", TestNotificationRequest{})
}
