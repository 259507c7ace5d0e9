package rpcclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	. "github.com/alexdcox/accumulate-go"
	"github.com/pkg/errors"
)

// NewRpcClient talks to a running signer service at hostPort, e.g.
// http://localhost:8420.
func NewRpcClient(hostPort string) (client *RpcClient, err error) {
	if hostPort == "" {
		return nil, errors.New("signer host/port not configured")
	}
	if !strings.Contains(hostPort, "://") {
		hostPort = "http://" + hostPort
	}
	client = &RpcClient{
		HostPort: strings.TrimRight(hostPort, "/"),
		Client:   http.DefaultClient,
	}
	return
}

type RpcClient struct {
	HostPort string
	Client   *http.Client
}

func (c *RpcClient) req(ctx context.Context, method string, path string, body io.Reader) (rsp *http.Response, out []byte, err error) {
	req, err2 := http.NewRequestWithContext(ctx, method, c.HostPort+path, body)
	if err2 != nil {
		err = errors.WithStack(err2)
		return
	}

	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	rsp, err = c.Client.Do(req)
	if err != nil {
		err = errors.Wrapf(ErrRpcFailed, "%s %s: %v", method, path, err)
		return
	}
	defer rsp.Body.Close()

	out, err = io.ReadAll(rsp.Body)
	if err != nil {
		err = errors.WithStack(err)
		return
	}

	if rsp.StatusCode/100 != 2 {
		errRsp := &RpcError{}
		if decodeErr := json.Unmarshal(out, errRsp); decodeErr == nil && errRsp.Err != "" {
			err = errRsp

			if stdErr := errRsp.StdErr(); stdErr != nil {
				err = stdErr
			}

			return
		}

		err = errors.Wrapf(ErrRpcFailed, "rpc response code %d with body %s", rsp.StatusCode, string(out))
		return
	}

	return
}

func (c *RpcClient) reqUnmarshal(ctx context.Context, method string, path string, body io.Reader, target any) (err error) {
	_, rspBody, err := c.req(ctx, method, path, body)
	if err != nil {
		return
	}

	err = json.Unmarshal(rspBody, target)
	if err != nil {
		err = errors.Wrapf(err, "unable to unmarshal body: %s", string(rspBody))
		return
	}

	return
}

func (c *RpcClient) get(ctx context.Context, path string, target any) (err error) {
	return c.reqUnmarshal(ctx, http.MethodGet, path, nil, target)
}

func (c *RpcClient) post(ctx context.Context, path string, in any, target any) (err error) {
	jsn, err := json.Marshal(in)
	if err != nil {
		err = errors.WithStack(err)
		return
	}

	return c.reqUnmarshal(ctx, http.MethodPost, path, bytes.NewReader(jsn), target)
}

type PrepareIn = PrepareInput

type PrepareOut = PrepareResult

// Prepare asks the service for the digest to sign. The returned request id is
// valid for one Submit within the service's prepared ttl.
func (c *RpcClient) Prepare(ctx context.Context, in *PrepareIn) (out *PrepareOut, err error) {
	out = &PrepareOut{}
	err = c.post(ctx, "/tx/prepare", in, out)
	return
}

type SubmitIn struct {
	RequestID string   `json:"requestId"`
	Signature HexBytes `json:"signature"`
	PublicKey HexBytes `json:"publicKey,omitempty"`
}

type SubmitOut = SubmitResult

func (c *RpcClient) Submit(ctx context.Context, in *SubmitIn) (out *SubmitOut, err error) {
	out = &SubmitOut{}
	err = c.post(ctx, "/tx/submit", in, out)
	return
}

type GetStatusOut struct {
	Network     string `json:"network"`
	Endpoint    string `json:"endpoint"`
	Pending     int    `json:"pending"`
	PreparedTTL string `json:"preparedTTL"`
}

func (c *RpcClient) GetStatus(ctx context.Context) (out *GetStatusOut, err error) {
	out = &GetStatusOut{}
	err = c.get(ctx, "/status", out)
	return
}

type RpcError struct {
	Err     string `json:"error"`
	Details string `json:"details"`
}

func (r *RpcError) Error() string {
	return r.Err
}

// StdErr maps the reported error back onto the package sentinel of the same
// text, or nil when there is none.
func (r *RpcError) StdErr() error {
	for _, a := range AllErrors {
		if r.Err == a.Error() {
			return errors.Wrap(a, r.Details)
		}
	}
	return nil
}
