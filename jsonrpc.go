package accumulate

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// JsonRpcTransport talks JSON-RPC 2.0 to an Accumulate v3 API endpoint.
type JsonRpcTransport struct {
	Endpoint string
	Client   *http.Client
	log      *zerolog.Logger
	nextID   atomic.Uint64
}

var _ Transport = &JsonRpcTransport{}

func NewJsonRpcTransport(endpoint string) *JsonRpcTransport {
	return &JsonRpcTransport{
		Endpoint: endpoint,
		Client:   http.DefaultClient,
		log:      Log(),
	}
}

type jsonRpcRequest struct {
	JsonRpc string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

func (t *JsonRpcTransport) call(ctx context.Context, method string, params any) (result gjson.Result, err error) {
	body, err := json.Marshal(&jsonRpcRequest{
		JsonRpc: "2.0",
		ID:      t.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		err = errors.WithStack(err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint, bytes.NewReader(body))
	if err != nil {
		err = errors.WithStack(err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	t.log.Debug().Msgf("rpc call %s to %s", method, t.Endpoint)

	rsp, err := t.Client.Do(req)
	if err != nil {
		err = errors.Wrapf(ErrRpcFailed, "%s: %v", method, err)
		return
	}
	defer rsp.Body.Close()

	out, err := io.ReadAll(rsp.Body)
	if err != nil {
		err = errors.WithStack(err)
		return
	}

	if rsp.StatusCode/100 != 2 {
		err = errors.Wrapf(ErrRpcFailed, "%s: response code %d with body %s", method, rsp.StatusCode, string(out))
		return
	}

	parsed := gjson.ParseBytes(out)
	if rpcErr := parsed.Get("error"); rpcErr.Exists() {
		message := rpcErr.Get("message").String()
		if data := rpcErr.Get("data"); data.Exists() {
			message += ": " + data.String()
		}
		err = errors.Wrapf(ErrRpcFailed, "%s: %s", method, message)
		return
	}

	return parsed.Get("result"), nil
}

// Submit sends the envelope. Every rejected submission is reported; the
// error carries the network's messages unchanged.
func (t *JsonRpcTransport) Submit(ctx context.Context, envelope *Envelope) (results []SubmissionResult, err error) {
	result, err := t.call(ctx, "submit", map[string]any{"envelope": envelope})
	if err != nil {
		return
	}

	var rejected []string
	for _, r := range result.Array() {
		submission := SubmissionResult{
			Success: r.Get("success").Bool(),
			Message: r.Get("message").String(),
			TxID:    r.Get("status.txID").String(),
			Status:  r.Get("status.code").String(),
		}
		if submission.Message == "" {
			submission.Message = r.Get("status.error.message").String()
		}
		if !submission.Success {
			rejected = append(rejected, submission.Message)
		}
		results = append(results, submission)
	}

	if len(rejected) > 0 {
		err = errors.Wrapf(ErrSubmissionRejected, "%s", strings.Join(rejected, "; "))
	}

	return
}

// QueryKeyPage looks up the page version and the last timestamp used by the
// entry holding publicKey.
func (t *JsonRpcTransport) QueryKeyPage(ctx context.Context, page *URL, publicKey []byte) (state *KeyPageState, err error) {
	result, err := t.call(ctx, "query", map[string]any{
		"scope": page.String(),
		"query": map[string]any{"queryType": "default"},
	})
	if err != nil {
		return
	}

	account := result.Get("account")
	if typ := account.Get("type").String(); !strings.EqualFold(typ, "keyPage") {
		err = errors.Wrapf(ErrInvalidSigner, "%s is a %s, not a key page", page, typ)
		return
	}

	keyHash := sha256.Sum256(publicKey)
	wantHash := hex.EncodeToString(keyHash[:])
	wantKey := hex.EncodeToString(publicKey)

	for _, entry := range account.Get("keys").Array() {
		entryKey := strings.ToLower(entry.Get("publicKeyHash").String())
		if entryKey != wantHash && entryKey != wantKey {
			continue
		}
		return &KeyPageState{
			Url:        page,
			Version:    account.Get("version").Uint(),
			LastUsedOn: entry.Get("lastUsedOn").Uint(),
		}, nil
	}

	err = errors.Wrapf(ErrKeyNotFound, "%x on %s", publicKey, page)
	return
}
